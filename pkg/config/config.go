// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package config loads SDK configuration from YAML, applying defaults and
// validation before any component is constructed.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete SDK configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Keychain      KeychainConfig      `yaml:"keychain"`
	DeviceBinding DeviceBindingConfig `yaml:"device_binding"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig identifies the remote identity server
type ServerConfig struct {
	URL        string `yaml:"url"`
	Realm      string `yaml:"realm"`
	CookieName string `yaml:"cookie_name"`
}

// StorageConfig controls where persisted records live
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory, file
	Path    string `yaml:"path"`    // root directory for the file backend
}

// KeychainConfig controls keychain scoping and encryption
type KeychainConfig struct {
	AccessGroup   string `yaml:"access_group"`
	ServicePrefix string `yaml:"service_prefix"`
}

// DeviceBindingConfig controls the device-binding pipeline
type DeviceBindingConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Load reads configuration from a YAML file, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Keychain.ServicePrefix == "" {
		c.Keychain.ServicePrefix = "com.forgerock.ios"
	}
	if c.DeviceBinding.TimeoutSeconds == 0 {
		c.DeviceBinding.TimeoutSeconds = 60
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for the file backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.DeviceBinding.TimeoutSeconds < 0 {
		return fmt.Errorf("config: device_binding.timeout_seconds must not be negative")
	}
	return nil
}

// BindTimeout returns the configured device-binding timeout.
func (c *Config) BindTimeout() time.Duration {
	return time.Duration(c.DeviceBinding.TimeoutSeconds) * time.Second
}
