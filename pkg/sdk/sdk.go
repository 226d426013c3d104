// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package sdk is the composition root tying configuration to components.
// Embedders load a Config (or accept the defaults), supply the
// platform-specific implementations in Platform, and get back a wired SDK:
// storage backend, key store, credential store, authenticator and
// device-binding pipeline.
package sdk

import (
	"context"
	"fmt"
	"time"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/appattest"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/config"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/devicebinding"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/logging"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage/file"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/webauthn"
)

// Platform supplies the device-specific implementations the SDK cannot
// provide itself. Every field is optional; zero values fall back to
// software implementations suitable for development and tests.
type Platform struct {
	// KeyStoreFactory opens the hardware key store for an access group.
	// Defaults to the software key store.
	KeyStoreFactory webauthn.KeyStoreFactory

	// Verifier presents the user-verification prompt for device binding.
	// Required when binding with a biometric or PIN authentication type.
	Verifier devicebinding.UserVerifier

	// Selector disambiguates between multiple bound keys during sign.
	Selector devicebinding.KeySelector

	// Environment describes the device capabilities.
	Environment devicebinding.Environment

	// Attestation is the platform app-attestation service. When nil the
	// SDK exposes no Attestor.
	Attestation appattest.AttestationService

	// BundleID identifies the embedding application for attestation.
	BundleID string

	// StorageSecret, when set, encrypts all persisted records at rest
	// (AES-256-GCM over the configured backend).
	StorageSecret []byte
}

// SDK is the wired component graph.
type SDK struct {
	Config        *config.Config
	Log           *logging.Logger
	Storage       storage.Backend
	KeyStore      webauthn.KeyStore
	Credentials   *webauthn.CredentialStore
	Authenticator *webauthn.Authenticator
	Binder        *devicebinding.Binder

	// Attestor is nil unless Platform.Attestation was supplied.
	Attestor *appattest.Attestor

	bindTimeout time.Duration
}

// Load reads a YAML configuration file and builds the SDK from it.
func Load(path string, platform Platform) (*SDK, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, platform)
}

// New builds the SDK from an in-memory configuration. A nil cfg uses the
// defaults (in-memory storage, 60s bind timeout).
func New(cfg *config.Config, platform Platform) (*SDK, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.NewLogger(cfg.Logging.Debug)

	backend, err := newBackend(cfg, platform.StorageSecret)
	if err != nil {
		return nil, err
	}

	factory := platform.KeyStoreFactory
	if factory == nil {
		factory = func(accessGroup string) (webauthn.KeyStore, error) {
			return webauthn.NewSoftwareKeyStore(), nil
		}
	}
	keyStore, err := webauthn.ResolveKeyStore(factory, cfg.Keychain.AccessGroup, log)
	if err != nil {
		return nil, fmt.Errorf("sdk: open key store: %w", err)
	}

	credentials := webauthn.NewCredentialStore(backend,
		webauthn.WithServicePrefix(cfg.Keychain.ServicePrefix+".webauthn"),
		webauthn.WithLogger(log))

	binder, err := devicebinding.NewBinder(devicebinding.BinderParams{
		Repository:  devicebinding.NewStorageUserKeyRepository(backend, cfg.Keychain.ServicePrefix+".devicebinding"),
		KeyStore:    keyStore,
		Storage:     backend,
		Environment: platform.Environment,
		Verifier:    platform.Verifier,
		Selector:    platform.Selector,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	s := &SDK{
		Config:        cfg,
		Log:           log,
		Storage:       backend,
		KeyStore:      keyStore,
		Credentials:   credentials,
		Authenticator: webauthn.NewAuthenticator(keyStore, credentials, log),
		Binder:        binder,
		bindTimeout:   cfg.BindTimeout(),
	}
	if platform.Attestation != nil {
		s.Attestor = appattest.NewAttestor(platform.Attestation, backend, platform.BundleID, log)
	}
	return s, nil
}

// newBackend builds the storage backend named by the configuration,
// optionally wrapped with at-rest encryption.
func newBackend(cfg *config.Config, secret []byte) (storage.Backend, error) {
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "memory":
		backend = storage.NewMemory()
	case "file":
		fs, err := file.New(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		backend = fs
	default:
		// Validate catches this; kept for direct callers.
		return nil, fmt.Errorf("sdk: unknown storage backend %q", cfg.Storage.Backend)
	}

	if len(secret) > 0 {
		encrypted, err := storage.NewEncrypted(backend, secret)
		if err != nil {
			return nil, err
		}
		backend = encrypted
	}
	return backend, nil
}

// Bind runs a device-binding bind, applying the configured default timeout
// when the request does not set one.
func (s *SDK) Bind(ctx context.Context, req devicebinding.BindRequest) (*devicebinding.BindResult, error) {
	if req.Timeout <= 0 {
		req.Timeout = s.bindTimeout
	}
	return s.Binder.Bind(ctx, req)
}

// Sign runs a device-binding sign, applying the configured default timeout
// when the request does not set one.
func (s *SDK) Sign(ctx context.Context, req devicebinding.SignRequest) (*devicebinding.SignResult, error) {
	if req.Timeout <= 0 {
		req.Timeout = s.bindTimeout
	}
	return s.Binder.Sign(ctx, req)
}

// Close releases the storage backend.
func (s *SDK) Close() error {
	return s.Storage.Close()
}
