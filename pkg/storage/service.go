// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package storage

import (
	"errors"
	"strings"
)

// ServiceSeparator joins a service-name prefix with its scope, mirroring
// the platform keychain convention "<prefix>::<scope>".
const ServiceSeparator = "::"

// ServiceName builds the fully qualified service name for a scope, e.g.
// ServiceName("com.forgerock.ios.webauthn", "example.com") yields
// "com.forgerock.ios.webauthn::example.com".
func ServiceName(prefix, scope string) string {
	return prefix + ServiceSeparator + scope
}

// ServiceScope wraps a Backend and confines all operations to a single
// keychain-style service name. Keys written through the scope are prefixed
// with "<service>/" in the underlying backend, so multiple scopes can share
// one backend without colliding.
type ServiceScope struct {
	backend Backend
	service string
}

// NewServiceScope creates a scoped view over backend for the given
// service name.
func NewServiceScope(backend Backend, service string) *ServiceScope {
	return &ServiceScope{
		backend: backend,
		service: service,
	}
}

// Service returns the fully qualified service name of this scope.
func (s *ServiceScope) Service() string {
	return s.service
}

func (s *ServiceScope) qualify(key string) string {
	return s.service + "/" + key
}

// Get retrieves the value for key within this scope.
func (s *ServiceScope) Get(key string) ([]byte, error) {
	return s.backend.Get(s.qualify(key))
}

// Put stores the value for key within this scope.
func (s *ServiceScope) Put(key string, value []byte, opts *Options) error {
	if key == "" {
		return ErrInvalidKey
	}
	return s.backend.Put(s.qualify(key), value, opts)
}

// Delete removes key from this scope.
func (s *ServiceScope) Delete(key string) error {
	return s.backend.Delete(s.qualify(key))
}

// List returns all keys in this scope, with the scope prefix stripped.
func (s *ServiceScope) List() ([]string, error) {
	qualified, err := s.backend.List(s.service + "/")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(qualified))
	for _, k := range qualified {
		keys = append(keys, strings.TrimPrefix(k, s.service+"/"))
	}
	return keys, nil
}

// Exists checks if key exists within this scope.
func (s *ServiceScope) Exists(key string) (bool, error) {
	return s.backend.Exists(s.qualify(key))
}

// Wipe deletes every record in this scope. Deletion is enumerate-then-delete
// and therefore not atomic; a crash mid-wipe leaves a partial set behind.
func (s *ServiceScope) Wipe() error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
