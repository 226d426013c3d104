// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/logging"
)

// KeyStore abstracts the platform secure key store holding credential key
// pairs. Implementations are expected to keep private key material inside
// secure hardware and expose only signing. All implementations must be
// thread-safe.
type KeyStore interface {
	// Generate creates a new P-256 key pair tagged by label and returns
	// its signer. Generating over an existing label replaces the key.
	Generate(label string) (crypto.Signer, error)

	// Signer returns the signer for an existing key pair.
	// Returns ErrKeyNotFound if no key exists for the label.
	Signer(label string) (crypto.Signer, error)

	// Delete removes the key pair tagged by label.
	// Deleting a missing label is not an error.
	Delete(label string) error

	// Exists reports whether a key pair exists for the label.
	Exists(label string) (bool, error)
}

// KeyStoreFactory opens a KeyStore under a keychain access group. An empty
// access group means the default, ungrouped scope.
type KeyStoreFactory func(accessGroup string) (KeyStore, error)

// probeLabel is the throwaway label used to validate an access group.
const probeLabel = "com.forgerock.ios.keystore.probe"

// ResolveKeyStore opens a KeyStore for the configured access group,
// validating the group with a trivial generate-and-delete probe. If the
// probe fails the store falls back to the ungrouped scope; the fallback is
// logged, never surfaced as an error.
func ResolveKeyStore(factory KeyStoreFactory, accessGroup string, log *logging.Logger) (KeyStore, error) {
	if log == nil {
		log = logging.Discard()
	}
	if accessGroup == "" {
		return factory("")
	}

	store, err := factory(accessGroup)
	if err == nil {
		if probeErr := probeKeyStore(store); probeErr == nil {
			return store, nil
		}
	}
	log.Warn("keychain access group validation failed, falling back to ungrouped scope",
		"accessGroup", accessGroup)
	return factory("")
}

func probeKeyStore(store KeyStore) error {
	if _, err := store.Generate(probeLabel); err != nil {
		return err
	}
	return store.Delete(probeLabel)
}

// SoftwareKeyStore is an in-memory KeyStore used on platforms without
// secure hardware and in tests. Keys live for the process lifetime only.
type SoftwareKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

// NewSoftwareKeyStore creates an empty software key store.
func NewSoftwareKeyStore() *SoftwareKeyStore {
	return &SoftwareKeyStore{
		keys: make(map[string]*ecdsa.PrivateKey),
	}
}

// Generate creates a new P-256 key pair tagged by label.
func (s *SoftwareKeyStore) Generate(label string) (crypto.Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[label] = key
	return key, nil
}

// Signer returns the signer for an existing key pair.
func (s *SoftwareKeyStore) Signer(label string) (crypto.Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[label]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// Delete removes the key pair tagged by label.
func (s *SoftwareKeyStore) Delete(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, label)
	return nil
}

// Exists reports whether a key pair exists for the label.
func (s *SoftwareKeyStore) Exists(label string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[label]
	return ok, nil
}
