// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/logging"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
)

const (
	// DefaultServicePrefix scopes credential records in the keychain.
	// Each relying party gets its own service "<prefix>::<rpId>".
	DefaultServicePrefix = "com.forgerock.ios.webauthn"

	// validationKey is the marker record written on first access to each
	// relying-party scope. Failure to read it back signals rotated or
	// corrupted encryption key material.
	validationKey = "validation-key"

	// validationValue is the fixed known plaintext of the marker record.
	validationValue = "com.forgerock.ios.webauthn.validation"
)

// CredentialStore persists PublicKeyCredentialSource records in an
// encrypted keychain-style backend, one service scope per relying party.
//
// On first access to a scope the store verifies a validation marker
// decrypts to its known value. If it does not, the key material protecting
// the scope has rotated and every record in it is unreadable; the store
// wipes the scope and reinitializes it. This self-healing trades data loss
// for availability and is intentional: the alternative is a permanently
// wedged credential store after an OS-level key rotation.
type CredentialStore struct {
	backend storage.Backend
	prefix  string
	log     *logging.Logger

	mu        sync.Mutex
	validated map[string]bool
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithServicePrefix overrides the keychain service-name prefix.
func WithServicePrefix(prefix string) CredentialStoreOption {
	return func(s *CredentialStore) { s.prefix = prefix }
}

// WithLogger injects a logger. Store self-healing wipes are reported
// through it at Warn level.
func WithLogger(log *logging.Logger) CredentialStoreOption {
	return func(s *CredentialStore) { s.log = log }
}

// NewCredentialStore creates a credential store over the given backend.
// The backend is expected to encrypt at rest (see storage.EncryptedBackend);
// decryption failures drive the self-healing path.
func NewCredentialStore(backend storage.Backend, opts ...CredentialStoreOption) *CredentialStore {
	s := &CredentialStore{
		backend:   backend,
		prefix:    DefaultServicePrefix,
		log:       logging.Discard(),
		validated: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scope returns the validated service scope for a relying party,
// performing the first-access marker check.
func (s *CredentialStore) scope(rpID string) (*storage.ServiceScope, error) {
	scope := storage.NewServiceScope(s.backend, storage.ServiceName(s.prefix, rpID))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.validated[rpID] {
		return scope, nil
	}

	value, err := scope.Get(validationKey)
	switch {
	case err == nil && string(value) == validationValue:
		// Scope is healthy.
	case errors.Is(err, storage.ErrNotFound):
		// First use of this scope; write the marker.
		if err := scope.Put(validationKey, []byte(validationValue), nil); err != nil {
			return nil, wrapError("initialize scope", err)
		}
	default:
		// Marker unreadable or wrong: key material rotated or corrupted.
		// Wipe the scope and reinitialize.
		s.log.Warn("credential store validation failed, wiping scope",
			"rpId", rpID, "service", scope.Service())
		if err := scope.Wipe(); err != nil {
			return nil, wrapError("wipe scope", err)
		}
		if err := scope.Put(validationKey, []byte(validationValue), nil); err != nil {
			return nil, wrapError("reinitialize scope", err)
		}
	}

	s.validated[rpID] = true
	return scope, nil
}

// Save serializes and stores a credential source under hex(id) in its
// relying party's scope. An existing record for the same (rpId, id) pair
// is overwritten.
func (s *CredentialStore) Save(source *PublicKeyCredentialSource) error {
	scope, err := s.scope(source.RPID)
	if err != nil {
		return err
	}

	data, err := source.Encode()
	if err != nil {
		return wrapError("save credential", err)
	}
	return wrapError("save credential", scope.Put(hex.EncodeToString(source.ID), data, nil))
}

// Lookup returns the credential source for (rpID, credentialID), or false
// when the record is missing or fails to decode. The two cases are
// indistinguishable to the caller; a corrupt record fails closed as a miss.
func (s *CredentialStore) Lookup(rpID string, credentialID []byte) (*PublicKeyCredentialSource, bool) {
	scope, err := s.scope(rpID)
	if err != nil {
		return nil, false
	}

	data, err := scope.Get(hex.EncodeToString(credentialID))
	if err != nil {
		return nil, false
	}
	source, err := DecodeCredentialSource(data)
	if err != nil {
		return nil, false
	}
	return source, true
}

// LoadAll returns every discoverable credential registered for the relying
// party. Non-discoverable credentials (those without a user handle) are
// silently excluded; relying parties expect only resident keys to be
// enumerable.
func (s *CredentialStore) LoadAll(rpID string) ([]*PublicKeyCredentialSource, error) {
	return s.loadAll(rpID, nil)
}

// LoadAllForUser returns every discoverable credential for the relying
// party whose user handle matches userHandle exactly.
func (s *CredentialStore) LoadAllForUser(rpID string, userHandle []byte) ([]*PublicKeyCredentialSource, error) {
	return s.loadAll(rpID, userHandle)
}

func (s *CredentialStore) loadAll(rpID string, userHandle []byte) ([]*PublicKeyCredentialSource, error) {
	scope, err := s.scope(rpID)
	if err != nil {
		return nil, err
	}

	keys, err := scope.List()
	if err != nil {
		return nil, wrapError("load credentials", err)
	}

	var sources []*PublicKeyCredentialSource
	for _, key := range keys {
		if key == validationKey {
			continue
		}
		data, err := scope.Get(key)
		if err != nil {
			continue
		}
		source, err := DecodeCredentialSource(data)
		if err != nil {
			// Corrupt record; fail closed.
			continue
		}
		if !source.IsDiscoverable() {
			continue
		}
		if userHandle != nil && !bytes.Equal(source.UserHandle, userHandle) {
			continue
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// Delete removes a single credential record. Deleting a missing record is
// not an error.
func (s *CredentialStore) Delete(source *PublicKeyCredentialSource) error {
	scope, err := s.scope(source.RPID)
	if err != nil {
		return err
	}

	err = scope.Delete(hex.EncodeToString(source.ID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return wrapError("delete credential", err)
}

// DeleteAllForUser removes every credential for (rpID, userHandle).
// Deletion is enumerate-then-delete and not atomic; a crash mid-operation
// leaves a partial set behind.
func (s *CredentialStore) DeleteAllForUser(rpID string, userHandle []byte) error {
	sources, err := s.loadAll(rpID, userHandle)
	if err != nil {
		return err
	}
	for _, source := range sources {
		if err := s.Delete(source); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll wipes every record for the relying party, including
// non-discoverable credentials and the validation marker. The scope is
// revalidated on next access.
func (s *CredentialStore) DeleteAll(rpID string) error {
	scope, err := s.scope(rpID)
	if err != nil {
		return err
	}
	if err := scope.Wipe(); err != nil {
		return wrapError("delete all credentials", err)
	}

	s.mu.Lock()
	delete(s.validated, rpID)
	s.mu.Unlock()
	return nil
}
