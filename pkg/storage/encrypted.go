// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// encryptionKeyInfo is the HKDF info string for deriving record
// encryption keys.
const encryptionKeyInfo = "frauth-storage-key-v1"

// EncryptedBackend wraps another Backend and encrypts every value with
// AES-256-GCM before it is written. This stands in for the at-rest
// protection a platform keychain provides natively.
//
// The record encryption key is derived via HKDF-SHA256 from the secret
// supplied at construction. Rotating or losing that secret makes every
// previously written record undecryptable; callers detect this through
// ErrDecryptFailed and own the recovery policy (the credential store
// wipes and reinitializes its scope).
type EncryptedBackend struct {
	inner Backend
	aead  cipher.AEAD
}

// NewEncrypted creates an encrypted view over inner using the given
// secret as key material.
func NewEncrypted(inner Backend, secret []byte) (*EncryptedBackend, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("storage: encryption secret required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(encryptionKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("storage: failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCM: %w", err)
	}

	return &EncryptedBackend{
		inner: inner,
		aead:  aead,
	}, nil
}

// Get retrieves and decrypts the value for the given key.
// Returns ErrDecryptFailed if the record cannot be authenticated with the
// current key material.
func (e *EncryptedBackend) Get(key string) ([]byte, error) {
	sealed, err := e.inner.Get(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < e.aead.NonceSize() {
		return nil, ErrDecryptFailed
	}

	nonce := sealed[:e.aead.NonceSize()]
	ciphertext := sealed[e.aead.NonceSize():]

	// The storage key is bound in as AAD so a record cannot be replayed
	// under a different key.
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Put encrypts and stores the value for the given key.
func (e *EncryptedBackend) Put(key string, value []byte, opts *Options) error {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("storage: failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, value, []byte(key))
	return e.inner.Put(key, sealed, opts)
}

// Delete removes the key from the underlying backend.
func (e *EncryptedBackend) Delete(key string) error {
	return e.inner.Delete(key)
}

// List returns all keys with the given prefix. Keys are stored in the
// clear; only values are encrypted.
func (e *EncryptedBackend) List(prefix string) ([]string, error) {
	return e.inner.List(prefix)
}

// Exists checks if a key exists in the underlying backend.
func (e *EncryptedBackend) Exists(key string) (bool, error) {
	return e.inner.Exists(key)
}

// Close releases the underlying backend.
func (e *EncryptedBackend) Close() error {
	return e.inner.Close()
}
