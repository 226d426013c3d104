// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package storage

import "errors"

var (
	// ErrClosed is returned when attempting to use a closed storage.
	ErrClosed = errors.New("storage: closed")

	// ErrNotFound is returned when a key is not found.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidKey is returned when a storage key is invalid or empty.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrDecryptFailed is returned by encrypted backends when a stored
	// record cannot be decrypted with the current key material.
	ErrDecryptFailed = errors.New("storage: decrypt failed")
)
