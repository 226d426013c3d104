// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package storage provides an abstraction layer for the key-value stores
// the SDK persists credentials, user keys and markers into. It supports
// in-memory, file-based and encrypted implementations with a common
// interface, plus a service-scope wrapper mirroring platform keychain
// service names.
package storage

import (
	"io/fs"
)

// Backend is the key-value store the SDK persists records into. A record
// is an opaque byte value under a string key; service scoping and
// encryption are layered on top (ServiceScope, EncryptedBackend). All
// implementations must be thread-safe.
type Backend interface {
	// Get retrieves the value for key.
	// Returns ErrNotFound if no record exists.
	Get(key string) ([]byte, error)

	// Put stores value under key, overwriting any existing record.
	// A nil opts uses the backend's defaults.
	Put(key string, value []byte, opts *Options) error

	// Delete removes the record for key.
	// Returns ErrNotFound if no record exists.
	Delete(key string) error

	// List returns every key with the given prefix, sorted. An empty
	// prefix lists all keys.
	List(prefix string) ([]string, error)

	// Exists reports whether a record exists for key.
	Exists(key string) (bool, error)

	// Close releases any resources held by the backend. Operations after
	// Close return ErrClosed.
	Close() error
}

// Options carries per-record write options. Backends ignore fields that
// do not apply to them.
type Options struct {
	// Permissions overrides the file mode for file-backed records.
	// Zero means the backend default (0600).
	Permissions fs.FileMode
}
