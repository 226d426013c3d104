// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"errors"
	"fmt"
)

// Sentinel errors for authenticator operations.
var (
	// ErrCredentialNotFound is returned when a credential cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrUnsupportedAlgorithm is returned when none of the relying party's
	// requested algorithms is supported. Callers must treat this as a hard
	// registration failure, not a fallback opportunity.
	ErrUnsupportedAlgorithm = errors.New("no requested algorithm is supported")

	// ErrKeyPairGeneration is returned when hardware key-pair generation fails.
	ErrKeyPairGeneration = errors.New("key pair generation failed")

	// ErrInvalidPublicKey is returned when a generated public key's external
	// representation does not match the platform contract.
	ErrInvalidPublicKey = errors.New("invalid public key representation")

	// ErrSigningFailed is returned when the hardware signing operation fails.
	ErrSigningFailed = errors.New("signing failed")

	// ErrKeyNotFound is returned when no key pair exists for a key label.
	ErrKeyNotFound = errors.New("key not found")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with an operation name if it's not nil.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
