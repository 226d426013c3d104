// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package appattest

import (
	"errors"
	"fmt"
)

// Sentinel errors for attestation operations. Input-validation errors are
// reported synchronously before any platform interaction and are never
// retried.
var (
	// ErrInvalidChallenge is returned when the challenge is empty.
	ErrInvalidChallenge = errors.New("appattest: invalid challenge")

	// ErrInvalidBundleIdentifier is returned when the application bundle
	// identifier is empty.
	ErrInvalidBundleIdentifier = errors.New("appattest: invalid bundle identifier")

	// ErrInvalidClientData is returned when the client-data structure
	// cannot be encoded.
	ErrInvalidClientData = errors.New("appattest: invalid client data")

	// ErrFeatureUnsupported is returned when the platform attestation
	// service is unavailable. Terminal, not retryable.
	ErrFeatureUnsupported = errors.New("appattest: feature unsupported")

	// ErrUnknownSystemFailure is the mapped unknown-system-failure
	// platform error.
	ErrUnknownSystemFailure = errors.New("appattest: unknown system failure")

	// ErrInvalidInput is the mapped invalid-input platform error.
	ErrInvalidInput = errors.New("appattest: invalid input")

	// ErrInvalidKey is the mapped invalid-key platform error.
	ErrInvalidKey = errors.New("appattest: invalid key")

	// ErrServerUnavailable is the mapped server-unavailable platform error.
	ErrServerUnavailable = errors.New("appattest: server unavailable")

	// ErrUnknown is the passthrough for unrecognized platform errors.
	ErrUnknown = errors.New("appattest: unknown error")
)

// Platform attestation-service failure codes.
const (
	PlatformUnknownSystemFailure = 0
	PlatformFeatureUnsupported   = 1
	PlatformInvalidInput         = 2
	PlatformInvalidKey           = 3
	PlatformServerUnavailable    = 4
)

// PlatformError is a failure surfaced by the platform attestation service
// with its numeric status code.
type PlatformError struct {
	Code int
}

// Error returns the error message.
func (e *PlatformError) Error() string {
	return fmt.Sprintf("appattest: platform error code %d", e.Code)
}

// platformErrorTable is the fixed mapping from platform codes to SDK
// errors. Every platform code maps to exactly one case.
var platformErrorTable = map[int]error{
	PlatformUnknownSystemFailure: ErrUnknownSystemFailure,
	PlatformFeatureUnsupported:   ErrFeatureUnsupported,
	PlatformInvalidInput:         ErrInvalidInput,
	PlatformInvalidKey:           ErrInvalidKey,
	PlatformServerUnavailable:    ErrServerUnavailable,
}

// mapPlatformError translates a platform-layer failure into the SDK's
// error taxonomy. An unrecognized code maps to ErrUnknown rather than
// being swallowed.
func mapPlatformError(err error) error {
	var platformErr *PlatformError
	if !errors.As(err, &platformErr) {
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	if mapped, ok := platformErrorTable[platformErr.Code]; ok {
		return mapped
	}
	return fmt.Errorf("%w: platform code %d", ErrUnknown, platformErr.Code)
}
