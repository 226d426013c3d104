// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"context"
	"fmt"
)

// AuthType selects the user-verification gate applied before a bound key
// may sign.
type AuthType string

const (
	// AuthTypeBiometricOnly requires biometric verification with no
	// fallback.
	AuthTypeBiometricOnly AuthType = "BIOMETRIC_ONLY"

	// AuthTypeBiometricAllowFallback requires biometric verification but
	// permits device-passcode fallback.
	AuthTypeBiometricAllowFallback AuthType = "BIOMETRIC_ALLOW_FALLBACK"

	// AuthTypeApplicationPin gates signing behind an application-level PIN.
	AuthTypeApplicationPin AuthType = "APPLICATION_PIN"

	// AuthTypeNone applies no user verification.
	AuthTypeNone AuthType = "NONE"
)

// Environment describes the device capabilities the authenticator
// implementations gate on.
type Environment struct {
	// Simulator is true when running under a virtualized or simulated
	// device. Non-biometric authenticator types are unsupported there and
	// must report so rather than silently succeeding insecurely.
	Simulator bool

	// BiometryAvailable is true when the device has enrolled biometrics.
	BiometryAvailable bool

	// PasscodeSet is true when a device passcode is configured.
	PasscodeSet bool
}

// Prompt carries the user-facing strings for the verification dialog.
type Prompt struct {
	Title       string
	Subtitle    string
	Description string
}

// AuthOutcome tags the result of a user-verification attempt. Platform
// exception types are expressed as explicit variants instead of relying on
// exception unwinding.
type AuthOutcome int

const (
	// AuthSuccess means the user passed verification.
	AuthSuccess AuthOutcome = iota

	// AuthFailed means the user cancelled or local authentication failed.
	AuthFailed

	// AuthPlatformError means the platform verification call failed with
	// a status code.
	AuthPlatformError
)

// AuthResult is the tagged result of a verification attempt.
type AuthResult struct {
	Outcome AuthOutcome
	Code    int    // platform status when Outcome == AuthPlatformError
	Message string // human-readable detail
}

// UserVerifier presents the platform verification prompt and blocks until
// the user completes or dismisses it. Hardware verification calls may take
// up to the full configured timeout; run them off any UI-blocking context.
type UserVerifier interface {
	Verify(ctx context.Context, prompt Prompt) AuthResult
}

// UserVerifierFunc adapts a function to the UserVerifier interface.
type UserVerifierFunc func(ctx context.Context, prompt Prompt) AuthResult

// Verify calls f.
func (f UserVerifierFunc) Verify(ctx context.Context, prompt Prompt) AuthResult {
	return f(ctx, prompt)
}

// DeviceAuthenticator is one user-verification strategy resolved from the
// requested AuthType.
type DeviceAuthenticator interface {
	// Type returns the authentication type this implementation serves.
	Type() AuthType

	// IsSupported reports whether the strategy can run in the given
	// environment. Unsupported strategies fail a bind fast.
	IsSupported(env Environment) bool

	// Authenticate gates signing behind user verification.
	Authenticate(ctx context.Context, prompt Prompt) AuthResult

	// ValidateCustomClaims rejects caller-supplied claims that collide
	// with the claims this authenticator reserves for itself.
	ValidateCustomClaims(claims map[string]any) error
}

// reservedClaims are the registered claim names the signing pipeline owns.
// Custom claims colliding with them are rejected before signing.
var reservedClaims = map[string]bool{
	"sub":       true,
	"exp":       true,
	"iat":       true,
	"nbf":       true,
	"iss":       true,
	"challenge": true,
	"platform":  true,
}

func validateReservedClaims(claims map[string]any) error {
	for name := range claims {
		if reservedClaims[name] {
			return fmt.Errorf("custom claim %q collides with a reserved claim", name)
		}
	}
	return nil
}

// biometricAuthenticator gates signing behind platform biometrics.
type biometricAuthenticator struct {
	authType      AuthType
	allowFallback bool
	verifier      UserVerifier
}

// NewBiometricOnly creates the biometric-only authenticator.
func NewBiometricOnly(verifier UserVerifier) DeviceAuthenticator {
	return &biometricAuthenticator{
		authType: AuthTypeBiometricOnly,
		verifier: verifier,
	}
}

// NewBiometricAllowFallback creates the biometric authenticator with
// passcode fallback.
func NewBiometricAllowFallback(verifier UserVerifier) DeviceAuthenticator {
	return &biometricAuthenticator{
		authType:      AuthTypeBiometricAllowFallback,
		allowFallback: true,
		verifier:      verifier,
	}
}

func (a *biometricAuthenticator) Type() AuthType { return a.authType }

func (a *biometricAuthenticator) IsSupported(env Environment) bool {
	if env.BiometryAvailable {
		return true
	}
	return a.allowFallback && env.PasscodeSet
}

func (a *biometricAuthenticator) Authenticate(ctx context.Context, prompt Prompt) AuthResult {
	return a.verifier.Verify(ctx, prompt)
}

func (a *biometricAuthenticator) ValidateCustomClaims(claims map[string]any) error {
	return validateReservedClaims(claims)
}

// pinAuthenticator gates signing behind an application-level PIN collected
// by the embedding application.
type pinAuthenticator struct {
	verifier UserVerifier
}

// NewApplicationPin creates the application-PIN authenticator. The
// verifier is expected to collect and check the PIN.
func NewApplicationPin(verifier UserVerifier) DeviceAuthenticator {
	return &pinAuthenticator{verifier: verifier}
}

func (a *pinAuthenticator) Type() AuthType { return AuthTypeApplicationPin }

func (a *pinAuthenticator) IsSupported(env Environment) bool {
	// PIN collection runs in the embedding app, not the secure enclave,
	// but is still unsupported on virtualized devices.
	return !env.Simulator
}

func (a *pinAuthenticator) Authenticate(ctx context.Context, prompt Prompt) AuthResult {
	return a.verifier.Verify(ctx, prompt)
}

func (a *pinAuthenticator) ValidateCustomClaims(claims map[string]any) error {
	return validateReservedClaims(claims)
}

// noneAuthenticator applies no user verification.
type noneAuthenticator struct{}

// NewNone creates the verification-free authenticator.
func NewNone() DeviceAuthenticator {
	return &noneAuthenticator{}
}

func (a *noneAuthenticator) Type() AuthType { return AuthTypeNone }

func (a *noneAuthenticator) IsSupported(env Environment) bool {
	// Without user verification the key is only as strong as the device
	// boundary, which a simulator does not have.
	return !env.Simulator
}

func (a *noneAuthenticator) Authenticate(ctx context.Context, prompt Prompt) AuthResult {
	return AuthResult{Outcome: AuthSuccess}
}

func (a *noneAuthenticator) ValidateCustomClaims(claims map[string]any) error {
	return validateReservedClaims(claims)
}
