// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/webauthn"
)

func TestAuthenticatorSupport(t *testing.T) {
	verifier := UserVerifierFunc(func(ctx context.Context, prompt Prompt) AuthResult {
		return AuthResult{Outcome: AuthSuccess}
	})

	tests := []struct {
		name string
		auth DeviceAuthenticator
		env  Environment
		want bool
	}{
		{
			name: "biometric only with biometry",
			auth: NewBiometricOnly(verifier),
			env:  Environment{BiometryAvailable: true},
			want: true,
		},
		{
			name: "biometric only without biometry",
			auth: NewBiometricOnly(verifier),
			env:  Environment{PasscodeSet: true},
			want: false,
		},
		{
			name: "fallback uses passcode when biometry missing",
			auth: NewBiometricAllowFallback(verifier),
			env:  Environment{PasscodeSet: true},
			want: true,
		},
		{
			name: "fallback with neither",
			auth: NewBiometricAllowFallback(verifier),
			env:  Environment{},
			want: false,
		},
		{
			name: "application pin on device",
			auth: NewApplicationPin(verifier),
			env:  Environment{},
			want: true,
		},
		{
			name: "application pin on simulator",
			auth: NewApplicationPin(verifier),
			env:  Environment{Simulator: true},
			want: false,
		},
		{
			name: "none on device",
			auth: NewNone(),
			env:  Environment{},
			want: true,
		},
		{
			name: "none on simulator",
			auth: NewNone(),
			env:  Environment{Simulator: true},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.auth.IsSupported(tt.env))
		})
	}
}

func TestNoneAuthenticatesWithoutVerifier(t *testing.T) {
	result := NewNone().Authenticate(context.Background(), Prompt{})
	assert.Equal(t, AuthSuccess, result.Outcome)
}

func TestValidateCustomClaims(t *testing.T) {
	auth := NewNone()

	assert.NoError(t, auth.ValidateCustomClaims(nil))
	assert.NoError(t, auth.ValidateCustomClaims(map[string]any{"deviceName": "phone"}))
	assert.Error(t, auth.ValidateCustomClaims(map[string]any{"sub": "attacker"}))
	assert.Error(t, auth.ValidateCustomClaims(map[string]any{"ok": 1, "exp": 0}))
}

// stubExtension contributes a single authenticator for one AuthType.
type stubExtension struct {
	name string
	auth DeviceAuthenticator
}

func (e *stubExtension) Name() string { return e.name }

func (e *stubExtension) Authenticators() []DeviceAuthenticator {
	return []DeviceAuthenticator{e.auth}
}

// recordingAuthenticator counts Authenticate calls.
type recordingAuthenticator struct {
	authType AuthType
	calls    int
}

func (a *recordingAuthenticator) Type() AuthType { return a.authType }

func (a *recordingAuthenticator) IsSupported(Environment) bool { return true }
func (a *recordingAuthenticator) Authenticate(ctx context.Context, prompt Prompt) AuthResult {
	a.calls++
	return AuthResult{Outcome: AuthSuccess}
}
func (a *recordingAuthenticator) ValidateCustomClaims(claims map[string]any) error {
	return validateReservedClaims(claims)
}

// resetExtensions restores the pristine registry after a test that
// registers extensions, so resolution in other tests is unaffected.
func resetExtensions(t *testing.T) {
	t.Cleanup(func() {
		extMu.Lock()
		extensions = nil
		extMu.Unlock()
	})
}

// Registered extensions both introduce new authentication types and
// override built-ins for the types they contribute.
func TestRegisterExtension(t *testing.T) {
	resetExtensions(t)
	custom := &recordingAuthenticator{authType: AuthType("EMBEDDED_SECURE_ELEMENT")}
	RegisterExtension(&stubExtension{name: "secure-element", auth: custom})

	repo := NewStorageUserKeyRepository(storage.NewMemory(), "")
	binder, err := NewBinder(BinderParams{
		Repository: repo,
		KeyStore:   webauthn.NewSoftwareKeyStore(),
		Storage:    storage.NewMemory(),
	})
	require.NoError(t, err)

	// Without the extension this type would be unresolvable.
	result, err := binder.Bind(context.Background(), BindRequest{
		Challenge: "c",
		UserID:    "alice",
		AuthType:  custom.authType,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.JWS)
	assert.Equal(t, 1, custom.calls)
}

func TestExtensionOverridesBuiltIn(t *testing.T) {
	resetExtensions(t)
	override := &recordingAuthenticator{authType: AuthTypeNone}
	RegisterExtension(&stubExtension{name: "none-override", auth: override})

	binder, err := NewBinder(BinderParams{
		Repository: NewStorageUserKeyRepository(storage.NewMemory(), ""),
		KeyStore:   webauthn.NewSoftwareKeyStore(),
		Storage:    storage.NewMemory(),
		// The built-in NONE authenticator would refuse a simulator;
		// the override accepts it, proving it won resolution.
		Environment: Environment{Simulator: true},
	})
	require.NoError(t, err)

	_, err = binder.Bind(context.Background(), BindRequest{
		Challenge: "c",
		UserID:    "alice",
		AuthType:  AuthTypeNone,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, override.calls)
}
