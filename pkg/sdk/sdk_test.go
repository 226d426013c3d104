// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package sdk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/appattest"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/config"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/devicebinding"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/encoding/jwt"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/webauthn"
)

func TestNewWithDefaults(t *testing.T) {
	s, err := New(nil, Platform{})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "memory", s.Config.Storage.Backend)
	assert.NotNil(t, s.Credentials)
	assert.NotNil(t, s.Authenticator)
	assert.NotNil(t, s.Binder)
	assert.Nil(t, s.Attestor)

	// The wired graph is usable end to end: bind a key without user
	// verification and get a JWS back.
	result, err := s.Bind(context.Background(), devicebinding.BindRequest{
		Challenge: "challenge-1",
		UserID:    "alice",
		AuthType:  devicebinding.AuthTypeNone,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.JWS)
	assert.NotEmpty(t, result.DeviceID)
}

// The configured default timeout flows into bind requests that do not set
// their own, observable as the JWS expiry window.
func TestConfiguredTimeoutApplied(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.DeviceBinding.TimeoutSeconds = 30

	s, err := New(cfg, Platform{})
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Bind(context.Background(), devicebinding.BindRequest{
		Challenge: "challenge-1",
		UserID:    "alice",
		AuthType:  devicebinding.AuthTypeNone,
	})
	require.NoError(t, err)

	signer, err := s.KeyStore.Signer(result.Key.ID)
	require.NoError(t, err)
	token, err := jwt.NewVerifier().Verify(result.JWS, signer.Public())
	require.NoError(t, err)

	claims := token.Claims.(gojwt.MapClaims)
	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	// iat and the expiry base are sampled moments apart on the wall
	// clock, so allow one second of truncation skew.
	assert.InDelta(t, 30, exp-iat, 1)
}

// File-backed storage with a storage secret survives SDK restarts: a
// credential saved by one instance is readable by the next.
func TestFileBackendPersistence(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Storage.Backend = "file"
	cfg.Storage.Path = t.TempDir()
	platform := Platform{StorageSecret: []byte("storage-secret")}

	first, err := New(cfg, platform)
	require.NoError(t, err)

	source := &webauthn.PublicKeyCredentialSource{
		ID:         []byte{0x01, 0x02, 0x03, 0x04},
		RPID:       "example.com",
		UserHandle: []byte("alice"),
		OtherUI:    "Alice",
	}
	require.NoError(t, first.Credentials.Save(source))
	require.NoError(t, first.Close())

	second, err := New(cfg, platform)
	require.NoError(t, err)
	defer second.Close()

	got, ok := second.Credentials.Lookup("example.com", source.ID)
	require.True(t, ok)
	assert.True(t, source.Equal(got))

	// A rotated secret makes the old records unreadable; the store heals
	// by wiping the scope.
	rotated, err := New(cfg, Platform{StorageSecret: []byte("other-secret")})
	require.NoError(t, err)
	defer rotated.Close()
	_, ok = rotated.Credentials.Lookup("example.com", source.ID)
	assert.False(t, ok)
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Storage.Backend = "file" // no path

	_, err := New(cfg, Platform{})
	assert.ErrorContains(t, err, "storage.path is required")
}

type stubAttestation struct{}

func (stubAttestation) IsSupported() bool { return true }
func (stubAttestation) GenerateKey(ctx context.Context) (string, error) {
	return "key-1", nil
}
func (stubAttestation) Attest(ctx context.Context, keyID string, challengeHash []byte) ([]byte, error) {
	return []byte("attestation"), nil
}
func (stubAttestation) GenerateAssertion(ctx context.Context, keyID string, clientDataHash []byte) ([]byte, error) {
	return []byte("assertion"), nil
}

func TestAttestorWiredWhenServiceSupplied(t *testing.T) {
	s, err := New(nil, Platform{
		Attestation: stubAttestation{},
		BundleID:    "com.example.app",
	})
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.Attestor)

	token, err := s.Attestor.RequestIntegrityToken(context.Background(), "1234", "")
	require.NoError(t, err)
	assert.NotEmpty(t, token.AttestKey)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: memory
device_binding:
  timeout_seconds: 45
keychain:
  service_prefix: com.example.app
`), 0600))

	s, err := Load(path, Platform{})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 45, s.Config.DeviceBinding.TimeoutSeconds)
	assert.Equal(t, "com.example.app", s.Config.Keychain.ServicePrefix)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), Platform{})
	assert.Error(t, err)
}

// appattest.AttestationService conformance for the stub.
var _ appattest.AttestationService = stubAttestation{}
