// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"context"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/encoding/jwt"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/webauthn"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeVerifier returns a canned result and can advance the clock to
// simulate a prompt left on screen.
type fakeVerifier struct {
	result  AuthResult
	advance time.Duration
	clock   *fakeClock
	calls   int
}

func (v *fakeVerifier) Verify(ctx context.Context, prompt Prompt) AuthResult {
	v.calls++
	if v.advance > 0 {
		v.clock.Advance(v.advance)
	}
	return v.result
}

type binderFixture struct {
	binder   *Binder
	repo     *StorageUserKeyRepository
	keyStore *webauthn.SoftwareKeyStore
	clock    *fakeClock
	verifier *fakeVerifier
}

func newBinderFixture(t *testing.T, env Environment) *binderFixture {
	t.Helper()

	clock := newFakeClock()
	verifier := &fakeVerifier{result: AuthResult{Outcome: AuthSuccess}, clock: clock}
	repo := NewStorageUserKeyRepository(storage.NewMemory(), "")
	keyStore := webauthn.NewSoftwareKeyStore()

	binder, err := NewBinder(BinderParams{
		Repository:  repo,
		KeyStore:    keyStore,
		Storage:     storage.NewMemory(),
		Environment: env,
		Verifier:    verifier,
		Clock:       clock.Now,
	})
	require.NoError(t, err)

	return &binderFixture{
		binder:   binder,
		repo:     repo,
		keyStore: keyStore,
		clock:    clock,
		verifier: verifier,
	}
}

func TestNewBinderValidation(t *testing.T) {
	repo := NewStorageUserKeyRepository(storage.NewMemory(), "")
	keyStore := webauthn.NewSoftwareKeyStore()
	backend := storage.NewMemory()

	_, err := NewBinder(BinderParams{KeyStore: keyStore, Storage: backend})
	assert.ErrorContains(t, err, "repository is required")

	_, err = NewBinder(BinderParams{Repository: repo, Storage: backend})
	assert.ErrorContains(t, err, "key store is required")

	_, err = NewBinder(BinderParams{Repository: repo, KeyStore: keyStore})
	assert.ErrorContains(t, err, "storage is required")
}

func TestBindIssuesVerifiableJWS(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})

	result, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "challenge-123",
		UserID:    "alice",
		UserName:  "Alice",
		AuthType:  AuthTypeBiometricOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.JWS)
	assert.NotEmpty(t, result.DeviceID)
	assert.Equal(t, "alice", result.Key.UserID)
	assert.Equal(t, AuthTypeBiometricOnly, result.Key.AuthType)
	assert.Equal(t, 1, f.verifier.calls)

	// The key record and hardware key both exist.
	keys, err := f.repo.LoadByUserID("alice")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	exists, err := f.keyStore.Exists(result.Key.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// The JWS verifies against the bound public key and carries the
	// expected claims.
	signer, err := f.keyStore.Signer(result.Key.ID)
	require.NoError(t, err)
	token, err := jwt.NewVerifier().Verify(result.JWS, signer.Public())
	require.NoError(t, err)

	assert.Equal(t, result.Key.KID, token.Header["kid"])
	assert.Equal(t, "ES256", token.Header["alg"])

	claims, ok := token.Claims.(gojwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "challenge-123", claims["challenge"])
	assert.Equal(t, "ios", claims["platform"])
	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	assert.Equal(t, int64(DefaultTimeout/time.Second), exp-iat)
}

func TestBindDeviceIDStable(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})

	first, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c1", UserID: "alice", AuthType: AuthTypeBiometricOnly,
	})
	require.NoError(t, err)
	second, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c2", UserID: "alice", AuthType: AuthTypeBiometricOnly,
	})
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID, second.DeviceID)
}

func TestBindUnsupportedAuthType(t *testing.T) {
	// No biometry and no passcode: biometric-only cannot run.
	f := newBinderFixture(t, Environment{})
	payload := &Payload{}

	_, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c", UserID: "alice", AuthType: AuthTypeBiometricOnly,
		Payload: payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeUnsupported, bindingErr.Code)
	assert.Equal(t, "Unsupported", payload.ClientError())

	// Nothing was created.
	keys, repoErr := f.repo.LoadAll()
	require.NoError(t, repoErr)
	assert.Empty(t, keys)
	assert.Equal(t, 0, f.verifier.calls)
}

func TestBindSimulatorRejectsNone(t *testing.T) {
	f := newBinderFixture(t, Environment{Simulator: true})

	_, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c", UserID: "alice", AuthType: AuthTypeNone,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeUnsupported, bindingErr.Code)
}

// A failed or cancelled verification rolls back the freshly generated key.
func TestBindAuthFailureRollsBack(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	f.verifier.result = AuthResult{Outcome: AuthFailed}
	payload := &Payload{}

	_, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c", UserID: "alice", AuthType: AuthTypeBiometricOnly,
		Payload: payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeAbort, bindingErr.Code)
	assert.Equal(t, "Abort", payload.ClientError())

	keys, repoErr := f.repo.LoadAll()
	require.NoError(t, repoErr)
	assert.Empty(t, keys)
}

func TestBindPlatformError(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	f.verifier.result = AuthResult{Outcome: AuthPlatformError, Code: -8, Message: "biometry lockout"}
	payload := &Payload{}

	_, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c", UserID: "alice", AuthType: AuthTypeBiometricOnly,
		Payload: payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeUnknown, bindingErr.Code)
	assert.Contains(t, bindingErr.Message, "-8")
	assert.Equal(t, "Unknown", payload.ClientError())
}

// A signature produced after the wall-clock budget has lapsed is discarded
// and the fresh key is rolled back.
func TestBindTimeout(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	f.verifier.advance = 90 * time.Second
	payload := &Payload{}

	_, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "c", UserID: "alice", AuthType: AuthTypeBiometricOnly,
		Timeout:   time.Minute,
		Payload:   payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeTimeout, bindingErr.Code)
	assert.Equal(t, "Timeout", payload.ClientError())

	keys, repoErr := f.repo.LoadAll()
	require.NoError(t, repoErr)
	assert.Empty(t, keys)
}

func bindKey(t *testing.T, f *binderFixture, userID string) UserKey {
	t.Helper()
	result, err := f.binder.Bind(context.Background(), BindRequest{
		Challenge: "bind-challenge",
		UserID:    userID,
		AuthType:  AuthTypeBiometricOnly,
	})
	require.NoError(t, err)
	return result.Key
}

func TestSignWithSingleKey(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	key := bindKey(t, f, "alice")

	// A single key must be used directly without consulting the selector.
	f.binder.selector = KeySelectorFunc(func(ctx context.Context, keys []UserKey) (*UserKey, error) {
		t.Fatal("selector consulted for a single key")
		return nil, nil
	})

	result, err := f.binder.Sign(context.Background(), SignRequest{
		Challenge:    "sign-challenge",
		UserID:       "alice",
		CustomClaims: map[string]any{"deviceName": "office phone"},
	})
	require.NoError(t, err)
	assert.Equal(t, key.ID, result.Key.ID)

	signer, err := f.keyStore.Signer(key.ID)
	require.NoError(t, err)
	token, err := jwt.NewVerifier().Verify(result.JWS, signer.Public())
	require.NoError(t, err)

	claims := token.Claims.(gojwt.MapClaims)
	assert.Equal(t, "sign-challenge", claims["challenge"])
	assert.Equal(t, "office phone", claims["deviceName"])
}

func TestSignWithMultipleKeysUsesSelector(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	bindKey(t, f, "alice")
	f.clock.Advance(time.Second)
	second := bindKey(t, f, "alice")

	var offered []UserKey
	f.binder.selector = KeySelectorFunc(func(ctx context.Context, keys []UserKey) (*UserKey, error) {
		offered = keys
		for i := range keys {
			if keys[i].ID == second.ID {
				return &keys[i], nil
			}
		}
		return nil, nil
	})

	result, err := f.binder.Sign(context.Background(), SignRequest{
		Challenge: "c", UserID: "alice",
	})
	require.NoError(t, err)
	assert.Len(t, offered, 2)
	assert.Equal(t, second.ID, result.Key.ID)
}

func TestSignNoSelectionAborts(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	bindKey(t, f, "alice")
	bindKey(t, f, "alice")
	payload := &Payload{}

	f.binder.selector = KeySelectorFunc(func(ctx context.Context, keys []UserKey) (*UserKey, error) {
		return nil, nil
	})

	_, err := f.binder.Sign(context.Background(), SignRequest{
		Challenge: "c", UserID: "alice", Payload: payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeAbort, bindingErr.Code)
	assert.Equal(t, "Abort", payload.ClientError())
}

func TestSignNoBoundKeys(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	payload := &Payload{}

	_, err := f.binder.Sign(context.Background(), SignRequest{
		Challenge: "c", UserID: "nobody", Payload: payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeClientNotRegistered, bindingErr.Code)
	assert.Equal(t, "ClientNotRegistered", payload.ClientError())
}

// A user-key record whose hardware key has been evicted reports
// clientNotRegistered, prompting re-registration.
func TestSignMissingHardwareKey(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	key := bindKey(t, f, "alice")
	require.NoError(t, f.keyStore.Delete(key.ID))

	_, err := f.binder.Sign(context.Background(), SignRequest{
		Challenge: "c", UserID: "alice",
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeClientNotRegistered, bindingErr.Code)
}

// Reserved-claim collisions are rejected before any verification prompt
// or signature is attempted.
func TestSignInvalidCustomClaims(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	bindKey(t, f, "alice")
	promptsBefore := f.verifier.calls
	payload := &Payload{}

	for _, reserved := range []string{"sub", "exp", "iat", "challenge", "platform"} {
		_, err := f.binder.Sign(context.Background(), SignRequest{
			Challenge:    "c",
			UserID:       "alice",
			CustomClaims: map[string]any{reserved: "boom"},
			Payload:      payload,
		})

		var bindingErr *BindingError
		require.ErrorAs(t, err, &bindingErr)
		assert.Equal(t, CodeInvalidCustomClaims, bindingErr.Code)
		assert.Equal(t, "InvalidCustomClaims", payload.ClientError())
	}
	assert.Equal(t, promptsBefore, f.verifier.calls)
}

// Sign timeouts never delete the bound key: it predates the operation.
func TestSignTimeoutKeepsKey(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	key := bindKey(t, f, "alice")
	f.verifier.advance = 2 * time.Minute
	payload := &Payload{}

	_, err := f.binder.Sign(context.Background(), SignRequest{
		Challenge: "c", UserID: "alice", Timeout: time.Minute, Payload: payload,
	})

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, CodeTimeout, bindingErr.Code)
	assert.Equal(t, "Timeout", payload.ClientError())

	keys, repoErr := f.repo.LoadByUserID("alice")
	require.NoError(t, repoErr)
	assert.Len(t, keys, 1)
	exists, ksErr := f.keyStore.Exists(key.ID)
	require.NoError(t, ksErr)
	assert.True(t, exists)
}

func TestUnbind(t *testing.T) {
	f := newBinderFixture(t, Environment{BiometryAvailable: true})
	first := bindKey(t, f, "alice")
	second := bindKey(t, f, "alice")
	other := bindKey(t, f, "bob")

	require.NoError(t, f.binder.Unbind("alice"))

	keys, err := f.repo.LoadByUserID("alice")
	require.NoError(t, err)
	assert.Empty(t, keys)
	for _, id := range []string{first.ID, second.ID} {
		exists, err := f.keyStore.Exists(id)
		require.NoError(t, err)
		assert.False(t, exists)
	}

	// Other users' keys survive.
	keys, err = f.repo.LoadByUserID("bob")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	exists, err := f.keyStore.Exists(other.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBindingErrorMarkers(t *testing.T) {
	tests := []struct {
		code   Code
		marker string
	}{
		{CodeUnsupported, "Unsupported"},
		{CodeTimeout, "Timeout"},
		{CodeAbort, "Abort"},
		{CodeInvalidCustomClaims, "InvalidCustomClaims"},
		{CodeClientNotRegistered, "ClientNotRegistered"},
		{CodeUnknown, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := &BindingError{Code: tt.code, Message: "m"}
			assert.Equal(t, tt.marker, err.Marker())
		})
	}
}

func TestFirstKeySelector(t *testing.T) {
	base := time.Now()
	keys := []UserKey{
		{ID: "b", CreatedAt: base.Add(time.Hour)},
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(2 * time.Hour)},
	}

	selected, err := FirstKeySelector().SelectKey(context.Background(), keys)
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "a", selected.ID)

	selected, err = FirstKeySelector().SelectKey(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, selected)
}
