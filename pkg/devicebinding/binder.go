// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/logging"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/webauthn"
)

// DefaultTimeout is the wall-clock budget for interactive bind and sign
// operations when the caller does not set one.
const DefaultTimeout = 60 * time.Second

// deviceIDKey is the storage key of the stable per-installation device
// identifier.
const deviceIDKey = "device-id"

// bindState tracks the bind operation through its lifecycle for logging.
type bindState string

const (
	stateIdle         bindState = "Idle"
	stateKeyGenerated bindState = "KeyGenerated"
	stateSigned       bindState = "Signed"
	stateSuccess      bindState = "Success"
	stateTimedOut     bindState = "TimedOut"
	stateSignFailed   bindState = "SignFailed"
)

// BinderParams contains dependencies for creating a Binder.
type BinderParams struct {
	// Repository persists UserKey records (required).
	Repository UserKeyRepository

	// KeyStore holds the bound hardware key pairs (required).
	KeyStore webauthn.KeyStore

	// Storage persists the per-installation device identifier (required).
	Storage storage.Backend

	// Environment describes the device capabilities.
	Environment Environment

	// Verifier presents user-verification prompts. Required for
	// biometric and PIN authentication types.
	Verifier UserVerifier

	// Selector disambiguates between multiple bound keys. Defaults to
	// FirstKeySelector.
	Selector KeySelector

	// Logger is optional.
	Logger *logging.Logger

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Binder orchestrates the device-binding bind and sign operations.
//
// Concurrent operations against the same key label are not serialized
// here; the platform key store serializes at the OS level and storage
// races resolve last-writer-wins.
type Binder struct {
	repo     UserKeyRepository
	keyStore webauthn.KeyStore
	store    storage.Backend
	env      Environment
	verifier UserVerifier
	selector KeySelector
	log      *logging.Logger
	now      func() time.Time
}

// NewBinder creates a Binder with the provided dependencies.
func NewBinder(params BinderParams) (*Binder, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("devicebinding: repository is required")
	}
	if params.KeyStore == nil {
		return nil, fmt.Errorf("devicebinding: key store is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("devicebinding: storage is required")
	}
	if params.Selector == nil {
		params.Selector = FirstKeySelector()
	}
	if params.Logger == nil {
		params.Logger = logging.Discard()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &Binder{
		repo:     params.Repository,
		keyStore: params.KeyStore,
		store:    params.Storage,
		env:      params.Environment,
		verifier: params.Verifier,
		selector: params.Selector,
		log:      params.Logger,
		now:      params.Clock,
	}, nil
}

// BindRequest describes one bind operation.
type BindRequest struct {
	// Challenge is the relying-party challenge to sign.
	Challenge string

	// UserID identifies the user the key is bound for.
	UserID string

	// UserName is the user's display name.
	UserName string

	// AuthType selects the user-verification gate.
	AuthType AuthType

	// Timeout is the wall-clock budget. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Prompt carries the verification dialog strings.
	Prompt Prompt

	// Payload receives the client-error marker on failure. Optional.
	Payload ClientErrorWriter
}

// BindResult is the outcome of a successful bind.
type BindResult struct {
	// JWS is the signed challenge response.
	JWS string

	// DeviceID is the stable per-installation device identifier.
	DeviceID string

	// Key is the persisted user-key record.
	Key UserKey
}

// Bind generates a device-bound key for the user and signs the challenge
// with it. On any failure the freshly generated key material is deleted so
// no orphaned hardware keys remain, and a typed failure is reported after
// the client-error marker is written to the outgoing payload.
//
// The verification prompt may block for up to the full timeout; the
// timeout itself is enforced after the blocking calls return, since the
// platform exposes no mid-flight cancellation.
func (b *Binder) Bind(ctx context.Context, req BindRequest) (*BindResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	auth, ok := b.resolveAuthenticator(req.AuthType)
	if !ok || !auth.IsSupported(b.env) {
		return nil, b.fail(req.Payload, CodeUnsupported,
			fmt.Sprintf("authentication type %s is not supported on this device", req.AuthType), nil)
	}

	b.transition(stateIdle)
	start := b.now()

	alias := uuid.NewString()
	signer, err := b.keyStore.Generate(alias)
	if err != nil {
		return nil, b.fail(req.Payload, CodeUnknown, "key pair generation failed", err)
	}
	b.transition(stateKeyGenerated)

	kid, err := keyThumbprint(signer.Public())
	if err != nil {
		b.rollback(UserKey{ID: alias})
		return nil, b.fail(req.Payload, CodeUnknown, "key identifier derivation failed", err)
	}

	userKey := UserKey{
		ID:        alias,
		UserID:    req.UserID,
		UserName:  req.UserName,
		KID:       kid,
		AuthType:  req.AuthType,
		CreatedAt: start,
	}

	// Persist before signing so a signing failure can be attributed to
	// this key and rolled back.
	if err := b.repo.Save(userKey); err != nil {
		b.rollback(userKey)
		return nil, b.fail(req.Payload, CodeUnknown, "user key persistence failed", err)
	}

	if result := auth.Authenticate(ctx, req.Prompt); result.Outcome != AuthSuccess {
		b.transition(stateSignFailed)
		b.rollback(userKey)
		return nil, b.failAuth(req.Payload, result)
	}

	expiry := b.now().Add(timeout)
	token, err := signJWS(signer, kid, bindingClaims(req.UserID, req.Challenge, b.now(), expiry, nil))
	if err != nil {
		b.transition(stateSignFailed)
		b.rollback(userKey)
		return nil, b.fail(req.Payload, CodeUnknown, "challenge signing failed", err)
	}
	b.transition(stateSigned)

	// The signature may have succeeded after the wall-clock SLA expired,
	// e.g. a biometric prompt left on screen. Discard the key and report
	// timeout anyway.
	if elapsed := b.now().Sub(start); elapsed > timeout {
		b.transition(stateTimedOut)
		b.rollback(userKey)
		return nil, b.fail(req.Payload, CodeTimeout,
			fmt.Sprintf("bind exceeded %s budget (took %s)", timeout, elapsed), nil)
	}

	deviceID, err := b.deviceID()
	if err != nil {
		b.rollback(userKey)
		return nil, b.fail(req.Payload, CodeUnknown, "device identifier unavailable", err)
	}

	b.transition(stateSuccess)
	b.log.Debug("bind complete", "userId", req.UserID, "kid", kid)
	return &BindResult{
		JWS:      token,
		DeviceID: deviceID,
		Key:      userKey,
	}, nil
}

// SignRequest describes one verification-only sign operation.
type SignRequest struct {
	// Challenge is the relying-party challenge to sign.
	Challenge string

	// UserID identifies whose bound keys may sign.
	UserID string

	// CustomClaims are merged into the claim set after validation.
	CustomClaims map[string]any

	// Timeout is the wall-clock budget. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Prompt overrides the verification dialog strings.
	Prompt Prompt

	// Payload receives the client-error marker on failure. Optional.
	Payload ClientErrorWriter
}

// SignResult is the outcome of a successful sign.
type SignResult struct {
	// JWS is the signed challenge response.
	JWS string

	// Key is the user key that signed.
	Key UserKey
}

// Sign signs a challenge with an existing bound key. No key material is
// created, and none is deleted on timeout: the key predates this operation
// and is not owned by it.
func (b *Binder) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := b.now()

	keys, err := b.repo.LoadByUserID(req.UserID)
	if err != nil {
		return nil, b.fail(req.Payload, CodeUnknown, "user key lookup failed", err)
	}

	var userKey UserKey
	switch len(keys) {
	case 0:
		return nil, b.fail(req.Payload, CodeClientNotRegistered,
			fmt.Sprintf("no bound keys for user %s", req.UserID), nil)
	case 1:
		userKey = keys[0]
	default:
		selected, err := b.selector.SelectKey(ctx, keys)
		if err != nil {
			return nil, b.fail(req.Payload, CodeAbort, "key selection failed", err)
		}
		if selected == nil {
			// Explicit "no selection" response from the strategy.
			return nil, b.fail(req.Payload, CodeAbort, "no key selected", nil)
		}
		userKey = *selected
	}

	auth, ok := b.resolveAuthenticator(userKey.AuthType)
	if !ok || !auth.IsSupported(b.env) {
		return nil, b.fail(req.Payload, CodeUnsupported,
			fmt.Sprintf("authentication type %s is not supported on this device", userKey.AuthType), nil)
	}

	// Reject invalid claims before any signature is attempted.
	if err := auth.ValidateCustomClaims(req.CustomClaims); err != nil {
		return nil, b.fail(req.Payload, CodeInvalidCustomClaims, "custom claim validation failed", err)
	}

	signer, err := b.keyStore.Signer(userKey.ID)
	if err != nil {
		if errors.Is(err, webauthn.ErrKeyNotFound) {
			return nil, b.fail(req.Payload, CodeClientNotRegistered,
				"bound key missing from key store", err)
		}
		return nil, b.fail(req.Payload, CodeUnknown, "key store access failed", err)
	}

	if result := auth.Authenticate(ctx, req.Prompt); result.Outcome != AuthSuccess {
		return nil, b.failAuth(req.Payload, result)
	}

	expiry := b.now().Add(timeout)
	token, err := signJWS(signer, userKey.KID,
		bindingClaims(req.UserID, req.Challenge, b.now(), expiry, req.CustomClaims))
	if err != nil {
		return nil, b.fail(req.Payload, CodeUnknown, "challenge signing failed", err)
	}

	if elapsed := b.now().Sub(start); elapsed > timeout {
		return nil, b.fail(req.Payload, CodeTimeout,
			fmt.Sprintf("sign exceeded %s budget (took %s)", timeout, elapsed), nil)
	}

	return &SignResult{
		JWS: token,
		Key: userKey,
	}, nil
}

// Unbind deletes every bound key for the user, both the repository records
// and the hardware key pairs.
func (b *Binder) Unbind(userID string) error {
	keys, err := b.repo.LoadByUserID(userID)
	if err != nil {
		return fmt.Errorf("devicebinding: load keys for unbind: %w", err)
	}
	for _, key := range keys {
		b.rollback(key)
	}
	return nil
}

// transition records a bind state change for debugging.
func (b *Binder) transition(state bindState) {
	b.log.Debug("bind state", "state", string(state))
}

// resolveAuthenticator maps an AuthType to its implementation. Registered
// extensions override the built-ins for the same type.
func (b *Binder) resolveAuthenticator(authType AuthType) (DeviceAuthenticator, bool) {
	if ext, ok := extensionAuthenticator(authType); ok {
		return ext, true
	}

	switch authType {
	case AuthTypeBiometricOnly:
		return NewBiometricOnly(b.verifier), true
	case AuthTypeBiometricAllowFallback:
		return NewBiometricAllowFallback(b.verifier), true
	case AuthTypeApplicationPin:
		return NewApplicationPin(b.verifier), true
	case AuthTypeNone:
		return NewNone(), true
	default:
		return nil, false
	}
}

// rollback deletes a key's record and hardware material, best effort.
func (b *Binder) rollback(key UserKey) {
	if err := b.repo.Delete(key); err != nil {
		b.log.Warn("failed to delete user key record during rollback", "id", key.ID)
	}
	if err := b.keyStore.Delete(key.ID); err != nil {
		b.log.Warn("failed to delete hardware key during rollback", "id", key.ID)
	}
}

// fail writes the client-error marker and builds the typed failure.
func (b *Binder) fail(w ClientErrorWriter, code Code, msg string, err error) error {
	bindingErr := &BindingError{Code: code, Message: msg, Err: err}
	if w != nil {
		w.SetClientError(bindingErr.Marker())
	}
	b.log.Debug("device binding failed", "code", string(code), "message", msg)
	return bindingErr
}

// failAuth maps a verification result to the failure taxonomy: local-auth
// failure and user cancellation map to abort, platform errors pass through
// with their status code.
func (b *Binder) failAuth(w ClientErrorWriter, result AuthResult) error {
	if result.Outcome == AuthPlatformError {
		return b.fail(w, CodeUnknown,
			fmt.Sprintf("platform verification failed with status %d: %s", result.Code, result.Message), nil)
	}
	return b.fail(w, CodeAbort, "user verification failed or was cancelled", nil)
}

// deviceID returns the stable per-installation identifier, creating and
// persisting it on first use.
func (b *Binder) deviceID() (string, error) {
	scope := storage.NewServiceScope(b.store, storage.ServiceName(userKeyService, "device"))

	value, err := scope.Get(deviceIDKey)
	if err == nil {
		return string(value), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	id := uuid.NewString()
	if err := scope.Put(deviceIDKey, []byte(id), nil); err != nil {
		return "", err
	}
	return id, nil
}
