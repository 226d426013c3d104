// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package appattest orchestrates platform app-integrity attestation and
// per-request assertion against a relying-party challenge. Attestation
// proves the key was generated in secure hardware at creation time;
// assertions prove possession of that key afterward.
package appattest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/logging"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
)

// serviceID is both the keychain service scope and the fixed storage key
// of the attestation key marker. The marker's presence alone signals that
// first-run attestation already happened for this installation.
const serviceID = "com.forgerock.ios.appattest"

// AttestationService abstracts the platform app-attestation capability
// (DCAppAttestService equivalent). Failures carry *PlatformError so the
// orchestration layer can map them through the fixed code table.
type AttestationService interface {
	// IsSupported reports whether attestation is available on this device.
	IsSupported() bool

	// GenerateKey creates a new attestation key pair and returns its
	// key identifier.
	GenerateKey(ctx context.Context) (string, error)

	// Attest certifies the key against the server-challenge hash and
	// returns the attestation statement.
	Attest(ctx context.Context, keyID string, challengeHash []byte) ([]byte, error)

	// GenerateAssertion signs the client-data hash with the attested key
	// and returns the assertion statement.
	GenerateAssertion(ctx context.Context, keyID string, clientDataHash []byte) ([]byte, error)
}

// ClientData is the canonical structure hashed and asserted over.
type ClientData struct {
	Challenge string `json:"challenge"`
	BundleID  string `json:"bundleId"`
	Payload   string `json:"payload,omitempty"`
}

// IntegrityToken is the outgoing payload of a RequestIntegrityToken call.
// It is never persisted; only the key identifier survives via the
// keychain marker.
type IntegrityToken struct {
	// AttestKey is the base64 attestation statement, present on first run.
	AttestKey string `json:"attestKey,omitempty"`

	// AssertKey is the base64 assertion statement, absent on first run.
	AssertKey string `json:"assertKey,omitempty"`

	// KeyIdentifier names the platform attestation key.
	KeyIdentifier string `json:"keyIdentifier"`

	// ClientDataHash is the base64 client-data JSON.
	ClientDataHash string `json:"clientDataHash"`
}

// Attestor orchestrates the attestation flow against the platform service.
type Attestor struct {
	service  AttestationService
	markers  *storage.ServiceScope
	bundleID string
	log      *logging.Logger
}

// NewAttestor creates an attestor for the application identified by
// bundleID. The backend persists the attestation key marker.
func NewAttestor(service AttestationService, backend storage.Backend, bundleID string,
	log *logging.Logger) *Attestor {

	if log == nil {
		log = logging.Discard()
	}
	return &Attestor{
		service:  service,
		markers:  storage.NewServiceScope(backend, serviceID),
		bundleID: bundleID,
		log:      log,
	}
}

// RequestIntegrityToken produces the attestation or assertion material for
// a relying-party challenge.
//
// First run (no prior attestation key): a new key is generated and
// attested against the challenge hash; no assertion is produced until a
// second call. Steady state (marker present): generate and attest are
// skipped and only an assertion over the client-data hash is produced.
func (a *Attestor) RequestIntegrityToken(ctx context.Context, challenge, payload string) (*IntegrityToken, error) {
	if len(challenge) == 0 {
		return nil, ErrInvalidChallenge
	}
	if len(a.bundleID) == 0 {
		return nil, ErrInvalidBundleIdentifier
	}

	clientData, err := json.Marshal(ClientData{
		Challenge: challenge,
		BundleID:  a.bundleID,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientData, err)
	}

	if !a.service.IsSupported() {
		return nil, ErrFeatureUnsupported
	}

	clientDataHash := sha256.Sum256(clientData)

	keyID, attested, err := a.attestationKey(ctx)
	if err != nil {
		return nil, err
	}

	token := &IntegrityToken{
		KeyIdentifier:  keyID,
		ClientDataHash: base64.StdEncoding.EncodeToString(clientData),
	}

	if !attested {
		// First run: generate+attest, no assertion yet.
		challengeHash := sha256.Sum256([]byte(challenge))
		attestation, err := a.service.Attest(ctx, keyID, challengeHash[:])
		if err != nil {
			return nil, mapPlatformError(err)
		}
		if err := a.markers.Put(serviceID, []byte(keyID), nil); err != nil {
			return nil, fmt.Errorf("%w: persist key marker: %v", ErrUnknown, err)
		}
		token.AttestKey = base64.StdEncoding.EncodeToString(attestation)
		a.log.Debug("attestation complete", "keyIdentifier", keyID)
		return token, nil
	}

	// Steady state: assertion-only fast path.
	assertion, err := a.service.GenerateAssertion(ctx, keyID, clientDataHash[:])
	if err != nil {
		return nil, mapPlatformError(err)
	}
	token.AssertKey = base64.StdEncoding.EncodeToString(assertion)
	return token, nil
}

// attestationKey returns the installation's attestation key identifier and
// whether it was already attested. A missing marker triggers key
// generation.
func (a *Attestor) attestationKey(ctx context.Context) (string, bool, error) {
	marker, err := a.markers.Get(serviceID)
	if err == nil && len(marker) > 0 {
		return string(marker), true, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", false, fmt.Errorf("%w: read key marker: %v", ErrUnknown, err)
	}

	keyID, err := a.service.GenerateKey(ctx)
	if err != nil {
		return "", false, mapPlatformError(err)
	}
	return keyID, false, nil
}

// Reset discards the attestation key marker, forcing the next call to
// re-run first-run attestation.
func (a *Attestor) Reset() error {
	err := a.markers.Delete(serviceID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
