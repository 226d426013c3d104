// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// PublicKeyCredentialSource represents one WebAuthn credential bound to a
// relying party. The pair (RPID, ID) is unique within the credential store.
type PublicKeyCredentialSource struct {
	// ID is the opaque credential identifier assigned at registration.
	ID []byte

	// RPID is the relying-party domain the credential is scoped to.
	RPID string

	// UserHandle is the opaque user identifier. A non-empty handle marks
	// the credential as client-side discoverable (a resident key).
	UserHandle []byte

	// SignCount is the monotonic signature counter, starting at 0.
	SignCount uint32

	// Algorithm is the COSE algorithm identifier of the credential key.
	Algorithm webauthncose.COSEAlgorithmIdentifier

	// OtherUI carries display metadata for credential pickers.
	OtherUI string
}

// KeyLabel derives the hardware key-store lookup tag for the credential.
// The label is deterministic: "<rpId>/<hex(id)>".
func (s *PublicKeyCredentialSource) KeyLabel() string {
	return s.RPID + "/" + hex.EncodeToString(s.ID)
}

// IsDiscoverable reports whether the credential carries a user handle and
// is therefore enumerable without a prior credential-id hint.
func (s *PublicKeyCredentialSource) IsDiscoverable() bool {
	return len(s.UserHandle) > 0
}

// Equal reports whether two credential sources are identical field by field.
func (s *PublicKeyCredentialSource) Equal(other *PublicKeyCredentialSource) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(s.ID, other.ID) &&
		s.RPID == other.RPID &&
		bytes.Equal(s.UserHandle, other.UserHandle) &&
		s.SignCount == other.SignCount &&
		s.Algorithm == other.Algorithm &&
		s.OtherUI == other.OtherUI
}

// credentialRecord is the CBOR wire form of a credential source: a map
// keyed by fixed string names. userHandle is omitted when absent. Pointer
// fields let decode distinguish a missing required field from a zero value.
type credentialRecord struct {
	ID         []byte  `cbor:"id"`
	RPID       *string `cbor:"rpId"`
	UserHandle []byte  `cbor:"userHandle,omitempty"`
	Alg        *int64  `cbor:"alg"`
	SignCount  *uint32 `cbor:"signCount"`
	OtherUI    *string `cbor:"otherUI"`
}

// Encode serializes the credential source to canonical CBOR.
func (s *PublicKeyCredentialSource) Encode() ([]byte, error) {
	alg := int64(s.Algorithm)
	rec := credentialRecord{
		ID:         s.ID,
		RPID:       &s.RPID,
		UserHandle: s.UserHandle,
		Alg:        &alg,
		SignCount:  &s.SignCount,
		OtherUI:    &s.OtherUI,
	}
	data, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode credential source: %w", err)
	}
	return data, nil
}

// DecodeCredentialSource parses a CBOR credential record. Decode fails if
// any required field is absent or type-mismatched; only the optional
// userHandle may be missing.
func DecodeCredentialSource(data []byte) (*PublicKeyCredentialSource, error) {
	var rec credentialRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode credential source: %w", err)
	}
	if rec.ID == nil || rec.RPID == nil || rec.Alg == nil ||
		rec.SignCount == nil || rec.OtherUI == nil {
		return nil, fmt.Errorf("decode credential source: missing required field")
	}
	return &PublicKeyCredentialSource{
		ID:         rec.ID,
		RPID:       *rec.RPID,
		UserHandle: rec.UserHandle,
		SignCount:  *rec.SignCount,
		Algorithm:  webauthncose.COSEAlgorithmIdentifier(*rec.Alg),
		OtherUI:    *rec.OtherUI,
	}, nil
}
