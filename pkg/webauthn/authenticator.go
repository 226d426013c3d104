// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto/rand"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/encoding"
	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/logging"
)

// credentialIDSize is the byte length of generated credential identifiers.
const credentialIDSize = 32

// Authenticator ties key support and the credential store together into
// the authenticator-side registration and assertion operations.
type Authenticator struct {
	keyStore KeyStore
	store    *CredentialStore
	log      *logging.Logger
}

// NewAuthenticator creates an authenticator over the given key store and
// credential store.
func NewAuthenticator(keyStore KeyStore, store *CredentialStore, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Discard()
	}
	return &Authenticator{
		keyStore: keyStore,
		store:    store,
		log:      log,
	}
}

// MakeCredentialResult is the outcome of a successful registration.
type MakeCredentialResult struct {
	// Source is the persisted credential record.
	Source *PublicKeyCredentialSource

	// PublicKey is the COSE public key to return to the relying party.
	PublicKey encoding.COSEKey

	// PublicKeyBytes is the CBOR encoding of PublicKey.
	PublicKeyBytes []byte
}

// MakeCredential registers a new credential for the relying party:
// negotiates an algorithm from the requested preference list, generates a
// hardware key pair and persists the credential source. A non-empty
// userHandle makes the credential discoverable.
func (a *Authenticator) MakeCredential(rpID string, userHandle []byte, otherUI string,
	requested []protocol.CredentialParameter) (*MakeCredentialResult, error) {

	support, err := ChooseKeySupport(a.keyStore, requested)
	if err != nil {
		return nil, wrapError("make credential", err)
	}

	id := make([]byte, credentialIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, wrapError("make credential", fmt.Errorf("generate credential id: %w", err))
	}

	source := &PublicKeyCredentialSource{
		ID:         id,
		RPID:       rpID,
		UserHandle: userHandle,
		SignCount:  0,
		Algorithm:  support.Algorithm(),
		OtherUI:    otherUI,
	}

	coseKey, err := support.CreateKeyPair(source.KeyLabel())
	if err != nil {
		return nil, err
	}

	if err := a.store.Save(source); err != nil {
		// Roll back the orphaned hardware key.
		_ = a.keyStore.Delete(source.KeyLabel())
		return nil, err
	}

	keyBytes, err := encoding.EncodeCOSEKey(coseKey)
	if err != nil {
		return nil, wrapError("make credential", err)
	}

	a.log.Debug("registered credential", "rpId", rpID, "keyLabel", source.KeyLabel())
	return &MakeCredentialResult{
		Source:         source,
		PublicKey:      coseKey,
		PublicKeyBytes: keyBytes,
	}, nil
}

// Assertion is the outcome of a successful GetAssertion call.
type Assertion struct {
	// Source is the credential record, with its bumped sign count.
	Source *PublicKeyCredentialSource

	// Signature is the raw signature over the caller-supplied data.
	Signature []byte
}

// GetAssertion signs data with the credential identified by
// (rpID, credentialID) and bumps its sign counter. The data is signed
// exactly as given; callers pre-hash per the WebAuthn signature scheme.
func (a *Authenticator) GetAssertion(rpID string, credentialID, data []byte) (*Assertion, error) {
	source, ok := a.store.Lookup(rpID, credentialID)
	if !ok {
		return nil, wrapError("get assertion", ErrCredentialNotFound)
	}

	support, err := ChooseKeySupport(a.keyStore, []protocol.CredentialParameter{
		{Type: protocol.PublicKeyCredentialType, Algorithm: source.Algorithm},
	})
	if err != nil {
		return nil, wrapError("get assertion", err)
	}
	sig, err := support.Sign(data, source.KeyLabel())
	if err != nil {
		return nil, err
	}

	source.SignCount++
	if err := a.store.Save(source); err != nil {
		return nil, err
	}

	return &Assertion{
		Source:    source,
		Signature: sig,
	}, nil
}

// DeleteCredential removes a credential record and its hardware key pair.
func (a *Authenticator) DeleteCredential(source *PublicKeyCredentialSource) error {
	if err := a.store.Delete(source); err != nil {
		return err
	}
	return wrapError("delete credential", a.keyStore.Delete(source.KeyLabel()))
}
