// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"crypto"
	"encoding/json"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/cryptosigner"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/encoding"
)

// platformClaim is the value of the "platform" claim in issued JWS.
const platformClaim = "ios"

// keyThumbprint computes the RFC 7638 JWK thumbprint of a public key,
// base64url-encoded. Bound keys carry it as their kid so the server can
// select the matching verification key.
func keyThumbprint(pub crypto.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("devicebinding: compute key thumbprint: %w", err)
	}
	return encoding.Base64URL(tp), nil
}

// signJWS issues the compact JWS carrying the challenge response. The
// signer may be hardware-backed; it is wrapped as an opaque JOSE signer so
// private key material never leaves the key store.
func signJWS(signer crypto.Signer, kid string, claims map[string]any) (string, error) {
	opaque := cryptosigner.Opaque(signer)
	joseSigner, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.ES256,
		Key: jose.JSONWebKey{
			Key:   opaque,
			KeyID: kid,
		},
	}, (&jose.SignerOptions{}).WithType("JWS"))
	if err != nil {
		return "", fmt.Errorf("devicebinding: create JWS signer: %w", err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("devicebinding: marshal claims: %w", err)
	}

	sig, err := joseSigner.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("devicebinding: sign JWS: %w", err)
	}
	return sig.CompactSerialize()
}

// bindingClaims assembles the claim set for a challenge response: the
// registered claims owned by the pipeline merged with any caller-supplied
// custom claims (validated beforehand).
func bindingClaims(userID, challenge string, issuedAt time.Time, expiry time.Time,
	custom map[string]any) map[string]any {

	claims := make(map[string]any, len(custom)+5)
	for name, value := range custom {
		claims[name] = value
	}
	claims["sub"] = userID
	claims["challenge"] = challenge
	claims["platform"] = platformClaim
	claims["iat"] = issuedAt.Unix()
	claims["exp"] = expiry.Unix()
	return claims
}
