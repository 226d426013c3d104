// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package jwt signs and verifies the JWS assertions the device-binding
// pipeline produces. The signing algorithm is derived from the key type;
// device-bound keys are ECDSA P-256, so ES256 is the common case.
package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm represents supported JWS signing algorithms
type Algorithm string

const (
	RS256 Algorithm = "RS256" // RSASSA-PKCS1-v1_5 using SHA-256
	ES256 Algorithm = "ES256" // ECDSA using P-256 and SHA-256
	ES384 Algorithm = "ES384" // ECDSA using P-384 and SHA-384
	ES512 Algorithm = "ES512" // ECDSA using P-521 and SHA-512
	EdDSA Algorithm = "EdDSA" // EdDSA signature algorithms
)

// Signer signs JWS tokens using cryptographic keys
type Signer struct{}

// NewSigner creates a new JWS signer
func NewSigner() *Signer {
	return &Signer{}
}

// Sign creates and signs a JWS with the given private key and claims.
// The signing algorithm is automatically determined from the key type.
func (s *Signer) Sign(key crypto.PrivateKey, claims jwt.Claims) (string, error) {
	return s.SignWithKID(key, claims, "")
}

// SignWithKID creates and signs a JWS carrying a Key ID header. The kid
// identifies which bound key produced the token so the server can select
// the matching verification key.
func (s *Signer) SignWithKID(key crypto.PrivateKey, claims jwt.Claims, kid string) (string, error) {
	alg, err := signingMethodFromKey(key)
	if err != nil {
		return "", err
	}

	method := jwt.GetSigningMethod(string(alg))
	if method == nil {
		return "", fmt.Errorf("unsupported algorithm: %s", alg)
	}

	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}

	return token.SignedString(key)
}

// Verifier verifies JWS tokens
type Verifier struct{}

// NewVerifier creates a new JWS verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify parses and verifies a JWS token against the given public key.
func (v *Verifier) Verify(tokenString string, publicKey crypto.PublicKey) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return token, nil
}

// signingMethodFromKey determines the JWS algorithm from the key type.
func signingMethodFromKey(key crypto.PrivateKey) (Algorithm, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return RS256, nil
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return ES256, nil
		case elliptic.P384():
			return ES384, nil
		case elliptic.P521():
			return ES512, nil
		default:
			return "", fmt.Errorf("unsupported ECDSA curve: %s", k.Curve.Params().Name)
		}
	case ed25519.PrivateKey:
		return EdDSA, nil
	case crypto.Signer:
		// Hardware-backed keys expose only the signer interface.
		return signingMethodFromPublic(k.Public())
	default:
		return "", fmt.Errorf("unsupported key type: %T", key)
	}
}

func signingMethodFromPublic(pub crypto.PublicKey) (Algorithm, error) {
	switch p := pub.(type) {
	case *rsa.PublicKey:
		return RS256, nil
	case *ecdsa.PublicKey:
		switch p.Curve {
		case elliptic.P256():
			return ES256, nil
		case elliptic.P384():
			return ES384, nil
		case elliptic.P521():
			return ES512, nil
		default:
			return "", fmt.Errorf("unsupported ECDSA curve: %s", p.Curve.Params().Name)
		}
	case ed25519.PublicKey:
		return EdDSA, nil
	default:
		return "", fmt.Errorf("unsupported public key type: %T", pub)
	}
}
