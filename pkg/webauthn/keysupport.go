// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/ldclabs/cose/iana"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/encoding"
)

// KeySupport is the algorithm capability behind credential registration
// and assertion signing. One implementation exists per supported COSE
// algorithm.
type KeySupport interface {
	// Algorithm returns the COSE algorithm identifier this support
	// implements.
	Algorithm() webauthncose.COSEAlgorithmIdentifier

	// CreateKeyPair generates a new hardware key pair tagged by label and
	// returns its public COSE key.
	CreateKeyPair(label string) (encoding.COSEKey, error)

	// Sign signs the exact byte sequence given with the key pair tagged
	// by label. No hashing is applied inside this layer; callers must
	// pre-hash if the protocol requires it.
	Sign(data []byte, label string) ([]byte, error)
}

// ChooseKeySupport iterates the relying party's algorithm preference list
// in order and returns the first supported implementation. Returns
// ErrUnsupportedAlgorithm if no requested algorithm is supported; callers
// must treat that as a hard registration failure.
func ChooseKeySupport(store KeyStore, requested []protocol.CredentialParameter) (KeySupport, error) {
	for _, param := range requested {
		if param.Type != "" && param.Type != protocol.PublicKeyCredentialType {
			continue
		}
		if param.Algorithm == webauthncose.AlgES256 {
			return &ES256KeySupport{store: store}, nil
		}
	}
	return nil, ErrUnsupportedAlgorithm
}

// pkixP256Length is the exact byte length of a DER-encoded
// SubjectPublicKeyInfo for an uncompressed P-256 public key: a 26-byte
// algorithm header, the 0x04 uncompressed-point prefix and two 32-byte
// coordinates. Any other length means the platform key API contract
// drifted and the key pair is unusable.
const (
	pkixP256Length     = 91
	pkixP256PointStart = 26
)

// ES256KeySupport implements KeySupport for ECDSA over P-256 with SHA-256.
type ES256KeySupport struct {
	store KeyStore
}

// Algorithm returns the ES256 COSE algorithm identifier.
func (s *ES256KeySupport) Algorithm() webauthncose.COSEAlgorithmIdentifier {
	return webauthncose.AlgES256
}

// CreateKeyPair generates a new P-256 key pair tagged by label, validates
// the public key's external representation and returns its COSE form.
func (s *ES256KeySupport) CreateKeyPair(label string) (encoding.COSEKey, error) {
	signer, err := s.store.Generate(label)
	if err != nil {
		return nil, wrapError("create key pair", fmt.Errorf("%w: %v", ErrKeyPairGeneration, err))
	}

	coseKey, err := s.publicCOSEKey(signer.Public())
	if err != nil {
		// Never leave an unusable key pair behind.
		_ = s.store.Delete(label)
		return nil, wrapError("create key pair", err)
	}
	return coseKey, nil
}

// publicCOSEKey converts a public key to COSE form via its DER external
// representation, validating the exact expected length before slicing the
// coordinates.
func (s *ES256KeySupport) publicCOSEKey(pub crypto.PublicKey) (encoding.COSEKey, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(der) != pkixP256Length {
		return nil, fmt.Errorf("%w: external representation is %d bytes, want %d",
			ErrInvalidPublicKey, len(der), pkixP256Length)
	}
	if der[pkixP256PointStart] != 0x04 {
		return nil, fmt.Errorf("%w: public key point is not uncompressed", ErrInvalidPublicKey)
	}

	x := der[pkixP256PointStart+1 : pkixP256PointStart+1+encoding.EC2CoordinateSize]
	y := der[pkixP256PointStart+1+encoding.EC2CoordinateSize:]

	return encoding.COSEKeyEC2{
		Alg: int64(webauthncose.AlgES256),
		Crv: int64(iana.EllipticCurveP_256),
		X:   x,
		Y:   y,
	}, nil
}

// Sign signs data with the key pair tagged by label and returns the DER
// signature bytes. Returns ErrKeyNotFound if no key exists for the label
// and ErrSigningFailed on any hardware or authentication failure.
func (s *ES256KeySupport) Sign(data []byte, label string) ([]byte, error) {
	signer, err := s.store.Signer(label)
	if err != nil {
		return nil, wrapError("sign", err)
	}

	sig, err := signer.Sign(rand.Reader, data, crypto.SHA256)
	if err != nil {
		return nil, wrapError("sign", fmt.Errorf("%w: %v", ErrSigningFailed, err))
	}
	return sig, nil
}
