// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package encoding

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/cose/iana"
)

// COSE key field sizes. Decode rejects any key whose fields deviate from
// these fixed widths; this guards against malformed or attacker-controlled
// CBOR producing partially populated keys.
const (
	// EC2CoordinateSize is the byte length of a P-256 coordinate.
	EC2CoordinateSize = 32

	// RSAModulusSize is the byte length of a 2048-bit RSA modulus.
	RSAModulusSize = 256

	// RSAExponentSize is the byte length of the RSA public exponent.
	RSAExponentSize = 3
)

var (
	// ErrMalformedCOSEKey is returned when a COSE key record is missing a
	// required field or a field has the wrong fixed length.
	ErrMalformedCOSEKey = errors.New("encoding: malformed COSE key")

	// ErrUnsupportedKeyType is returned when the kty discriminant is
	// neither EC2 nor RSA.
	ErrUnsupportedKeyType = errors.New("encoding: unsupported COSE key type")
)

// ctap2Enc is the canonical CTAP2 encoding mode used for all COSE and
// credential CBOR emitted by the SDK.
var ctap2Enc cbor.EncMode

func init() {
	em, err := cbor.CTAP2EncOptions().EncMode()
	if err != nil {
		panic("encoding: failed to create CTAP2 encode mode: " + err.Error())
	}
	ctap2Enc = em
}

// COSEKey is the public-key representation sent to the relying party,
// per RFC 8152 section 7. Two variants exist: EC2 and RSA.
type COSEKey interface {
	// Algorithm returns the COSE algorithm identifier of the key.
	Algorithm() int64

	coseKey()
}

// COSEKeyEC2 is an elliptic-curve COSE key (kty 2).
type COSEKeyEC2 struct {
	Alg int64
	Crv int64
	X   []byte // EC2CoordinateSize bytes
	Y   []byte // EC2CoordinateSize bytes
}

// Algorithm returns the COSE algorithm identifier.
func (k COSEKeyEC2) Algorithm() int64 { return k.Alg }

func (COSEKeyEC2) coseKey() {}

// COSEKeyRSA is an RSA COSE key (kty 3).
type COSEKeyRSA struct {
	Alg int64
	N   []byte // RSAModulusSize bytes
	E   []byte // RSAExponentSize bytes
}

// Algorithm returns the COSE algorithm identifier.
func (k COSEKeyRSA) Algorithm() int64 { return k.Alg }

func (COSEKeyRSA) coseKey() {}

// Wire records. COSE keys are integer-keyed CBOR maps:
// {1: kty, 3: alg, -1: crv|n, -2: x|e, -3: y?}
type ec2KeyRecord struct {
	Kty int64  `cbor:"1,keyasint"`
	Alg int64  `cbor:"3,keyasint"`
	Crv int64  `cbor:"-1,keyasint"`
	X   []byte `cbor:"-2,keyasint"`
	Y   []byte `cbor:"-3,keyasint"`
}

type rsaKeyRecord struct {
	Kty int64  `cbor:"1,keyasint"`
	Alg int64  `cbor:"3,keyasint"`
	N   []byte `cbor:"-1,keyasint"`
	E   []byte `cbor:"-2,keyasint"`
}

type ktyProbe struct {
	Kty int64 `cbor:"1,keyasint"`
}

// EncodeCOSEKey serializes k to its canonical CBOR representation.
// Field widths are validated before encoding so a malformed key can never
// be emitted.
func EncodeCOSEKey(k COSEKey) ([]byte, error) {
	switch key := k.(type) {
	case COSEKeyEC2:
		if err := validateEC2(key); err != nil {
			return nil, err
		}
		return ctap2Enc.Marshal(ec2KeyRecord{
			Kty: int64(iana.KeyTypeEC2),
			Alg: key.Alg,
			Crv: key.Crv,
			X:   key.X,
			Y:   key.Y,
		})
	case COSEKeyRSA:
		if err := validateRSA(key); err != nil {
			return nil, err
		}
		return ctap2Enc.Marshal(rsaKeyRecord{
			Kty: int64(iana.KeyTypeRSA),
			Alg: key.Alg,
			N:   key.N,
			E:   key.E,
		})
	default:
		return nil, ErrUnsupportedKeyType
	}
}

// DecodeCOSEKey parses a CBOR COSE key record. The kty discriminant is
// validated first, then every field's presence and fixed byte length;
// any violation fails the decode as a whole.
func DecodeCOSEKey(data []byte) (COSEKey, error) {
	var probe ktyProbe
	if err := cbor.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCOSEKey, err)
	}

	switch probe.Kty {
	case int64(iana.KeyTypeEC2):
		var rec ec2KeyRecord
		if err := cbor.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCOSEKey, err)
		}
		key := COSEKeyEC2{Alg: rec.Alg, Crv: rec.Crv, X: rec.X, Y: rec.Y}
		if err := validateEC2(key); err != nil {
			return nil, err
		}
		return key, nil
	case int64(iana.KeyTypeRSA):
		var rec rsaKeyRecord
		if err := cbor.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCOSEKey, err)
		}
		key := COSEKeyRSA{Alg: rec.Alg, N: rec.N, E: rec.E}
		if err := validateRSA(key); err != nil {
			return nil, err
		}
		return key, nil
	default:
		return nil, ErrUnsupportedKeyType
	}
}

func validateEC2(k COSEKeyEC2) error {
	if k.Alg == 0 {
		return fmt.Errorf("%w: missing alg", ErrMalformedCOSEKey)
	}
	if k.Crv == 0 {
		return fmt.Errorf("%w: missing crv", ErrMalformedCOSEKey)
	}
	if len(k.X) != EC2CoordinateSize {
		return fmt.Errorf("%w: x coordinate is %d bytes, want %d",
			ErrMalformedCOSEKey, len(k.X), EC2CoordinateSize)
	}
	if len(k.Y) != EC2CoordinateSize {
		return fmt.Errorf("%w: y coordinate is %d bytes, want %d",
			ErrMalformedCOSEKey, len(k.Y), EC2CoordinateSize)
	}
	return nil
}

func validateRSA(k COSEKeyRSA) error {
	if k.Alg == 0 {
		return fmt.Errorf("%w: missing alg", ErrMalformedCOSEKey)
	}
	if len(k.N) != RSAModulusSize {
		return fmt.Errorf("%w: modulus is %d bytes, want %d",
			ErrMalformedCOSEKey, len(k.N), RSAModulusSize)
	}
	if len(k.E) != RSAExponentSize {
		return fmt.Errorf("%w: exponent is %d bytes, want %d",
			ErrMalformedCOSEKey, len(k.E), RSAExponentSize)
	}
	return nil
}
