// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package encoding

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/ldclabs/cose/iana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEC2Key() COSEKeyEC2 {
	return COSEKeyEC2{
		Alg: int64(iana.AlgorithmES256),
		Crv: int64(iana.EllipticCurveP_256),
		X:   bytes.Repeat([]byte{0x01}, EC2CoordinateSize),
		Y:   bytes.Repeat([]byte{0x02}, EC2CoordinateSize),
	}
}

func validRSAKey() COSEKeyRSA {
	return COSEKeyRSA{
		Alg: int64(iana.AlgorithmRS256),
		N:   bytes.Repeat([]byte{0x03}, RSAModulusSize),
		E:   []byte{0x01, 0x00, 0x01},
	}
}

func TestEC2KeyRoundTrip(t *testing.T) {
	key := validEC2Key()
	data, err := EncodeCOSEKey(key)
	require.NoError(t, err)

	decoded, err := DecodeCOSEKey(data)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestRSAKeyRoundTrip(t *testing.T) {
	key := validRSAKey()
	data, err := EncodeCOSEKey(key)
	require.NoError(t, err)

	decoded, err := DecodeCOSEKey(data)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestEC2KeyFieldLengthValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*COSEKeyEC2)
	}{
		{"short x", func(k *COSEKeyEC2) { k.X = k.X[:31] }},
		{"long x", func(k *COSEKeyEC2) { k.X = append(k.X, 0x00) }},
		{"short y", func(k *COSEKeyEC2) { k.Y = k.Y[:16] }},
		{"long y", func(k *COSEKeyEC2) { k.Y = append(k.Y, 0x00) }},
		{"empty x", func(k *COSEKeyEC2) { k.X = nil }},
		{"missing alg", func(k *COSEKeyEC2) { k.Alg = 0 }},
		{"missing crv", func(k *COSEKeyEC2) { k.Crv = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := validEC2Key()
			tt.mutate(&key)

			// Encode must refuse to emit the malformed key.
			_, err := EncodeCOSEKey(key)
			assert.ErrorIs(t, err, ErrMalformedCOSEKey)

			// Decode must reject the raw wire form too.
			data := encodeRawEC2(t, key)
			_, err = DecodeCOSEKey(data)
			assert.Error(t, err)
		})
	}
}

func TestRSAKeyFieldLengthValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*COSEKeyRSA)
	}{
		{"short modulus", func(k *COSEKeyRSA) { k.N = k.N[:255] }},
		{"long modulus", func(k *COSEKeyRSA) { k.N = append(k.N, 0x00) }},
		{"short exponent", func(k *COSEKeyRSA) { k.E = k.E[:2] }},
		{"long exponent", func(k *COSEKeyRSA) { k.E = append(k.E, 0x00) }},
		{"missing alg", func(k *COSEKeyRSA) { k.Alg = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := validRSAKey()
			tt.mutate(&key)

			_, err := EncodeCOSEKey(key)
			assert.ErrorIs(t, err, ErrMalformedCOSEKey)

			data := encodeRawRSA(t, key)
			_, err = DecodeCOSEKey(data)
			assert.Error(t, err)
		})
	}
}

func TestDecodeRejectsUnknownKeyType(t *testing.T) {
	data, err := ctap2Enc.Marshal(map[int]any{
		1: 99, // not EC2 or RSA
		3: int64(iana.AlgorithmES256),
	})
	require.NoError(t, err)

	_, err = DecodeCOSEKey(data)
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeCOSEKey([]byte{0xFF, 0x00, 0x12})
	assert.ErrorIs(t, err, ErrMalformedCOSEKey)
}

// encodeRawEC2 serializes a key without the encode-side validation, so
// decode-side rejection can be exercised independently.
func encodeRawEC2(t *testing.T, k COSEKeyEC2) []byte {
	t.Helper()
	data, err := cbor.Marshal(ec2KeyRecord{
		Kty: int64(iana.KeyTypeEC2),
		Alg: k.Alg,
		Crv: k.Crv,
		X:   k.X,
		Y:   k.Y,
	})
	require.NoError(t, err)
	return data
}

func encodeRawRSA(t *testing.T, k COSEKeyRSA) []byte {
	t.Helper()
	data, err := cbor.Marshal(rsaKeyRecord{
		Kty: int64(iana.KeyTypeRSA),
		Alg: k.Alg,
		N:   k.N,
		E:   k.E,
	})
	require.NoError(t, err)
	return data
}
