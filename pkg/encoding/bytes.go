// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package encoding implements the binary codecs the SDK uses to serialize
// credentials and keys: CBOR/COSE key records, unpadded Base64URL, and
// big-endian fixed-width integer helpers.
package encoding

import (
	"encoding/base64"
	"encoding/binary"
)

// fitWidth forces b to exactly n bytes: short input is left-padded with
// zero bytes, long input has its leading bytes dropped. Oversized input is
// silently truncated rather than rejected; callers relying on this leniency
// are pinned by tests.
func fitWidth(b []byte, n int) []byte {
	out := make([]byte, n)
	if len(b) >= n {
		copy(out, b[len(b)-n:])
	} else {
		copy(out[n-len(b):], b)
	}
	return out
}

// FromUInt16 encodes v as 2 big-endian bytes.
func FromUInt16(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

// ToUInt16 decodes a big-endian byte sequence as uint16, left-padding
// short input with zeros and dropping leading bytes of long input.
func ToUInt16(b []byte) uint16 {
	return binary.BigEndian.Uint16(fitWidth(b, 2))
}

// FromUInt32 encodes v as 4 big-endian bytes.
func FromUInt32(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

// ToUInt32 decodes a big-endian byte sequence as uint32, left-padding
// short input with zeros and dropping leading bytes of long input.
func ToUInt32(b []byte) uint32 {
	return binary.BigEndian.Uint32(fitWidth(b, 4))
}

// FromUInt64 encodes v as 8 big-endian bytes.
func FromUInt64(v uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, v)
	return out
}

// ToUInt64 decodes a big-endian byte sequence as uint64, left-padding
// short input with zeros and dropping leading bytes of long input.
func ToUInt64(b []byte) uint64 {
	return binary.BigEndian.Uint64(fitWidth(b, 8))
}

// Base64URL encodes b as unpadded URL-safe base64, the JOSE/WebAuthn
// convention for tokens sent to relying-party servers.
func Base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL decodes an unpadded URL-safe base64 string.
func DecodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
