// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package encoding

import (
	"github.com/google/uuid"
)

// UUIDBytes returns the 16 raw bytes of u.
func UUIDBytes(u uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, u[:])
	return b
}

// UUIDFromBytes parses 16 raw bytes into a UUID.
func UUIDFromBytes(b []byte) (uuid.UUID, error) {
	return uuid.FromBytes(b)
}
