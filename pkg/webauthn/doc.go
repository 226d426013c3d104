// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package webauthn implements the authenticator-side WebAuthn core:
// credential source records, keychain-backed credential storage with
// at-rest encryption validation, and algorithm-negotiated hardware key
// support for registration and assertion signing.
//
// The package deliberately excludes relying-party ceremony plumbing;
// it produces and consumes the credential and key material those
// ceremonies are built from.
package webauthn
