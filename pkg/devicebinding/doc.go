// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

// Package devicebinding orchestrates the bind-then-sign lifecycle for
// device-bound authentication keys: hardware key generation, user-key
// persistence, challenge signing into a JWS, wall-clock timeout
// enforcement and rollback of freshly minted keys on failure.
//
// Cancellation is advisory, not preemptive: the platform biometric APIs
// underneath an in-flight signing call expose no mid-flight cancellation,
// so the timeout is checked after the blocking call returns and cleanup
// happens then. This is a design limitation of the underlying platform.
package devicebinding
