// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"sync"
)

// Extension supplies authenticator implementations from an optionally
// linked module. Modules call RegisterExtension at their own startup,
// typically from an init function; the core never probes for optional
// modules by name.
type Extension interface {
	// Name identifies the extension in logs.
	Name() string

	// Authenticators returns the strategies the extension contributes.
	// A contributed strategy overrides the built-in for the same AuthType.
	Authenticators() []DeviceAuthenticator
}

var (
	extMu      sync.RWMutex
	extensions []Extension
)

// RegisterExtension adds an extension to the global registry. Safe for
// concurrent use.
func RegisterExtension(ext Extension) {
	extMu.Lock()
	defer extMu.Unlock()
	extensions = append(extensions, ext)
}

// extensionAuthenticator returns the most recently registered extension
// authenticator for the given type, if any.
func extensionAuthenticator(authType AuthType) (DeviceAuthenticator, bool) {
	extMu.RLock()
	defer extMu.RUnlock()

	for i := len(extensions) - 1; i >= 0; i-- {
		for _, a := range extensions[i].Authenticators() {
			if a.Type() == authType {
				return a, true
			}
		}
	}
	return nil, false
}
