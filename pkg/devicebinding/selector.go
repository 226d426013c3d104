// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"context"
)

// KeySelector disambiguates between multiple bound keys for one user
// during a sign operation. Implementations typically present a picker UI.
//
// Returning (nil, nil) is the explicit "no selection" response; the
// pipeline maps it to an abort failure rather than crashing or hanging.
type KeySelector interface {
	SelectKey(ctx context.Context, keys []UserKey) (*UserKey, error)
}

// KeySelectorFunc adapts a function to the KeySelector interface.
type KeySelectorFunc func(ctx context.Context, keys []UserKey) (*UserKey, error)

// SelectKey calls f.
func (f KeySelectorFunc) SelectKey(ctx context.Context, keys []UserKey) (*UserKey, error) {
	return f(ctx, keys)
}

// FirstKeySelector picks the earliest-created key. It is the headless
// default; interactive applications plug in their own picker.
func FirstKeySelector() KeySelector {
	return KeySelectorFunc(func(ctx context.Context, keys []UserKey) (*UserKey, error) {
		if len(keys) == 0 {
			return nil, nil
		}
		earliest := keys[0]
		for _, key := range keys[1:] {
			if key.CreatedAt.Before(earliest.CreatedAt) {
				earliest = key
			}
		}
		return &earliest, nil
	})
}
