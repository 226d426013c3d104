// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ForgeRock/forgerock-ios-sdk-sub007/pkg/storage"
)

// UserKey represents one device-bound signing key for a user. Created on
// successful key-pair generation during a bind, consulted during later
// sign operations, deleted on rollback or explicit unbind.
type UserKey struct {
	// ID is the key alias, which doubles as the hardware key-store label.
	ID string `json:"id"`

	// UserID identifies the bound user.
	UserID string `json:"userId"`

	// UserName is the user's display name.
	UserName string `json:"userName"`

	// KID is the key identifier carried in issued JWS headers.
	KID string `json:"kid"`

	// AuthType is the user-verification gate the key was bound with.
	AuthType AuthType `json:"authType"`

	// CreatedAt is the key creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// UserKeyRepository persists UserKey records. All implementations must be
// thread-safe.
type UserKeyRepository interface {
	// Save stores a user key, overwriting any record with the same ID.
	Save(key UserKey) error

	// Delete removes a user key. Deleting a missing key is not an error.
	Delete(key UserKey) error

	// LoadAll returns every stored user key.
	LoadAll() ([]UserKey, error)

	// LoadByUserID returns the keys bound for a user.
	LoadByUserID(userID string) ([]UserKey, error)
}

// userKeyService is the keychain service scope for user-key records.
const userKeyService = "com.forgerock.ios.devicebinding"

// StorageUserKeyRepository persists user keys as JSON records in a
// storage backend, keyed by key alias.
type StorageUserKeyRepository struct {
	scope *storage.ServiceScope
}

// NewStorageUserKeyRepository creates a repository over the given backend.
func NewStorageUserKeyRepository(backend storage.Backend, servicePrefix string) *StorageUserKeyRepository {
	if servicePrefix == "" {
		servicePrefix = userKeyService
	}
	return &StorageUserKeyRepository{
		scope: storage.NewServiceScope(backend, storage.ServiceName(servicePrefix, "userkeys")),
	}
}

// Save stores a user key record.
func (r *StorageUserKeyRepository) Save(key UserKey) error {
	data, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("devicebinding: marshal user key: %w", err)
	}
	return r.scope.Put(key.ID, data, nil)
}

// Delete removes a user key record.
func (r *StorageUserKeyRepository) Delete(key UserKey) error {
	err := r.scope.Delete(key.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// LoadAll returns every stored user key.
func (r *StorageUserKeyRepository) LoadAll() ([]UserKey, error) {
	ids, err := r.scope.List()
	if err != nil {
		return nil, err
	}

	keys := make([]UserKey, 0, len(ids))
	for _, id := range ids {
		data, err := r.scope.Get(id)
		if err != nil {
			continue
		}
		var key UserKey
		if err := json.Unmarshal(data, &key); err != nil {
			// Corrupt record; fail closed.
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// LoadByUserID returns the keys bound for a user.
func (r *StorageUserKeyRepository) LoadByUserID(userID string) ([]UserKey, error) {
	all, err := r.LoadAll()
	if err != nil {
		return nil, err
	}

	var keys []UserKey
	for _, key := range all {
		if key.UserID == userID {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
