package repository

import (
	"context"

	"github.com/AlwanWZ/shophub/internal/domain"
)

// SnapshotStore defines the interface for cart snapshot persistence, keyed by
// session.
type SnapshotStore interface {
	// Load retrieves the snapshot stored under key. It returns an error
	// wrapping apperrors.ErrNotFound when the key is absent.
	Load(ctx context.Context, key string) (*domain.Cart, error)

	// Save persists a snapshot, overwriting any existing one under key.
	Save(ctx context.Context, key string, cart *domain.Cart) error

	// Delete removes the snapshot stored under key.
	Delete(ctx context.Context, key string) error

	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}

// KeyedStore binds a SnapshotStore to one session key, giving the
// single-cart load/save port the engine works against.
type KeyedStore struct {
	store SnapshotStore
	key   string
}

// ForKey returns a KeyedStore for the given session key.
func ForKey(store SnapshotStore, key string) *KeyedStore {
	return &KeyedStore{store: store, key: key}
}

// Load retrieves the session's snapshot.
func (k *KeyedStore) Load(ctx context.Context) (*domain.Cart, error) {
	return k.store.Load(ctx, k.key)
}

// Save persists the session's snapshot.
func (k *KeyedStore) Save(ctx context.Context, cart *domain.Cart) error {
	return k.store.Save(ctx, k.key, cart)
}

// Key returns the bound session key.
func (k *KeyedStore) Key() string {
	return k.key
}
