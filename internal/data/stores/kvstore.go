package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/taskbook/internal/core/kv"
	"github.com/colonyops/taskbook/internal/data/db"
)

// KVStore implements kv.Store using SQLite.
type KVStore struct {
	db *db.DB
}

var _ kv.Store = (*KVStore)(nil)

// NewKVStore creates a new SQLite-backed KV store.
func NewKVStore(db *db.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the raw value stored under key.
// Returns an error wrapping kv.ErrNotFound if the key does not exist.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	row, err := s.db.Queries().KVGet(ctx, key)
	if IsNotFoundError(err) {
		return nil, fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return row.Value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UnixNano()
	if err := s.db.Queries().KVSet(ctx, db.KVSetParams{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.db.Queries().KVDelete(ctx, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// ListKeys returns all keys starting with prefix in sorted order.
func (s *KVStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.db.Queries().KVListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("kv list keys %q: %w", prefix, err)
	}
	return keys, nil
}
