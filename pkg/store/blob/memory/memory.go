// Package memory implements an in-memory blob store.
//
// Pairs with the in-memory index to exercise the durable backend composite
// in tests without external services.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/blob"
)

// Store keeps blobs in a mutex-guarded map. Data is copied on the way in and
// out so callers cannot alias the stored slices.
type Store struct {
	mu    sync.RWMutex
	blobs map[blob.Key][]byte
}

// NewStore creates an empty in-memory blob store.
func NewStore() *Store {
	return &Store{
		blobs: make(map[blob.Key][]byte),
	}
}

// Put stores the payload under (ownerID, id).
func (s *Store) Put(ctx context.Context, ownerID, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[blob.Key{OwnerID: ownerID, ID: id}] = cp
	return nil
}

// Get returns the payload for (ownerID, id), or ErrNotFound.
func (s *Store) Get(ctx context.Context, ownerID, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[blob.Key{OwnerID: ownerID, ID: id}]
	if !ok {
		return nil, fmt.Errorf("blob %s/%s: %w", ownerID, id, store.ErrNotFound)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete removes the payload for (ownerID, id). Idempotent.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, blob.Key{OwnerID: ownerID, ID: id})
	return nil
}

// List returns every stored blob key.
func (s *Store) List(ctx context.Context) ([]blob.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]blob.Key, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

// Healthcheck always succeeds for the in-memory store.
func (s *Store) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}
