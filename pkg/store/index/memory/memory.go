// Package memory implements an in-memory metadata index.
//
// Used to exercise the durable backend composite in tests and small
// single-process deployments where the blob store is the only durable piece.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/index"
)

// Index is a mutex-guarded map of (ownerID, id) to metadata records.
type Index struct {
	mu      sync.RWMutex
	records map[index.Key]*store.Metadata
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{
		records: make(map[index.Key]*store.Metadata),
	}
}

// Get returns the record for (ownerID, id), or ErrNotFound.
func (i *Index) Get(ctx context.Context, ownerID, id string) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	md, ok := i.records[index.Key{OwnerID: ownerID, ID: id}]
	if !ok {
		return nil, fmt.Errorf("index entry %s: %w", id, store.ErrNotFound)
	}
	return md.Clone(), nil
}

// Put upserts a record.
func (i *Index) Put(ctx context.Context, md *store.Metadata) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if md == nil || md.ID == "" || md.OwnerID == "" {
		return nil, store.ErrInvalidMetadata
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	stored := md.Clone()
	i.records[index.Key{OwnerID: md.OwnerID, ID: md.ID}] = stored
	return stored.Clone(), nil
}

// Delete removes the record for (ownerID, id). Idempotent.
func (i *Index) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.records, index.Key{OwnerID: ownerID, ID: id})
	return nil
}

// QueryByOwner returns all records in the owner's partition.
func (i *Index) QueryByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]*store.Metadata, 0)
	for k, md := range i.records {
		if k.OwnerID != ownerID {
			continue
		}
		if expand {
			out = append(out, md.Clone())
		} else {
			out = append(out, md.Projection())
		}
	}
	return out, nil
}

// ListKeys returns every key in the index.
func (i *Index) ListKeys(ctx context.Context) ([]index.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := make([]index.Key, 0, len(i.records))
	for k := range i.records {
		keys = append(keys, k)
	}
	return keys, nil
}

// Healthcheck always succeeds for the in-memory index.
func (i *Index) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (i *Index) Close() error {
	return nil
}
