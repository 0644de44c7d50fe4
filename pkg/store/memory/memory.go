// Package memory implements the volatile in-process storage backend.
//
// Fragments live in a single map keyed by fragment id, guarded by a
// read-write mutex. Nothing survives a restart. The store is an explicit
// object injected at construction, never ambient process state, so tests can
// instantiate independent stores side by side.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fragstore/fragstore/pkg/store"
)

// entry couples a metadata record with its payload bytes. A nil blob means no
// payload has been written yet, which is a valid transient state for a
// freshly created fragment.
type entry struct {
	md   *store.Metadata
	blob []byte
}

// Backend is the volatile storage backend.
//
// Characteristics:
//   - Fast: all operations are memory-speed
//   - Volatile: data lost on restart
//   - Thread-safe: protected by RWMutex; data copied in and out
//
// Intended for development and testing. Production deployments use
// pkg/store/durable.
type Backend struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewBackend creates an empty volatile backend.
func NewBackend() *Backend {
	return &Backend{
		entries: make(map[string]*entry),
	}
}

// ReadMetadata returns the metadata record for (ownerID, id).
func (b *Backend) ReadMetadata(ctx context.Context, ownerID, id string) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, fmt.Errorf("fragment %s: %w", id, store.ErrNotFound)
	}
	if e.md.OwnerID != ownerID {
		// Indistinguishable from absence to the caller.
		return nil, fmt.Errorf("fragment %s: %w", id, store.ErrOwnerMismatch)
	}

	return e.md.Clone(), nil
}

// WriteMetadata upserts a metadata record keyed by its ID.
func (b *Backend) WriteMetadata(ctx context.Context, md *store.Metadata) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if md == nil || md.ID == "" || md.OwnerID == "" {
		return nil, store.ErrInvalidMetadata
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stored := md.Clone()
	if e, ok := b.entries[md.ID]; ok {
		e.md = stored
	} else {
		b.entries[md.ID] = &entry{md: stored}
	}

	return stored.Clone(), nil
}

// ReadBlob returns the payload bytes for (ownerID, id).
func (b *Backend) ReadBlob(ctx context.Context, ownerID, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[id]
	if !ok || e.blob == nil {
		return nil, fmt.Errorf("fragment %s: %w", id, store.ErrNotFound)
	}
	if e.md.OwnerID != ownerID {
		return nil, fmt.Errorf("fragment %s: %w", id, store.ErrOwnerMismatch)
	}

	out := make([]byte, len(e.blob))
	copy(out, e.blob)
	return out, nil
}

// WriteBlob stores the payload and recomputes size and updated on the
// metadata record. The metadata record must exist and belong to ownerID.
func (b *Backend) WriteBlob(ctx context.Context, ownerID, id string, data []byte) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, fmt.Errorf("fragment %s: %w", id, store.ErrNotFound)
	}
	if e.md.OwnerID != ownerID {
		return nil, fmt.Errorf("fragment %s: %w", id, store.ErrOwnerMismatch)
	}

	e.blob = make([]byte, len(data))
	copy(e.blob, data)

	e.md.Size = int64(len(data))
	e.md.Updated = time.Now().UTC()

	return e.md.Clone(), nil
}

// ListByOwner returns the records belonging to ownerID, as projections when
// expand is false.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*store.Metadata, 0)
	for _, e := range b.entries {
		if e.md.OwnerID != ownerID {
			continue
		}
		if expand {
			out = append(out, e.md.Clone())
		} else {
			out = append(out, e.md.Projection())
		}
	}

	return out, nil
}

// DeleteFragment removes both blob and metadata for (ownerID, id).
func (b *Backend) DeleteFragment(ctx context.Context, ownerID, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok || e.md.OwnerID != ownerID {
		return false, nil
	}

	delete(b.entries, id)
	return true, nil
}

// Healthcheck always succeeds for the in-memory backend.
func (b *Backend) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}
