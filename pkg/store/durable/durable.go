// Package durable implements the durable storage backend.
//
// The backend composes two independently-failing stores: a queryable
// metadata index (pkg/store/index) and a blob store (pkg/store/blob). Both
// are injected at construction; the composite never chooses them itself (see
// pkg/config for the factories that do).
//
// Write ordering: metadata is written first, establishing ownership, and the
// blob second — blob writes verify the stored owner before committing, which
// requires the metadata record to exist. Delete ordering: blob first, then
// metadata; a blob-delete failure is logged and tolerated so metadata cleanup
// still proceeds. The orphaned blob that can result is cleaned up by the
// Reconcile sweep (reconcile.go).
package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fragstore/fragstore/internal/logger"
	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/blob"
	"github.com/fragstore/fragstore/pkg/store/index"
)

// Backend is the durable storage backend.
type Backend struct {
	index index.Index
	blobs blob.Store
}

// NewBackend creates a durable backend over the given index and blob store.
func NewBackend(idx index.Index, blobs blob.Store) (*Backend, error) {
	if idx == nil {
		return nil, fmt.Errorf("durable backend: index is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("durable backend: blob store is required")
	}
	return &Backend{index: idx, blobs: blobs}, nil
}

// ReadMetadata returns the metadata record for (ownerID, id).
//
// The index is keyed by (owner, id), so a foreign owner's lookup is a plain
// miss: ownership mismatch and absence are naturally indistinguishable.
func (b *Backend) ReadMetadata(ctx context.Context, ownerID, id string) (*store.Metadata, error) {
	return b.index.Get(ctx, ownerID, id)
}

// WriteMetadata upserts a metadata record into the index.
func (b *Backend) WriteMetadata(ctx context.Context, md *store.Metadata) (*store.Metadata, error) {
	return b.index.Put(ctx, md)
}

// ReadBlob returns the payload for (ownerID, id).
//
// The index is consulted first so that a blob orphaned by a partial delete
// (metadata gone, blob still present) is not served back to the caller.
func (b *Backend) ReadBlob(ctx context.Context, ownerID, id string) ([]byte, error) {
	if _, err := b.index.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return b.blobs.Get(ctx, ownerID, id)
}

// WriteBlob stores the payload, then recomputes and persists size/updated on
// the metadata record.
//
// The metadata record must already exist (ErrNotFound otherwise): ownership
// is verified against the index before the blob store is touched. The blob
// write and the size update are two separate operations; if the second
// fails, Size stays stale until the next successful write.
func (b *Backend) WriteBlob(ctx context.Context, ownerID, id string, data []byte) (*store.Metadata, error) {
	md, err := b.index.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := b.blobs.Put(ctx, ownerID, id, data); err != nil {
		return nil, fmt.Errorf("blob write failed: %w", err)
	}

	md.Size = int64(len(data))
	md.Updated = time.Now().UTC()

	updated, err := b.index.Put(ctx, md)
	if err != nil {
		return nil, fmt.Errorf("size update failed after blob write: %w", err)
	}

	return updated, nil
}

// ListByOwner queries the index's owner partition.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error) {
	return b.index.QueryByOwner(ctx, ownerID, expand)
}

// DeleteFragment removes the blob, then the metadata record.
//
// A blob-delete failure is logged at WARN and does not abort the metadata
// delete: metadata cleanup wins over strict consistency, and the Reconcile
// sweep collects the orphaned blob later.
func (b *Backend) DeleteFragment(ctx context.Context, ownerID, id string) (bool, error) {
	_, err := b.index.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := b.blobs.Delete(ctx, ownerID, id); err != nil {
		logger.Warn("blob delete failed for %s/%s, continuing with metadata delete: %v", ownerID, id, err)
	}

	if err := b.index.Delete(ctx, ownerID, id); err != nil {
		return false, fmt.Errorf("metadata delete failed: %w", err)
	}

	return true, nil
}

// Healthcheck verifies both underlying stores.
func (b *Backend) Healthcheck(ctx context.Context) error {
	if err := b.index.Healthcheck(ctx); err != nil {
		return fmt.Errorf("metadata index unhealthy: %w", err)
	}
	if err := b.blobs.Healthcheck(ctx); err != nil {
		return fmt.Errorf("blob store unhealthy: %w", err)
	}
	return nil
}

// Close releases index resources. The blob store holds no closeable state.
func (b *Backend) Close() error {
	return b.index.Close()
}
