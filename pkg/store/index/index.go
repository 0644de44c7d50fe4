// Package index defines the metadata index used by the durable backend.
//
// The index is the queryable half of the durable storage pair: it holds
// fragment metadata records addressable by (ownerID, id) and supports
// partition queries by owner for listings. Payload bytes live in the blob
// store (pkg/store/blob), never here.
package index

import (
	"context"

	"github.com/fragstore/fragstore/pkg/store"
)

// Key identifies one indexed record.
type Key struct {
	OwnerID string
	ID      string
}

// Index is the metadata index contract.
//
// Records are keyed by (ownerID, id); a lookup with the wrong owner is a
// plain miss, which is exactly the per-owner isolation the backend contract
// requires.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Index interface {
	// Get returns the record for (ownerID, id), or ErrNotFound.
	Get(ctx context.Context, ownerID, id string) (*store.Metadata, error)

	// Put upserts a record and returns the persisted copy.
	Put(ctx context.Context, md *store.Metadata) (*store.Metadata, error)

	// Delete removes the record for (ownerID, id). Deleting a missing record
	// succeeds (idempotent).
	Delete(ctx context.Context, ownerID, id string) error

	// QueryByOwner returns all records in the owner's partition. When expand
	// is false the records are {ID, Created, Updated} projections; backends
	// with server-side projection support (DynamoDB) push the trimming down
	// to the store.
	QueryByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error)

	// ListKeys returns the keys of every record in the index. Used by the
	// orphan-blob reconciliation sweep; may be slow on large indexes.
	ListKeys(ctx context.Context) ([]Key, error)

	// Healthcheck verifies the index can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}
