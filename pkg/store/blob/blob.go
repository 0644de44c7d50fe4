// Package blob defines the payload store used by the durable backend.
//
// The blob store holds only raw fragment bytes, keyed by (ownerID, id). It
// knows nothing about MIME types, sizes or timestamps; that is the metadata
// index's job (pkg/store/index). The two stores fail independently and offer
// no cross-store transaction.
package blob

import "context"

// Key identifies one stored blob. Backends address blobs at the path
// "ownerID/id" (an S3 object key, a filesystem path, or a map key).
type Key struct {
	OwnerID string
	ID      string
}

// Store is the blob store contract.
//
// Ownership is not enforced here: the durable backend verifies the owner
// against the metadata index before touching blobs, so the store trusts the
// (ownerID, id) pair it is handed.
//
// Key components are opaque non-empty strings. Implementations whose
// addressing scheme reserves characters (path separators, key delimiters)
// must encode components rather than reject them, so the same keys work on
// every store.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key are last-writer-wins.
type Store interface {
	// Put stores the payload under (ownerID, id), replacing any existing
	// blob at that key.
	Put(ctx context.Context, ownerID, id string, data []byte) error

	// Get returns the payload for (ownerID, id), or ErrNotFound.
	Get(ctx context.Context, ownerID, id string) ([]byte, error)

	// Delete removes the payload for (ownerID, id). Deleting a missing blob
	// succeeds (idempotent), which keeps retries and the reconciliation
	// sweep simple.
	Delete(ctx context.Context, ownerID, id string) error

	// List returns the keys of every stored blob. Used by the orphan
	// reconciliation sweep; may be slow on large stores.
	List(ctx context.Context) ([]Key, error)

	// Healthcheck verifies the store can serve requests.
	Healthcheck(ctx context.Context) error
}
