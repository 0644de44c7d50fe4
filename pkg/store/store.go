// Package store defines the storage backend contract for fragments.
//
// A fragment is one stored payload plus its metadata, addressed by the pair
// (ownerID, id). Metadata and payload bytes are persisted separately: the
// metadata record carries identity, MIME type, size and timestamps, while the
// blob carries the raw bytes. Backends keep the two in step but offer no
// cross-store transaction.
package store

import (
	"context"
	"time"
)

// Metadata is the non-payload portion of a fragment.
//
// Size mirrors the length of the stored blob and is recomputed by the backend
// on every blob write. A freshly created fragment may exist with metadata only
// (Size 0) until its first blob write completes.
type Metadata struct {
	// ID is the opaque unique fragment identifier, immutable after creation.
	ID string `json:"id"`

	// OwnerID identifies the owning principal. It is supplied by the caller
	// after authentication and is never derived from request parameters.
	OwnerID string `json:"ownerId"`

	// Type is the fragment's MIME type, possibly with parameters
	// (e.g. "text/plain; charset=utf-8").
	Type string `json:"type"`

	// Size is the byte length of the stored blob, 0 when no payload has been
	// written yet.
	Size int64 `json:"size"`

	// Created is set once at creation time.
	Created time.Time `json:"created"`

	// Updated is refreshed on every successful data or type change.
	// Invariant: Updated >= Created.
	Updated time.Time `json:"updated"`
}

// Clone returns a copy of the metadata record.
//
// Backends hand out clones so callers can mutate results without racing
// against the store's own copy.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Projection returns the light listing form of the record: id and timestamps
// only. Used by ListByOwner when expand is false.
func (m *Metadata) Projection() *Metadata {
	return &Metadata{
		ID:      m.ID,
		Created: m.Created,
		Updated: m.Updated,
	}
}

// ============================================================================
// Backend Interface
// ============================================================================

// Backend is the persistence contract shared by all storage strategies.
//
// Two implementations exist: a volatile in-process store (pkg/store/memory)
// for development and testing, and a durable composite (pkg/store/durable)
// that pairs a queryable metadata index with a blob store.
//
// Ownership Policy:
// Every operation that takes an ownerID compares it against the stored owner
// of the targeted record. A mismatch behaves identically to a missing record
// (ErrNotFound semantics) so that one principal can never learn whether
// another principal's fragment exists.
//
// Error Handling:
// Backends surface errors directly to the caller with no internal retry.
// Sentinel errors (ErrNotFound, ErrOwnerMismatch) are wrapped with context
// via fmt.Errorf("...: %w", ...); callers match them with errors.Is.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same fragment id are not guarded: the last writer
// wins.
type Backend interface {
	// ReadMetadata returns the metadata record for (ownerID, id).
	//
	// Returns ErrNotFound if the record does not exist or is owned by a
	// different principal. The blob is never touched.
	ReadMetadata(ctx context.Context, ownerID, id string) (*Metadata, error)

	// WriteMetadata upserts a metadata record keyed by its ID and returns the
	// persisted record.
	//
	// The write establishes ownership: subsequent blob writes for the same id
	// verify their ownerID against the owner stored here.
	WriteMetadata(ctx context.Context, md *Metadata) (*Metadata, error)

	// ReadBlob returns the raw payload bytes for (ownerID, id).
	//
	// Returns ErrNotFound if no blob exists or the fragment is owned by a
	// different principal.
	ReadBlob(ctx context.Context, ownerID, id string) ([]byte, error)

	// WriteBlob stores the payload bytes, then recomputes and persists the
	// fragment's size and updated timestamp, returning the refreshed metadata.
	//
	// Fails with ErrNotFound when no metadata record exists yet (metadata must
	// be written first to establish ownership) and with ErrOwnerMismatch when
	// the stored owner differs from ownerID. ErrOwnerMismatch matches
	// ErrNotFound under errors.Is, so callers cannot distinguish a foreign
	// fragment from a missing one.
	//
	// The blob and the size update are two separate writes with no transaction
	// between them: a blob write that succeeds followed by a metadata write
	// that fails leaves Size stale until the next successful write.
	WriteBlob(ctx context.Context, ownerID, id string, data []byte) (*Metadata, error)

	// ListByOwner returns the metadata records belonging to ownerID.
	//
	// When expand is false, each entry is a projection carrying only
	// {ID, Created, Updated}. When expand is true, full records are returned.
	// An owner with no fragments yields an empty slice, not an error.
	ListByOwner(ctx context.Context, ownerID string, expand bool) ([]*Metadata, error)

	// DeleteFragment removes both blob and metadata for (ownerID, id).
	//
	// Returns false when the record did not exist or was owned by someone
	// else; true when the fragment was removed. Blob-delete failure in the
	// durable backend is logged and tolerated so metadata cleanup still
	// proceeds (orphaned blobs are handled by the reconciliation sweep).
	DeleteFragment(ctx context.Context, ownerID, id string) (bool, error)

	// Healthcheck verifies the backend can serve requests.
	//
	// For in-process implementations this is a no-op; for composites it
	// checks both underlying stores.
	Healthcheck(ctx context.Context) error
}
