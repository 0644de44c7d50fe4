package durable

import (
	"context"
	"fmt"

	"github.com/fragstore/fragstore/internal/logger"
	"github.com/fragstore/fragstore/pkg/store/index"
)

// ReconcileResult summarizes one orphan-blob sweep.
type ReconcileResult struct {
	// Scanned is the number of blobs examined.
	Scanned int

	// Orphans is the number of blobs with no matching metadata record.
	Orphans int

	// Deleted is the number of orphaned blobs successfully removed.
	Deleted int
}

// Reconcile removes blobs that no metadata record references.
//
// Orphans appear when a fragment delete removes the metadata record but the
// blob delete fails (tolerated by DeleteFragment). The sweep lists the blob
// store first and snapshots the index keys second. The ordering matters for
// concurrent saves: metadata is always written before its blob, so a fragment
// saved mid-sweep either misses the blob listing entirely (never a deletion
// candidate) or, if its blob made the listing, its metadata is already in the
// later index snapshot. A blob in the listing with no record in the snapshot
// is therefore genuinely unreferenced.
//
// Intended to run from a maintenance task, not a request path.
func (b *Backend) Reconcile(ctx context.Context) (ReconcileResult, error) {
	blobKeys, err := b.blobs.List(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("failed to list blobs: %w", err)
	}

	// Snapshot referenced keys strictly after the blob listing.
	keys, err := b.index.ListKeys(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("failed to list index keys: %w", err)
	}
	referenced := make(map[index.Key]struct{}, len(keys))
	for _, k := range keys {
		referenced[k] = struct{}{}
	}

	result := ReconcileResult{Scanned: len(blobKeys)}
	for _, bk := range blobKeys {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, ok := referenced[index.Key{OwnerID: bk.OwnerID, ID: bk.ID}]; ok {
			continue
		}

		result.Orphans++
		if err := b.blobs.Delete(ctx, bk.OwnerID, bk.ID); err != nil {
			logger.Warn("reconcile: failed to delete orphaned blob %s/%s: %v", bk.OwnerID, bk.ID, err)
			continue
		}
		result.Deleted++
	}

	if result.Orphans > 0 {
		logger.Info("reconcile: scanned %d blobs, deleted %d of %d orphans",
			result.Scanned, result.Deleted, result.Orphans)
	}

	return result, nil
}
