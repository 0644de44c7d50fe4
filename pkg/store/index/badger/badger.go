// Package badger implements a BadgerDB-backed metadata index.
//
// Suitable for single-node deployments that need metadata to survive
// restarts without an external database. Records are stored as JSON under
// owner-partitioned keys so that per-owner listings are a single prefix scan.
package badger

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/index"
)

// Index is a metadata index persisted in BadgerDB.
//
// Thread Safety:
// BadgerDB transactions provide isolation; no additional locking is needed
// on top of the db handle.
type Index struct {
	db *badger.DB
}

// Config contains configuration for the Badger index.
type Config struct {
	// Path is the directory holding the Badger database files.
	// Ignored when InMemory is true.
	Path string

	// InMemory runs Badger without touching disk. Useful for tests.
	InMemory bool
}

// NewIndex opens (creating if necessary) a Badger database at cfg.Path.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger index: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Index{db: db}, nil
}

// Get returns the record for (ownerID, id), or ErrNotFound.
func (i *Index) Get(ctx context.Context, ownerID, id string) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var md *store.Metadata
	err := i.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(ownerID, id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("index entry %s: %w", id, store.ErrNotFound)
			}
			return fmt.Errorf("badger get: %w", err)
		}
		return item.Value(func(val []byte) error {
			md = &store.Metadata{}
			return json.Unmarshal(val, md)
		})
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

// Put upserts a record.
func (i *Index) Put(ctx context.Context, md *store.Metadata) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if md == nil || md.ID == "" || md.OwnerID == "" {
		return nil, store.ErrInvalidMetadata
	}

	val, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	err = i.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(md.OwnerID, md.ID), val)
	})
	if err != nil {
		return nil, fmt.Errorf("badger put: %w", err)
	}

	return md.Clone(), nil
}

// Delete removes the record for (ownerID, id). Idempotent: deleting a missing
// key succeeds.
func (i *Index) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := i.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(ownerID, id))
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// QueryByOwner scans the owner's key prefix and returns the records.
//
// Badger stores full records, so the non-expanded projection is trimmed after
// decoding rather than pushed down to the store.
func (i *Index) QueryByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*store.Metadata, 0)
	err := i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := ownerPrefix(ownerID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				md := &store.Metadata{}
				if err := json.Unmarshal(val, md); err != nil {
					return fmt.Errorf("failed to decode metadata: %w", err)
				}
				if expand {
					out = append(out, md)
				} else {
					out = append(out, md.Projection())
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListKeys returns every record key in the index. Values are not fetched.
func (i *Index) ListKeys(ctx context.Context) ([]index.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]index.Key, 0)
	err := i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(recordPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k, ok := parseRecordKey(it.Item().Key())
			if !ok {
				continue
			}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Healthcheck verifies the database is open and usable.
func (i *Index) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if i.db.IsClosed() {
		return fmt.Errorf("badger index: database is closed")
	}
	return nil
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}
