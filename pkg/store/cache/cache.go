// Package cache implements a Redis read-through cache over a storage backend.
//
// The cache is a decorator: it implements store.Backend, serving metadata and
// blob reads from Redis when possible and falling through to the wrapped
// backend otherwise. Writes and deletes go to the backend first and then
// refresh or drop the cached copies. Any cache failure degrades to a plain
// backend call — Redis being down never fails a request.
//
// Listings are not cached: invalidating a per-owner listing on every write
// costs more than the query it would save on the owner-partitioned indexes.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fragstore/fragstore/internal/logger"
	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/durable"
)

// Backend decorates another store.Backend with Redis caching.
type Backend struct {
	inner store.Backend
	rdb   *redis.Client
	ttl   time.Duration
}

// Config contains configuration for the cache decorator.
type Config struct {
	// Client is the configured Redis client.
	Client *redis.Client

	// TTL is how long cached entries live. Zero means no expiry.
	TTL time.Duration
}

// NewBackend wraps inner with a Redis cache.
func NewBackend(inner store.Backend, cfg Config) *Backend {
	return &Backend{
		inner: inner,
		rdb:   cfg.Client,
		ttl:   cfg.TTL,
	}
}

// escapeComponent keeps Redis keys unambiguous when an owner or fragment id
// itself contains the ':' separator.
func escapeComponent(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

func metadataKey(ownerID, id string) string {
	return "frag:md:" + escapeComponent(ownerID) + ":" + escapeComponent(id)
}

func blobKey(ownerID, id string) string {
	return "frag:blob:" + escapeComponent(ownerID) + ":" + escapeComponent(id)
}

// ReadMetadata serves from cache when possible.
func (b *Backend) ReadMetadata(ctx context.Context, ownerID, id string) (*store.Metadata, error) {
	key := metadataKey(ownerID, id)

	if raw, err := b.rdb.Get(ctx, key).Bytes(); err == nil {
		md := &store.Metadata{}
		if err := json.Unmarshal(raw, md); err == nil {
			return md, nil
		}
		// Corrupt entry: drop it and fall through.
		b.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		logger.Debug("cache read failed for %s: %v", key, err)
	}

	md, err := b.inner.ReadMetadata(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	b.cacheMetadata(ctx, md)
	return md, nil
}

// WriteMetadata writes through and refreshes the cached record.
func (b *Backend) WriteMetadata(ctx context.Context, md *store.Metadata) (*store.Metadata, error) {
	stored, err := b.inner.WriteMetadata(ctx, md)
	if err != nil {
		return nil, err
	}

	b.cacheMetadata(ctx, stored)
	return stored, nil
}

// ReadBlob serves payload bytes from cache when possible.
func (b *Backend) ReadBlob(ctx context.Context, ownerID, id string) ([]byte, error) {
	key := blobKey(ownerID, id)

	if raw, err := b.rdb.Get(ctx, key).Bytes(); err == nil {
		return raw, nil
	} else if err != redis.Nil {
		logger.Debug("cache read failed for %s: %v", key, err)
	}

	data, err := b.inner.ReadBlob(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := b.rdb.Set(ctx, key, data, b.ttl).Err(); err != nil {
		logger.Debug("cache write failed for %s: %v", key, err)
	}
	return data, nil
}

// WriteBlob writes through, caches the new payload and refreshes metadata.
func (b *Backend) WriteBlob(ctx context.Context, ownerID, id string, data []byte) (*store.Metadata, error) {
	md, err := b.inner.WriteBlob(ctx, ownerID, id, data)
	if err != nil {
		return nil, err
	}

	if err := b.rdb.Set(ctx, blobKey(ownerID, id), data, b.ttl).Err(); err != nil {
		logger.Debug("cache write failed for %s: %v", blobKey(ownerID, id), err)
	}
	b.cacheMetadata(ctx, md)
	return md, nil
}

// ListByOwner always hits the backend.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error) {
	return b.inner.ListByOwner(ctx, ownerID, expand)
}

// DeleteFragment deletes through and drops both cached entries.
func (b *Backend) DeleteFragment(ctx context.Context, ownerID, id string) (bool, error) {
	deleted, err := b.inner.DeleteFragment(ctx, ownerID, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if err := b.rdb.Del(ctx, metadataKey(ownerID, id), blobKey(ownerID, id)).Err(); err != nil {
		logger.Debug("cache invalidation failed for %s/%s: %v", ownerID, id, err)
	}
	return true, nil
}

// Healthcheck verifies the wrapped backend. Redis is intentionally excluded:
// the cache degrades gracefully, so an unreachable Redis is not unhealthy.
func (b *Backend) Healthcheck(ctx context.Context) error {
	return b.inner.Healthcheck(ctx)
}

// Reconcile forwards an orphan sweep to the wrapped backend. Backends
// without a sweep report zero work.
func (b *Backend) Reconcile(ctx context.Context) (durable.ReconcileResult, error) {
	type reconciler interface {
		Reconcile(context.Context) (durable.ReconcileResult, error)
	}
	if r, ok := b.inner.(reconciler); ok {
		return r.Reconcile(ctx)
	}
	return durable.ReconcileResult{}, nil
}

func (b *Backend) cacheMetadata(ctx context.Context, md *store.Metadata) {
	raw, err := json.Marshal(md)
	if err != nil {
		return
	}
	key := metadataKey(md.OwnerID, md.ID)
	if err := b.rdb.Set(ctx, key, raw, b.ttl).Err(); err != nil {
		logger.Debug("cache write failed for %s: %v", key, err)
	}
}
