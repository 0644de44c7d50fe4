// Package s3 implements an S3-backed blob store.
//
// Blobs are objects keyed "ownerID/id" (optionally under a configured key
// prefix), so one owner's fragments share an object-key prefix and the
// reconciliation sweep can list them without touching other data in the
// bucket. Works against AWS S3 and compatible stores (MinIO, Localstack).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/blob"
)

// Store is a blob store backed by an S3 bucket.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// Config contains configuration for the S3 blob store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "fragments/" results in keys like "fragments/owner/id".
	KeyPrefix string
}

// NewStore creates an S3 blob store and verifies bucket access with a
// HeadBucket call. The bucket is not created here.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 blob store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store: bucket is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	s := &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", s.bucket, err)
	}

	return s, nil
}

// objectKey builds the object key for (ownerID, id).
func (s *Store) objectKey(ownerID, id string) string {
	return s.keyPrefix + ownerID + "/" + id
}

// Put uploads the payload to the bucket under "ownerID/id".
func (s *Store) Put(ctx context.Context, ownerID, id string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ownerID, id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write blob to S3: %w", err)
	}
	return nil
}

// Get downloads the payload for (ownerID, id). A missing object maps to
// ErrNotFound.
func (s *Store) Get(ctx context.Context, ownerID, id string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ownerID, id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("blob %s/%s: %w", ownerID, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read blob from S3: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob body: %w", err)
	}
	return data, nil
}

// Delete removes the object for (ownerID, id). S3 DeleteObject succeeds on
// missing keys, so the operation is naturally idempotent.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ownerID, id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob from S3: %w", err)
	}
	return nil
}

// List pages through the bucket (under the key prefix) and returns every
// blob key. Objects whose keys do not parse as "owner/id" are skipped.
func (s *Store) List(ctx context.Context) ([]blob.Key, error) {
	keys := make([]blob.Key, 0)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix)
			owner, id, ok := strings.Cut(rel, "/")
			if !ok || owner == "" || id == "" || strings.Contains(id, "/") {
				continue
			}
			keys = append(keys, blob.Key{OwnerID: owner, ID: id})
		}
	}

	return keys, nil
}

// Healthcheck verifies the bucket is reachable.
func (s *Store) Healthcheck(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return fmt.Errorf("bucket %s inaccessible: %w", s.bucket, err)
	}
	return nil
}
