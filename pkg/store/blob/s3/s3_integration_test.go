//go:build integration

package s3_test

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/blob"
	s3store "github.com/fragstore/fragstore/pkg/store/blob/s3"
	"github.com/fragstore/fragstore/pkg/store/durable"
	indexmemory "github.com/fragstore/fragstore/pkg/store/index/memory"
	"github.com/fragstore/fragstore/pkg/store/storetest"
)

// setupTestS3 creates an S3 client against Localstack (or any S3-compatible
// endpoint) and a test bucket, returning a cleanup function that removes
// every object and the bucket itself.
func setupTestS3(t *testing.T, bucketName string) (*awsS3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
	)
	require.NoError(t, err, "failed to load AWS config")

	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		// Path-style URLs are required for Localstack
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &awsS3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	require.NoError(t, err, "failed to create test bucket")

	cleanup := func() {
		list, err := client.ListObjectsV2(ctx, &awsS3.ListObjectsV2Input{
			Bucket: aws.String(bucketName),
		})
		if err == nil {
			for _, obj := range list.Contents {
				_, _ = client.DeleteObject(ctx, &awsS3.DeleteObjectInput{
					Bucket: aws.String(bucketName),
					Key:    obj.Key,
				})
			}
		}
		_, _ = client.DeleteBucket(ctx, &awsS3.DeleteBucketInput{
			Bucket: aws.String(bucketName),
		})
	}
	return client, cleanup
}

func newTestStore(t *testing.T, bucketName string) *s3store.Store {
	t.Helper()

	client, cleanup := setupTestS3(t, bucketName)
	t.Cleanup(cleanup)

	s, err := s3store.NewStore(context.Background(), s3store.Config{
		Client: client,
		Bucket: bucketName,
	})
	require.NoError(t, err)
	return s
}

func TestPutGetDeleteRoundTrip(t *testing.T) {
	s := newTestStore(t, "fragstore-test-roundtrip")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "owner-a", "frag-1", []byte("payload")))

	got, err := s.Get(ctx, "owner-a", "frag-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, s.Delete(ctx, "owner-a", "frag-1"))
	require.NoError(t, s.Delete(ctx, "owner-a", "frag-1"))

	_, err = s.Get(ctx, "owner-a", "frag-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestList(t *testing.T) {
	s := newTestStore(t, "fragstore-test-list")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "owner-a", "frag-1", []byte("x")))
	require.NoError(t, s.Put(ctx, "owner-b", "frag-2", []byte("y")))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []blob.Key{
		{OwnerID: "owner-a", ID: "frag-1"},
		{OwnerID: "owner-b", ID: "frag-2"},
	}, keys)
}

func TestNewStoreRejectsMissingBucket(t *testing.T) {
	client, cleanup := setupTestS3(t, "fragstore-test-exists")
	t.Cleanup(cleanup)

	_, err := s3store.NewStore(context.Background(), s3store.Config{
		Client: client,
		Bucket: "fragstore-test-does-not-exist",
	})
	assert.Error(t, err)
}

func TestBackendConformance(t *testing.T) {
	s := newTestStore(t, "fragstore-test-conformance")

	suite := &storetest.Suite{
		NewBackend: func(t *testing.T) store.Backend {
			// A fresh index per subtest keys into the shared bucket; the
			// owner/id keys are random so subtests cannot collide.
			b, err := durable.NewBackend(indexmemory.NewIndex(), s)
			require.NoError(t, err)
			return b
		},
	}
	suite.Run(t)
}
