//go:build integration

package dynamodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsDynamo "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragstore/fragstore/pkg/store"
	blobmemory "github.com/fragstore/fragstore/pkg/store/blob/memory"
	"github.com/fragstore/fragstore/pkg/store/durable"
	dynamoindex "github.com/fragstore/fragstore/pkg/store/index/dynamodb"
	"github.com/fragstore/fragstore/pkg/store/storetest"
)

// setupTestDynamoDB creates a DynamoDB client against Localstack and a test
// table with the owner_id/id composite key, returning a cleanup function.
func setupTestDynamoDB(t *testing.T, tableName string) (*awsDynamo.Client, func()) {
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

	client := awsDynamo.NewFromConfig(cfg)

	_, err = client.CreateTable(ctx, &awsDynamo.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("owner_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("owner_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	require.NoError(t, err, "failed to create test table")

	waiter := awsDynamo.NewTableExistsWaiter(client)
	require.NoError(t, waiter.Wait(ctx, &awsDynamo.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 30*time.Second), "table never became active")

	cleanup := func() {
		_, _ = client.DeleteTable(ctx, &awsDynamo.DeleteTableInput{
			TableName: aws.String(tableName),
		})
	}
	return client, cleanup
}

func newTestIndex(t *testing.T, tableName string) *dynamoindex.Index {
	t.Helper()

	client, cleanup := setupTestDynamoDB(t, tableName)
	t.Cleanup(cleanup)

	idx, err := dynamoindex.NewIndex(context.Background(), client, tableName)
	require.NoError(t, err)
	return idx
}

func TestPutGetRoundTrip(t *testing.T) {
	idx := newTestIndex(t, "fragstore-test-roundtrip")
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	want := &store.Metadata{
		ID:      "frag-1",
		OwnerID: "owner-a",
		Type:    "text/markdown",
		Size:    42,
		Created: now,
		Updated: now,
	}

	_, err := idx.Put(ctx, want)
	require.NoError(t, err)

	got, err := idx.Get(ctx, "owner-a", "frag-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Size, got.Size)
	assert.True(t, want.Created.Equal(got.Created))

	_, err = idx.Get(ctx, "owner-b", "frag-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueryByOwnerProjections(t *testing.T) {
	idx := newTestIndex(t, "fragstore-test-query")
	ctx := context.Background()

	now := time.Now().UTC()
	for _, id := range []string{"frag-1", "frag-2"} {
		_, err := idx.Put(ctx, &store.Metadata{
			ID: id, OwnerID: "owner-a", Type: "text/plain", Size: 5,
			Created: now, Updated: now,
		})
		require.NoError(t, err)
	}

	projected, err := idx.QueryByOwner(ctx, "owner-a", false)
	require.NoError(t, err)
	require.Len(t, projected, 2)
	for _, md := range projected {
		assert.NotEmpty(t, md.ID)
		assert.Empty(t, md.Type, "projections carry no type")
		assert.Zero(t, md.Size)
	}

	expanded, err := idx.QueryByOwner(ctx, "owner-a", true)
	require.NoError(t, err)
	require.Len(t, expanded, 2)
	for _, md := range expanded {
		assert.Equal(t, "text/plain", md.Type)
	}
}

func TestHealthcheck(t *testing.T) {
	idx := newTestIndex(t, "fragstore-test-health")
	assert.NoError(t, idx.Healthcheck(context.Background()))
}

func TestBackendConformance(t *testing.T) {
	suite := &storetest.Suite{
		NewBackend: func(t *testing.T) store.Backend {
			// The listing subtests count fragments per owner, so each
			// subtest gets its own table.
			idx := newTestIndex(t, "fragstore-test-conformance-"+uuid.NewString())
			b, err := durable.NewBackend(idx, blobmemory.NewStore())
			require.NoError(t, err)
			return b
		},
	}
	suite.Run(t)
}
