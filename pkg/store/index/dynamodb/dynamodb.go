// Package dynamodb implements a DynamoDB-backed metadata index.
//
// The table uses owner_id as the partition key and id as the sort key, so a
// per-owner listing is a single Query over the owner's partition. The
// non-expanded listing is satisfied with a server-side ProjectionExpression,
// keeping the light listing cheap regardless of record size.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/index"
)

// projectionExpr selects the light-listing attributes {id, created, updated}.
// None of these are DynamoDB reserved words, unlike "type" and "size".
const projectionExpr = "id, created, updated"

// Index is a metadata index persisted in a DynamoDB table.
type Index struct {
	client *dynamodb.Client
	table  string
}

// item is the DynamoDB representation of a metadata record.
//
// Timestamps marshal as RFC 3339 strings via encoding.TextMarshaler, which
// keeps them readable in the console and sortable as strings.
type item struct {
	OwnerID string    `dynamodbav:"owner_id"`
	ID      string    `dynamodbav:"id"`
	Type    string    `dynamodbav:"type,omitempty"`
	Size    int64     `dynamodbav:"size"`
	Created time.Time `dynamodbav:"created"`
	Updated time.Time `dynamodbav:"updated"`
}

func toItem(md *store.Metadata) item {
	return item{
		OwnerID: md.OwnerID,
		ID:      md.ID,
		Type:    md.Type,
		Size:    md.Size,
		Created: md.Created,
		Updated: md.Updated,
	}
}

func (it item) metadata() *store.Metadata {
	return &store.Metadata{
		ID:      it.ID,
		OwnerID: it.OwnerID,
		Type:    it.Type,
		Size:    it.Size,
		Created: it.Created,
		Updated: it.Updated,
	}
}

// NewIndex creates an index over an existing DynamoDB table.
//
// The table must already exist with owner_id (S) as partition key and id (S)
// as sort key; this constructor does not create it.
func NewIndex(ctx context.Context, client *dynamodb.Client, table string) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if table == "" {
		return nil, fmt.Errorf("dynamodb index: table name is required")
	}
	return &Index{client: client, table: table}, nil
}

// Get returns the record for (ownerID, id), or ErrNotFound.
func (i *Index) Get(ctx context.Context, ownerID, id string) (*store.Metadata, error) {
	out, err := i.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(i.table),
		Key:       recordKey(ownerID, id),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("index entry %s: %w", id, store.ErrNotFound)
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to decode metadata item: %w", err)
	}
	return it.metadata(), nil
}

// Put upserts a record.
func (i *Index) Put(ctx context.Context, md *store.Metadata) (*store.Metadata, error) {
	if md == nil || md.ID == "" || md.OwnerID == "" {
		return nil, store.ErrInvalidMetadata
	}

	av, err := attributevalue.MarshalMap(toItem(md))
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata item: %w", err)
	}

	_, err = i.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(i.table),
		Item:      av,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb put: %w", err)
	}

	return md.Clone(), nil
}

// Delete removes the record for (ownerID, id). DynamoDB deletes are
// idempotent, so a missing record is not an error.
func (i *Index) Delete(ctx context.Context, ownerID, id string) error {
	_, err := i.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(i.table),
		Key:       recordKey(ownerID, id),
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete: %w", err)
	}
	return nil
}

// QueryByOwner queries the owner's partition, following pagination until the
// partition is exhausted.
func (i *Index) QueryByOwner(ctx context.Context, ownerID string, expand bool) ([]*store.Metadata, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(i.table),
		KeyConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
	}
	if !expand {
		input.ProjectionExpression = aws.String(projectionExpr)
	}

	out := make([]*store.Metadata, 0)
	for {
		page, err := i.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamodb query: %w", err)
		}

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode metadata items: %w", err)
		}
		for _, it := range items {
			md := it.metadata()
			if !expand {
				// The projection already dropped type/size; strip the owner
				// so projections look identical across backends.
				md.OwnerID = ""
			}
			out = append(out, md)
		}

		if page.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	return out, nil
}

// ListKeys scans the whole table fetching keys only. Used by the
// reconciliation sweep; a full table scan, so not for request paths.
func (i *Index) ListKeys(ctx context.Context) ([]index.Key, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(i.table),
		ProjectionExpression: aws.String("owner_id, id"),
	}

	keys := make([]index.Key, 0)
	for {
		page, err := i.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan: %w", err)
		}

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode key items: %w", err)
		}
		for _, it := range items {
			keys = append(keys, index.Key{OwnerID: it.OwnerID, ID: it.ID})
		}

		if page.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	return keys, nil
}

// Healthcheck verifies the table is reachable and active.
func (i *Index) Healthcheck(ctx context.Context) error {
	out, err := i.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(i.table),
	})
	if err != nil {
		return fmt.Errorf("dynamodb describe table: %w", err)
	}
	if out.Table.TableStatus != types.TableStatusActive {
		return fmt.Errorf("dynamodb table %s is %s, not active", i.table, out.Table.TableStatus)
	}
	return nil
}

// Close is a no-op; the SDK client holds no per-index resources.
func (i *Index) Close() error {
	return nil
}

// recordKey builds the composite primary key for one record.
func recordKey(ownerID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"owner_id": &types.AttributeValueMemberS{Value: ownerID},
		"id":       &types.AttributeValueMemberS{Value: id},
	}
}
