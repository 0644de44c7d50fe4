package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/fragstore/fragstore/internal/logger"
	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/blob"
	blobFs "github.com/fragstore/fragstore/pkg/store/blob/fs"
	blobMemory "github.com/fragstore/fragstore/pkg/store/blob/memory"
	blobS3 "github.com/fragstore/fragstore/pkg/store/blob/s3"
	"github.com/fragstore/fragstore/pkg/store/cache"
	"github.com/fragstore/fragstore/pkg/store/durable"
	"github.com/fragstore/fragstore/pkg/store/index"
	indexBadger "github.com/fragstore/fragstore/pkg/store/index/badger"
	indexDynamo "github.com/fragstore/fragstore/pkg/store/index/dynamodb"
	indexMemory "github.com/fragstore/fragstore/pkg/store/index/memory"
	storeMemory "github.com/fragstore/fragstore/pkg/store/memory"
)

// awsOptions are the connection options shared by the AWS-backed stores.
// Endpoint and static credentials exist for MinIO/Localstack-style setups;
// production deployments leave them empty and use the default chain.
type awsOptions struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// ConfigureLogging applies the logging section to the process-wide logger.
func ConfigureLogging(cfg *LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)

	var w io.Writer
	switch cfg.Output {
	case "stdout", "":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log output %q: %w", cfg.Output, err)
		}
		w = f
	}
	logger.SetOutput(w)
	return nil
}

// CreateBackend assembles the storage backend described by the store
// section: the volatile backend or the durable index+blob composite, with
// the Redis cache layered on top when enabled.
//
// The backend is built once at startup and injected into the fragment
// model; nothing downstream re-reads configuration.
func CreateBackend(ctx context.Context, cfg *StoreConfig) (store.Backend, error) {
	var backend store.Backend

	switch cfg.Type {
	case "memory":
		backend = storeMemory.NewBackend()
	case "durable":
		idx, err := createIndex(ctx, &cfg.Index)
		if err != nil {
			return nil, err
		}
		blobs, err := createBlobStore(ctx, &cfg.Blob)
		if err != nil {
			return nil, err
		}
		backend, err = durable.NewBackend(idx, blobs)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}

	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		backend = cache.NewBackend(backend, cache.Config{
			Client: client,
			TTL:    cfg.Cache.TTL,
		})
		logger.Info("Redis cache enabled: addr=%s ttl=%s", cfg.Cache.Addr, cfg.Cache.TTL)
	}

	return backend, nil
}

// createIndex creates a metadata index based on configuration.
func createIndex(ctx context.Context, cfg *IndexConfig) (index.Index, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return indexMemory.NewIndex(), nil
	case "badger":
		return createBadgerIndex(ctx, cfg.Badger)
	case "dynamodb":
		return createDynamoDBIndex(ctx, cfg.DynamoDB)
	default:
		return nil, fmt.Errorf("unknown index type: %q (supported: memory, badger, dynamodb)", cfg.Type)
	}
}

// createBadgerIndex creates a BadgerDB-backed persistent index.
func createBadgerIndex(ctx context.Context, options map[string]any) (index.Index, error) {
	type BadgerIndexOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts BadgerIndexOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger index options: %w", err)
	}

	if opts.Path == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger index: path is required")
	}

	idx, err := indexBadger.NewIndex(ctx, indexBadger.Config{
		Path:     opts.Path,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger index: %w", err)
	}
	return idx, nil
}

// createDynamoDBIndex creates a DynamoDB-backed index.
func createDynamoDBIndex(ctx context.Context, options map[string]any) (index.Index, error) {
	type DynamoDBIndexOptions struct {
		awsOptions `mapstructure:",squash"`
		Table      string `mapstructure:"table"`
	}

	var opts DynamoDBIndexOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode dynamodb index options: %w", err)
	}

	if opts.Table == "" {
		return nil, fmt.Errorf("dynamodb index: table is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("dynamodb index: region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, opts.awsOptions)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(awsCfg)
	idx, err := indexDynamo.NewIndex(ctx, client, opts.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamodb index: %w", err)
	}

	logger.Info("DynamoDB index initialized: table=%s, region=%s", opts.Table, opts.Region)
	return idx, nil
}

// createBlobStore creates a blob store based on configuration.
func createBlobStore(ctx context.Context, cfg *BlobConfig) (blob.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return blobMemory.NewStore(), nil
	case "filesystem":
		return createFilesystemBlobStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3BlobStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob store type: %q (supported: memory, filesystem, s3)", cfg.Type)
	}
}

// createFilesystemBlobStore creates a filesystem-based blob store.
func createFilesystemBlobStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	type FilesystemBlobStoreOptions struct {
		Path string `mapstructure:"path"`
	}

	var opts FilesystemBlobStoreOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem blob store options: %w", err)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("filesystem blob store: path is required")
	}

	s, err := blobFs.NewStore(ctx, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem blob store: %w", err)
	}
	return s, nil
}

// createS3BlobStore creates an S3-based blob store.
func createS3BlobStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	type S3BlobStoreOptions struct {
		awsOptions `mapstructure:",squash"`
		Bucket     string `mapstructure:"bucket"`
		KeyPrefix  string `mapstructure:"key_prefix"`
	}

	var opts S3BlobStoreOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 blob store options: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 blob store: region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, opts.awsOptions)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	s, err := blobS3.NewStore(ctx, blobS3.Config{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
	}

	logger.Info("S3 blob store initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)
	return s, nil
}

// buildAWSConfig assembles an AWS SDK config from the shared options.
func buildAWSConfig(ctx context.Context, opts awsOptions) (aws.Config, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint for MinIO, Localstack, etc.
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default chain applies.
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry harder than the AWS default of 3: transient 5xx from S3 and
	// DynamoDB should not surface as request failures.
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
