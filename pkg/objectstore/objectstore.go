// Package objectstore uploads snapshots to S3-compatible object storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/internal/telemetry"
)

// ErrBucketRequired is returned by New when no bucket is configured.
var ErrBucketRequired = errors.New("objectstore: bucket is required")

// Config configures the S3 client.
type Config struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// UsePathStyle forces path-style addressing (MinIO, localstack).
	// Always on when Endpoint is set.
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// Enabled reports whether object storage is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}

// Uploader stores objects.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Metrics observes object store operations. A nil Metrics disables collection.
type Metrics interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	RecordBytes(operation string, bytes int64)
}

// API is the subset of *s3.Client used by Store.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store is an Uploader over one bucket.
type Store struct {
	api     API
	bucket  string
	prefix  string
	metrics Metrics
}

// NewClient builds an S3 client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	cfg.ApplyDefaults()

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// New wraps an S3 API for the configured bucket.
func New(api API, cfg Config, metrics Metrics) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	return &Store{
		api:     api,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		metrics: metrics,
	}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Verify checks that the bucket exists and is reachable.
func (s *Store) Verify(ctx context.Context) error {
	start := time.Now()
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	s.observe("HeadBucket", start, err)
	if err != nil {
		return fmt.Errorf("bucket %q is not accessible: %w", s.bucket, err)
	}
	return nil
}

// Key returns the full object key for name.
func (s *Store) Key(name string) string {
	if s.prefix == "" {
		return strings.TrimLeft(name, "/")
	}
	return path.Join(s.prefix, name)
}

// Put uploads body under key (prefix applied).
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) (err error) {
	fullKey := s.Key(key)
	ctx, span := telemetry.StartClientSpan(ctx, telemetry.SpanObjectPut,
		telemetry.Bucket(s.bucket), telemetry.StorageKey(fullKey))
	defer func() { telemetry.Finish(span, err) }()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	start := time.Now()
	_, err = s.api.PutObject(ctx, input)
	s.observe("PutObject", start, err)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}
	if s.metrics != nil {
		s.metrics.RecordBytes("PutObject", int64(len(body)))
	}

	logger.DebugCtx(ctx, "Object uploaded", "bucket", s.bucket, "key", fullKey, "bytes", len(body))
	return nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, time.Since(start), err)
	}
}
