// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// entityHashMetaKey is the S3 user-metadata key the entity content hash
// is stored under. Bucket listings cannot return user metadata, so hashes
// ride back through the caller's persisted mirror instead of listings.
const entityHashMetaKey = "entity-hash"

// s3API is the slice of the AWS SDK S3 client this transport relies on.
// Narrowing the dependency to an interface keeps the transport testable
// without a live bucket.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ s3API = (*s3.Client)(nil)

type s3RemoteTransport struct {
	api    s3API
	bucket string
	prefix string

	logger *logger.Logger
}

// NewS3RemoteTransport constructs an S3 implementation of
// [RemoteTransport] for S3-compatible object stores (AWS, MinIO).
// Credentials fall back to the default AWS chain when not set explicitly;
// a custom endpoint switches the client to the configured addressing
// style. Returns an error when no bucket is configured or the AWS config
// cannot be assembled.
func NewS3RemoteTransport(ctx context.Context, s3Cfg config.ClientS3, logger *logger.Logger) (RemoteTransport, error) {
	if s3Cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := s3Cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if s3Cfg.AccessKeyID != "" && s3Cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Cfg.AccessKeyID, s3Cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s3Cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3Cfg.Endpoint)
			o.UsePathStyle = s3Cfg.UsePathStyle
		})
	}

	return newS3RemoteTransport(s3.NewFromConfig(awsCfg, s3Opts...), s3Cfg.Bucket, s3Cfg.Prefix, logger), nil
}

// newS3RemoteTransport wires a transport over an existing API client.
// Split from the exported constructor so tests can inject a fake.
func newS3RemoteTransport(api s3API, bucket, prefix string, logger *logger.Logger) *s3RemoteTransport {
	return &s3RemoteTransport{api: api, bucket: bucket, prefix: prefix, logger: logger}
}

// ListMetadata implements [RemoteTransport]. It pages through the bucket
// under the configured prefix and maps every object to a descriptor.
// Hash stays empty because object listings carry no user metadata;
// callers resolve hashes through their persisted mirror or by fetching
// the blob.
func (s *s3RemoteTransport) ListMetadata(ctx context.Context) ([]models.SyncMetadata, error) {
	items := make([]models.SyncMetadata, 0, 50)

	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error(fmt.Errorf("s3 list objects: %w", err))
		}
		for _, obj := range page.Contents {
			items = append(items, models.SyncMetadata{
				Path:     strings.TrimPrefix(aws.ToString(obj.Key), s.prefix),
				Size:     aws.ToInt64(obj.Size),
				Modified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return items, nil
}

// Get implements [RemoteTransport]. It downloads the object at the
// prefixed key and returns its full body. A missing key maps to
// [ErrNotFound].
func (s *s3RemoteTransport) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %w: %s", ErrPermanent, ErrNotFound, path)
		}
		return nil, classifyS3Error(fmt.Errorf("s3 get object: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read body: %w", ErrTransient, err)
	}

	return blob, nil
}

// Put implements [RemoteTransport]. It uploads the blob with the entity
// content hash attached as object metadata, then reads the stored
// object's attributes back so the caller mirrors the store's own size
// and modification time rather than local approximations.
func (s *s3RemoteTransport) Put(ctx context.Context, path string, blob []byte, hash string) (models.SyncMetadata, error) {
	key := s.prefix + path

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(blob),
		Metadata: map[string]string{entityHashMetaKey: hash},
	})
	if err != nil {
		return models.SyncMetadata{}, classifyS3Error(fmt.Errorf("s3 put object: %w", err))
	}

	head, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// The upload itself succeeded. Fall back to locally known values
		// rather than failing the push over a metadata read.
		s.logger.Err(err).Str("func", "s3RemoteTransport.Put").Str("path", path).Msg("head after put failed, using local metadata")
		return models.SyncMetadata{Path: path, Size: int64(len(blob)), Modified: time.Now().UTC(), Hash: hash}, nil
	}

	return models.SyncMetadata{
		Path:     path,
		Size:     aws.ToInt64(head.ContentLength),
		Modified: aws.ToTime(head.LastModified),
		Hash:     hash,
	}, nil
}

// Delete implements [RemoteTransport]. S3 deletes are already idempotent,
// removing a missing key succeeds silently, which matches the contract.
func (s *s3RemoteTransport) Delete(ctx context.Context, path string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + path),
	})
	if err != nil {
		return classifyS3Error(fmt.Errorf("s3 delete object: %w", err))
	}
	return nil
}

// isS3NotFound reports whether err is the store's missing-key response.
// The typed errors cover plain S3; the substring checks cover
// S3-compatible services that answer with a bare 404.
func isS3NotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

// classifyS3Error wraps err as transient or permanent. The SDK surfaces
// retryable failures through well-known message fragments; anything else
// is treated as permanent so misconfiguration fails fast.
func classifyS3Error(err error) error {
	if isRetryableS3(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func isRetryableS3(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"slowdown",
		"too many requests",
		"internal error",
		"429",
		"500",
		"502",
		"503",
		"504",
	}
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
