package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/config"
)

// S3Store implements MediaStore on an S3-compatible bucket.
// Works against AWS S3 as well as MinIO-style endpoints.
type S3Store struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed media store.
func NewS3Store(ctx context.Context, cfg config.S3MediaConfig, logger zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("region", cfg.Region).
		Msg("S3 media store ready")

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Save stores content under the given key, replacing any existing object.
func (s *S3Store) Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	s.logger.Debug().Str("key", key).Int64("size", size).Msg("media saved")
	return nil
}

// Open retrieves stored content by key.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, *MediaInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil, ErrMediaNotFound
		}
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}

	info := &MediaInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}

	return out.Body, info, nil
}

// Delete removes stored content by key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrMediaNotFound
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("media deleted")
	return nil
}

// Exists checks if an object with the given key exists.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

// isNoSuchKey reports whether an S3 error means the object doesn't exist.
func isNoSuchKey(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// Ensure S3Store implements MediaStore.
var _ MediaStore = (*S3Store)(nil)
