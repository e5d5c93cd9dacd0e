package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// s3Storage implements Storage on an S3 bucket.
type s3Storage struct {
	client *s3.Client
	bucket string
	region string
	logger zerolog.Logger
}

// NewS3Storage creates an S3-backed Storage using the default AWS credential chain.
func NewS3Storage(ctx context.Context, bucket, region string, logger zerolog.Logger) (Storage, error) {
	logger = logger.With().Str("component", "s3-media-storage").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 media storage initialised")

	return &s3Storage{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
		logger: logger,
	}, nil
}

// Save uploads body to the bucket. The key should already include any prefix.
func (s *s3Storage) Save(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("media uploaded to S3")

	return objectURL(s.bucket, s.region, key), nil
}

func objectURL(bucket, region, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, strings.Join(segments, "/"))
}

// fallbackStorage tries S3 first, then falls back to local storage.
type fallbackStorage struct {
	s3Storage    Storage
	localStorage Storage
	s3Prefix     string
	s3Enabled    bool
	logger       zerolog.Logger
}

// NewFallbackStorage creates a Storage that writes to S3 when enabled and
// falls back to local storage when the upload fails. If s3Storage is nil only
// local storage is used.
func NewFallbackStorage(s3Storage, localStorage Storage, s3Prefix string, s3Enabled bool, logger zerolog.Logger) Storage {
	return &fallbackStorage{
		s3Storage:    s3Storage,
		localStorage: localStorage,
		s3Prefix:     s3Prefix,
		s3Enabled:    s3Enabled,
		logger:       logger.With().Str("component", "fallback-media-storage").Logger(),
	}
}

// Save prepends the S3 prefix for S3 keys; local keys are used as-is.
func (s *fallbackStorage) Save(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error) {
	if s.s3Enabled && s.s3Storage != nil {
		s3Key := s.s3Prefix + key

		objURL, err := s.s3Storage.Save(ctx, s3Key, contentType, body)
		if err == nil {
			return objURL, nil
		}

		s.logger.Warn().
			Err(err).
			Str("s3_key", s3Key).
			Msg("failed to upload to S3, falling back to local storage")

		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to rewind upload body: %w", err)
		}
	} else {
		s.logger.Debug().
			Bool("s3_enabled", s.s3Enabled).
			Bool("has_s3_storage", s.s3Storage != nil).
			Msg("S3 disabled or not configured, using local storage")
	}

	return s.localStorage.Save(ctx, key, contentType, body)
}
