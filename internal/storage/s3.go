package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// uploader is the part of manager.Uploader the store needs
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Store uploads files to an S3 bucket
type S3Store struct {
	uploader  uploader
	bucket    string
	publicURL string
	logger    logger.Logger
}

// NewS3Store loads the default AWS credential chain and returns a store for cfg.S3Bucket
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger logger.Logger) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	publicURL := cfg.S3PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, awsCfg.Region)
	}

	client := s3.NewFromConfig(awsCfg)
	return newS3Store(manager.NewUploader(client), cfg.S3Bucket, publicURL, logger), nil
}

func newS3Store(u uploader, bucket, publicURL string, logger logger.Logger) *S3Store {
	return &S3Store{
		uploader:  u,
		bucket:    bucket,
		publicURL: publicURL,
		logger:    logger,
	}
}

func (s *S3Store) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := ObjectName(name, models.GetCurrentTime())

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		s.logger.Error("Failed to upload to s3", "error", err, "bucket", s.bucket, "key", key)
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return key, nil
}

func (s *S3Store) URL(ref string) string {
	return s.publicURL + "/" + ref
}
