package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Options struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// S3Store uploads exports to a bucket under <prefix>/<uuid>/<name>.
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	region   string
	prefix   string
	logger   *slog.Logger
}

func NewS3Store(ctx context.Context, log *slog.Logger, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("AWS region not set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "exports"
	}
	return &S3Store{
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
		bucket:   opts.Bucket,
		region:   opts.Region,
		prefix:   prefix,
		logger:   log.With(slog.String("service", "artifacts.s3")),
	}, nil
}

func (s *S3Store) objectKey(name string) string {
	return path.Join(s.prefix, uuid.NewString(), name)
}

// Save uploads data and returns the object URL.
func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.objectKey(name)

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := s.uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	s.logger.Debug("export uploaded", slog.String("key", key))
	return url, nil
}
