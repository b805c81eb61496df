package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lehigh-university-libraries/snapcard/internal/config"
)

// Uploader is the subset of manager.Uploader used for publishing.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher copies finished cards to a bucket under a key prefix
type S3Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3Publisher builds a publisher from configuration. Static credentials
// are used only when both keys are set; otherwise the default AWS chain applies.
func NewS3Publisher(ctx context.Context, cfg config.S3Config) (*S3Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return NewWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix), nil
}

func NewWithUploader(u Uploader, bucket, prefix string) *S3Publisher {
	return &S3Publisher{uploader: u, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a local file.
func (p *S3Publisher) Key(localPath string) string {
	return path.Join(p.prefix, filepath.Base(localPath))
}

// Publish uploads each file and returns the resulting object locations.
// It stops at the first failure.
func (p *S3Publisher) Publish(ctx context.Context, paths ...string) ([]string, error) {
	locations := make([]string, 0, len(paths))
	for _, localPath := range paths {
		loc, err := p.upload(ctx, localPath)
		if err != nil {
			return locations, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func (p *S3Publisher) upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	key := p.Key(localPath)
	result, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	slog.Info("Card published", "bucket", p.bucket, "key", key, "location", result.Location)
	return result.Location, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
