package blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the connection settings of an S3-compatible endpoint, such as
// the managed backend's storage gateway or MinIO.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// S3Store removes objects from a single bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3Store. Without explicit keys the default credential chain
// is used.
func NewS3(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket objects are removed from.
func (s *S3Store) Bucket() string { return s.bucket }

// Remove deletes key. S3 reports success for keys that do not exist.
func (s *S3Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
