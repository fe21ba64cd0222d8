package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Storage struct {
	client *s3.Client
	config S3Config
}

type S3Config struct {
	Bucket string
	Prefix string
	// Endpoint overrides the S3 endpoint. When empty, S3_ENDPOINT_URL is
	// consulted.
	Endpoint string
}

// NewS3Storage returns a Storage uploading to c.Bucket. Credentials and
// region come from the default AWS configuration chain.
func NewS3Storage(ctx context.Context, c S3Config) (Storage, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("storage: no S3 bucket")
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("S3_ENDPOINT_URL")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})

	return &s3Storage{client: client, config: c}, nil
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte) (string, error) {
	key = path.Join(s.config.Prefix, key)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/html; charset=utf-8"),
	}); err != nil {
		return "", fmt.Errorf("storage: uploading %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}
