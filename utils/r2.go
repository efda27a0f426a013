package utils

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Config locates a Cloudflare R2 bucket.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is set to reach the bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// R2ImageStore uploads scan images to R2 and hands back their public URL.
type R2ImageStore struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2ImageStore(ctx context.Context, c R2Config) (*R2ImageStore, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	cdnBaseURL := c.CDNBaseURL
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID, c.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2ImageStore{client: client, bucket: c.Bucket, cdnBaseURL: cdnBaseURL}, nil
}

// SaveImage uploads data under key (e.g. "scans/<user>/<id>.jpg").
func (s *R2ImageStore) SaveImage(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.cdnBaseURL, key), nil
}
