package s3bucket

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Bucket stores objects under a fixed key prefix of one bucket.
type S3Bucket struct {
	client *s3.Client
	bucket string
	region string
	prefix string
}

func NewS3Bucket(cfg aws.Config, bucket string, prefix string) *S3Bucket {
	return &S3Bucket{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: cfg.Region,
		prefix: prefix,
	}
}

// Upload stores content under prefix/key and returns the object URL.
func (bucket *S3Bucket) Upload(ctx context.Context, key string, content []byte, mediaType string) (string, error) {
	fullKey := path.Join(bucket.prefix, key)
	_, err := bucket.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket.bucket,
		Key:         &fullKey,
		Body:        bytes.NewReader(content),
		ContentType: &mediaType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return bucket.ObjectURL(fullKey), nil
}

func (bucket *S3Bucket) ObjectURL(fullKey string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket.bucket, bucket.region, fullKey)
}
