package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Store uploads generated media to an S3-compatible bucket and returns
// public URLs. Used instead of DirStore when a bucket is configured, so
// story images and narration audio get shareable links.
type S3Store struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store creates a new S3-backed asset store.
func NewS3Store(endpoint, region, bucket, accessKey, secretKey, publicURL string) (*S3Store, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}
	if endpoint != "" {
		configOpts = append(configOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing and relaxed checksums keep MinIO/R2 working.
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	log.Info().Str("endpoint", endpoint).Str("bucket", bucket).Msg("S3 asset store initialized")

	return &S3Store{s3Client: s3Client, bucket: bucket, publicURL: publicURL}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("Media uploaded to S3")

	if s.publicURL == "" {
		return "s3://" + s.bucket + "/" + key, nil
	}
	if s.publicURL[len(s.publicURL)-1] == '/' {
		return s.publicURL + key, nil
	}
	return s.publicURL + "/" + key, nil
}
