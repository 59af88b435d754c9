package storage

import (
	"alcyxob/adherence-app/internal/config"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Storage keeps tracking media in one S3 (or S3-compatible) bucket.
type s3Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
}

// NewS3Storage builds the media store. Static credentials are used when an
// access key is configured; otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (FileStorage, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		// S3-compatible services (MinIO, Spaces) need a custom endpoint and path-style addressing
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Printf("INFO: Media storage ready (bucket=%s, endpoint=%q)", cfg.BucketName, cfg.Endpoint)

	return &s3Storage{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
	}, nil
}

func presignTTL(expires time.Duration) func(*s3.PresignOptions) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	return s3.WithPresignExpires(expires)
}

// GeneratePresignedUploadURL signs a PUT of one media object. Only the host is
// signed; the content type is stored on the object when the client sends it but
// is not enforced by the bucket, so callers validate it on attach.
func (s *s3Storage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, presignTTL(expires))
	if err != nil {
		return "", fmt.Errorf("presign PUT %s: %w", objectKey, err)
	}
	return req.URL, nil
}

// GeneratePresignedDownloadURL signs a GET of one media object.
func (s *s3Storage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, presignTTL(expires))
	if err != nil {
		return "", fmt.Errorf("presign GET %s: %w", objectKey, err)
	}
	return req.URL, nil
}

// DeleteObject removes detached media. S3 reports success for keys that are already gone.
func (s *s3Storage) DeleteObject(ctx context.Context, objectKey string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.bucketName, objectKey, err)
	}
	log.Printf("INFO: Deleted media object %s from bucket %s", objectKey, s.bucketName)
	return nil
}
