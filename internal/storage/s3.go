package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vmestego-backend/internal/config"
)

// ImageContentType is the content type every presigned upload is bound to.
const ImageContentType = "image/jpeg"

// S3Store talks to an S3-compatible bucket with path-style addressing.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	endpoint  string
	bucket    string
	uploadTTL time.Duration
}

func NewS3Store(cfg config.S3Config) *S3Store {
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		bucket:    cfg.Bucket,
		uploadTTL: cfg.UploadURLTTL,
	}
}

// PresignPut returns a time-limited URL allowing a direct PUT of key.
func (s *S3Store) PresignPut(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(ImageContentType),
	}, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// URL builds the public read URL for key. Empty keys have no URL.
func (s *S3Store) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.endpoint + "/" + s.bucket + "/" + key
}
