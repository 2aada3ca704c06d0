package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"treeplant/api/internal/photostore"
	"treeplant/api/internal/util"
)

type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional, for S3-compatible services
	AccessKeyID     string // optional; default credential chain otherwise
	SecretAccessKey string
}

// Store keeps photos in one S3 bucket. Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
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
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := util.NewID(prefix) + photostore.ExtForMimeType(mimeType)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("put photo: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	if !photostore.ValidKey(storageKey) {
		return nil, "", photostore.ErrNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("get photo: %w", err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = photostore.MimeTypeForKey(storageKey)
	}
	return out.Body, contentType, nil
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if !photostore.ValidKey(storageKey) {
		return photostore.ErrNotFound
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)})
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
