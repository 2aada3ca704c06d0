package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"treeplant/api/internal/photostore"
	"treeplant/api/internal/util"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store keeps photos as objects in a single MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects and creates the bucket when it does not exist yet.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := util.NewID(prefix) + photostore.ExtForMimeType(mimeType)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return "", fmt.Errorf("put photo: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	if !photostore.ValidKey(storageKey) {
		return nil, "", photostore.ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get photo: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("stat photo: %w", err)
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = photostore.MimeTypeForKey(storageKey)
	}
	return obj, contentType, nil
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if !photostore.ValidKey(storageKey) {
		return photostore.ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}
