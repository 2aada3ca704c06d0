package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"treeplant/api/internal/photostore"
	"treeplant/api/internal/util"
)

// Store writes photos as flat files under basePath.
type Store struct {
	basePath string
	logger   *zap.Logger
}

func New(basePath string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create photo directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{basePath: basePath, logger: logger}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := util.NewID(prefix) + photostore.ExtForMimeType(mimeType)
	filePath, err := s.safeJoin(key)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			s.logger.Error("close photo after write error", zap.String("key", key), zap.Error(cerr))
		}
		s.remove(filePath)
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := f.Close(); err != nil {
		s.remove(filePath)
		return "", fmt.Errorf("close photo: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("open photo: %w", err)
	}
	return f, photostore.MimeTypeForKey(storageKey), nil
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return photostore.ErrNotFound
		}
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func (s *Store) remove(filePath string) {
	if err := os.Remove(filePath); err != nil {
		s.logger.Error("remove partial photo", zap.String("path", filePath), zap.Error(err))
	}
}

// safeJoin resolves storageKey relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(storageKey string) (string, error) {
	if !photostore.ValidKey(storageKey) {
		return "", photostore.ErrNotFound
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, storageKey))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", photostore.ErrNotFound
	}
	return absPath, nil
}
