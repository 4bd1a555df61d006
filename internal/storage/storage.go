package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the requested file does not exist
var ErrNotFound = errors.New("file not found")

// Storage defines the interface for receipt file storage
type Storage interface {
	// Download returns the raw bytes of a stored file
	Download(ctx context.Context, bucketID, fileID string) ([]byte, error)

	// Save stores a file under bucketID/fileID
	Save(ctx context.Context, bucketID, fileID string, data []byte) error
}

// LocalStorage implements the Storage interface using the local filesystem.
// Each bucket is a directory below basePath.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Download reads a file from local storage
func (l *LocalStorage) Download(ctx context.Context, bucketID, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.path(bucketID, fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucketID, fileID)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Save writes a file to local storage
func (l *LocalStorage) Save(ctx context.Context, bucketID, fileID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.path(bucketID, fileID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating bucket directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func (l *LocalStorage) path(bucketID, fileID string) (string, error) {
	if err := validID(bucketID); err != nil {
		return "", fmt.Errorf("bucket id: %w", err)
	}
	if err := validID(fileID); err != nil {
		return "", fmt.Errorf("file id: %w", err)
	}
	return filepath.Join(l.basePath, bucketID, fileID), nil
}

// validID rejects ids that would escape the bucket directory
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid id %q", id)
	}
	return nil
}
