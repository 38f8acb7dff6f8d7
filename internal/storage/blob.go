package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath  = errors.New("invalid blob path")
	ErrBlobNotFound = errors.New("blob not found")
)

// BlobStore keeps binary objects under slash-separated paths and hands out
// durable URLs for them.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	PublicURL(ctx context.Context, key string) (string, error)
}

// AvatarKey is the blob path of an identity's avatar.
func AvatarKey(userID string) string {
	return "avatars/" + userID
}

// FileBlobStore stores blobs in a local directory that the HTTP server
// exposes under baseURL.
type FileBlobStore struct {
	root    string
	baseURL string
}

func NewFileBlobStore(root, baseURL string) (*FileBlobStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FileBlobStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *FileBlobStore) Root() string {
	return s.root
}

// Put writes the object atomically, replacing any previous version.
func (s *FileBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}

// PublicURL fails with ErrBlobNotFound when nothing was stored under key.
func (s *FileBlobStore) PublicURL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrBlobNotFound
		}
		return "", err
	}
	return s.baseURL + "/" + path.Clean(key), nil
}

func (s *FileBlobStore) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}
