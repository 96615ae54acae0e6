// Package storage turns generated media bytes (images, narration audio)
// into stable references a story can carry. The default backend is a local
// directory; an S3-compatible backend can be enabled for shareable URLs.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AssetStore persists a generated media blob and returns its reference.
type AssetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DirStore keeps media under a local directory and returns references of
// the form <baseURL>/<key>. With an empty baseURL the reference is the
// absolute file path, which the audio player can open directly.
type DirStore struct {
	dir     string
	baseURL string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir, baseURL string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &DirStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *DirStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(d.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media subdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if d.baseURL == "" {
		return path, nil
	}
	return d.baseURL + "/" + key, nil
}

// Dir returns the root directory, for serving media over HTTP.
func (d *DirStore) Dir() string { return d.dir }
