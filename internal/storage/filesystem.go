package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists artifacts onto the local filesystem. It is intended for
// development and test environments where an object storage service is not
// available. URLs are formed from a configured public base so the rest of the
// pipeline behaves the same as with a remote store.
type FileStore struct {
	basePath  string
	publicURL string
}

// NewFileStore initializes a FileStore rooted at basePath serving under publicURL.
func NewFileStore(basePath, publicURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	publicURL = strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if publicURL == "" {
		publicURL = "http://localhost:8080/static"
	}
	return &FileStore{basePath: basePath, publicURL: publicURL}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Put writes the bytes under the given key and returns the public URL.
// Keys are cleaned to prevent directory traversal.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return s.publicURL + "/" + cleanKey, nil
}

// Get reads an object back by its public URL.
func (s *FileStore) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if s == nil {
		return nil, "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	key := strings.TrimPrefix(rawURL, s.publicURL+"/")
	if key == rawURL {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("storage: invalid url %q", rawURL)
		}
		key = strings.TrimLeft(parsed.Path, "/")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		return nil, "", fmt.Errorf("storage: read file: %w", err)
	}
	return data, mime.TypeByExtension(filepath.Ext(cleanKey)), nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ ObjectStore = (*FileStore)(nil)
