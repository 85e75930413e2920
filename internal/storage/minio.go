package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig contains the information required to talk to an S3-compatible store.
type MinioConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL is the externally reachable base for stored objects. When
	// empty, URLs are derived from the endpoint and bucket.
	PublicURL string
}

// MinioStore implements ObjectStore on top of an S3-compatible service.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore initializes the client and resolves the public URL base.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioStore{client: cl, bucket: cfg.Bucket, publicURL: public}, nil
}

// Put uploads the bytes and returns the object's public URL.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(key, "/")
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

// Get reads an object back by its public URL.
func (s *MinioStore) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("storage: read %s: %w", key, err)
	}
	contentType := ""
	if stat, statErr := obj.Stat(); statErr == nil {
		contentType = stat.ContentType
	}
	return data, contentType, nil
}

func (s *MinioStore) keyFromURL(rawURL string) (string, error) {
	if strings.HasPrefix(rawURL, s.publicURL+"/") {
		return strings.TrimPrefix(rawURL, s.publicURL+"/"), nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("storage: invalid url %q", rawURL)
	}
	path := strings.TrimLeft(parsed.Path, "/")
	if trimmed, ok := strings.CutPrefix(path, s.bucket+"/"); ok {
		return trimmed, nil
	}
	if path == "" {
		return "", fmt.Errorf("storage: url %q has no object key", rawURL)
	}
	return path, nil
}

var _ ObjectStore = (*MinioStore)(nil)
