package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	gcsUploadTimeout = 2 * time.Minute
	gcsDeleteTimeout = 30 * time.Second
)

type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore opens a client for bucket. Without a credentials file the
// application default credentials are used.
func NewGCSStore(ctx context.Context, bucket, credentialsFile, publicBaseURL string) (*GCSStore, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, gcsUploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer %q: %w", key, err)
	}

	return s.PublicURL(key), nil
}

func (s *GCSStore) Delete(ctx context.Context, objectPath string) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, gcsDeleteTimeout)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

// PublicURL is the download URL of key, escaped segment by segment.
func (s *GCSStore) PublicURL(key string) string {
	key = escapeKey(strings.TrimLeft(key, "/"))
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", url.PathEscape(s.bucket), key)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
