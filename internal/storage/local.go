package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalPathPrefix is where LocalStore blobs are served from.
const LocalPathPrefix = "/files/"

// LocalStore keeps blobs in a directory and serves them under LocalPathPrefix.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	base := strings.TrimRight(publicBaseURL, "/") + strings.TrimRight(LocalPathPrefix, "/")
	return &LocalStore{root: root, baseURL: base}, nil
}

func (s *LocalStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create object %q: %w", key, err)
	}
	if _, err := io.Copy(f, readerWithContext(ctx, r)); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write object %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close object %q: %w", key, err)
	}

	return s.baseURL + "/" + escapeKey(key), nil
}

func (s *LocalStore) Delete(_ context.Context, objectPath string) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key))); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// Handler serves stored blobs. Mount it at LocalPathPrefix.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix(LocalPathPrefix, http.FileServer(http.Dir(s.root)))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
