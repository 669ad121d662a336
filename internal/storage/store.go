// Package storage holds the blob store behind shared session files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

var ErrInvalidPath = errors.New("invalid object path")

// Store persists file blobs and hands back a URL clients can download from.
type Store interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// SessionFilePath is sessions/<sessionId>/files/<unixMillis>_<name>.
func SessionFilePath(sessionID, name string, now time.Time) string {
	return fmt.Sprintf("sessions/%s/files/%d_%s", sessionID, now.UnixMilli(), SanitizeName(name))
}

// SanitizeName keeps the last path element of name so it cannot escape its
// session prefix.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "file"
	}
	return base
}

func cleanObjectPath(objectPath string) (string, error) {
	cleaned := path.Clean(strings.TrimLeft(objectPath, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// escapeKey path-escapes every segment of key for use in a download URL.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
