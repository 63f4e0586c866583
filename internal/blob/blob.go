package blob

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// Handle addresses the raw bytes of a document for as long as the document is in use.
// It is a URI: file:///abs/path, s3://bucket/key, or an http(s) origin.
type Handle string

var (
	ErrNotFound          = errors.New("blob: not found")
	ErrUnsupportedHandle = errors.New("blob: unsupported handle")
)

// Store allocates and resolves document byte sources.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (Handle, error)
	Open(ctx context.Context, h Handle) ([]byte, error)
	// Path returns a local file that holds the bytes behind h, for tools that need a filename.
	Path(ctx context.Context, h Handle) (string, error)
	Release(ctx context.Context, h Handle) error
	Owns(h Handle) bool
}

// Scheme reports the URI scheme of h, lower-cased.
func (h Handle) Scheme() string {
	parsed, err := url.Parse(string(h))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme)
}

// IsRemote reports whether h points at an http(s) origin.
func (h Handle) IsRemote() bool {
	switch h.Scheme() {
	case "http", "https":
		return true
	default:
		return false
	}
}

// FileHandle builds a file:// handle for an absolute path.
func FileHandle(path string) Handle {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return Handle(u.String())
}

func filePath(h Handle) (string, error) {
	parsed, err := url.Parse(string(h))
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(parsed.Scheme, "file") {
		return "", ErrUnsupportedHandle
	}
	return filepath.FromSlash(parsed.Path), nil
}

func sanitizeName(value string) string {
	value = filepath.Base(strings.TrimSpace(value))
	value = strings.TrimSuffix(value, filepath.Ext(value))
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "..", "-", " ", "_")
	value = replacer.Replace(value)
	if value == "" || value == "." {
		return "document"
	}
	if len(value) > 64 {
		value = value[:64]
	}
	return value
}
