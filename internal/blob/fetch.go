package blob

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	fetchTTL           = 24 * time.Hour
	metaSuffix         = ".meta"
	defaultHTTPTimeout = 90 * time.Second
)

// Fetcher downloads remote documents into a local cache directory, reusing
// fresh copies and resuming interrupted transfers.
type Fetcher struct {
	dir    string
	client *http.Client
	ttl    time.Duration
}

type fetchMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

func NewFetcher(dir string, client *http.Client) (*Fetcher, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "pagetutor", "remote")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Fetcher{dir: dir, client: client, ttl: fetchTTL}, nil
}

// Fetch returns the bytes at rawURL, going to the network only when the
// cached copy is missing or older than the TTL. A stale copy is served when
// the origin is unreachable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	path, err := f.FetchPath(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (f *Fetcher) FetchPath(ctx context.Context, rawURL string) (string, error) {
	key := fetchKey(rawURL)
	pdfPath, metaPath, partialPath := f.pathsFor(key)

	if info, err := os.Stat(pdfPath); err == nil && time.Since(info.ModTime()) < f.ttl && info.Size() > 0 {
		return pdfPath, nil
	}

	meta, _ := readMeta(metaPath)
	info, _ := os.Stat(pdfPath)
	path, err := f.download(ctx, rawURL, pdfPath, metaPath, partialPath, meta, info)
	if err == nil {
		return path, nil
	}
	if info != nil && info.Size() > 0 {
		return pdfPath, nil
	}
	return "", err
}

func (f *Fetcher) download(ctx context.Context, rawURL, pdfPath, metaPath, partialPath string, meta fetchMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(partialPath); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		} else if meta.LastModified != "" {
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			now := time.Now()
			_ = os.Chtimes(pdfPath, now, now)
			meta.CachedAt = now.UTC()
			_ = writeMeta(metaPath, meta)
			return pdfPath, nil
		}
		return f.download(ctx, rawURL, pdfPath, metaPath, partialPath, fetchMeta{}, nil)
	case http.StatusOK:
		return f.saveBody(resp, pdfPath, metaPath, partialPath, false)
	case http.StatusPartialContent:
		return f.saveBody(resp, pdfPath, metaPath, partialPath, partialSize > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch %s: %s (%s)", rawURL, resp.Status, string(body))
	}
}

func (f *Fetcher) saveBody(resp *http.Response, pdfPath, metaPath, partialPath string, appendExisting bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, pdfPath); err != nil {
		return "", err
	}

	meta := fetchMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(pdfPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return "", err
	}
	return pdfPath, nil
}

func (f *Fetcher) pathsFor(key string) (string, string, string) {
	return filepath.Join(f.dir, key+".pdf"), filepath.Join(f.dir, key+metaSuffix), filepath.Join(f.dir, key+partialSuffix)
}

func fetchKey(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func readMeta(path string) (fetchMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fetchMeta{}, err
	}
	var meta fetchMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fetchMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta fetchMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
