package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type S3Options struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// S3Store keeps document bytes as objects in a bucket. Path downloads each
// object into a scratch directory once so the renderer can read it.
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	scratch string

	mu    sync.Mutex
	local map[Handle]string
}

func NewS3Store(opts S3Options, scratch string) (*S3Store, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket and region are required")
	}
	if scratch == "" {
		scratch = filepath.Join(os.TempDir(), "pagetutor-s3")
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, err
	}

	cfg := aws.Config{Region: region}
	if opts.AccessKeyID != "" || opts.SecretAccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(opts.AccessKeyID),
			strings.TrimSpace(opts.SecretAccessKey),
			"",
		)
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	pathStyle := opts.PathStyleAccess || endpoint != ""
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  normalizeObjectKey(opts.Prefix),
		scratch: scratch,
		local:   make(map[Handle]string),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte) (Handle, error) {
	key := normalizeObjectKey(path.Join(s.prefix, fmt.Sprintf("%s-%s.pdf", uuid.NewString(), sanitizeName(name))))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return objectHandle(s.bucket, key), nil
}

func (s *S3Store) Open(ctx context.Context, h Handle) ([]byte, error) {
	bucket, key, err := parseObjectHandle(h)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, h)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) Path(ctx context.Context, h Handle) (string, error) {
	s.mu.Lock()
	cached, ok := s.local[h]
	s.mu.Unlock()
	if ok {
		if info, err := os.Stat(cached); err == nil && info.Size() > 0 {
			return cached, nil
		}
	}

	data, err := s.Open(ctx, h)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.scratch, fetchKey(string(h))+".pdf")
	if err := os.WriteFile(target+partialSuffix, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(target+partialSuffix, target); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.local[h] = target
	s.mu.Unlock()
	return target, nil
}

func (s *S3Store) Release(ctx context.Context, h Handle) error {
	if !s.Owns(h) {
		return nil
	}
	bucket, key, err := parseObjectHandle(h)
	if err != nil {
		return err
	}

	s.mu.Lock()
	cached, ok := s.local[h]
	delete(s.local, h)
	s.mu.Unlock()
	if ok {
		_ = os.Remove(cached)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Owns(h Handle) bool {
	bucket, key, err := parseObjectHandle(h)
	if err != nil || bucket != s.bucket {
		return false
	}
	return s.prefix == "" || strings.HasPrefix(key, s.prefix+"/")
}

func objectHandle(bucket, key string) Handle {
	u := url.URL{Scheme: "s3", Host: bucket, Path: "/" + key}
	return Handle(u.String())
}

func parseObjectHandle(h Handle) (string, string, error) {
	parsed, err := url.Parse(string(h))
	if err != nil {
		return "", "", err
	}
	if !strings.EqualFold(parsed.Scheme, "s3") || parsed.Host == "" {
		return "", "", ErrUnsupportedHandle
	}
	key := normalizeObjectKey(parsed.Path)
	if key == "" {
		return "", "", ErrUnsupportedHandle
	}
	return parsed.Host, key, nil
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return strings.TrimSuffix(key, "/")
}
