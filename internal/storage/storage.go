// Package storage persists named records (settings and the document
// history) behind one small key/value interface.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound = errors.New("storage: record not found")
	ErrDecode   = errors.New("storage: record cannot be decoded")
)

// Record names.
const (
	KeyCredential    = "api_credential"
	KeySystemPrompt  = "system_prompt"
	KeySelectedModel = "selected_model"
	KeyCustomPrompts = "custom_prompts"
	KeyHistory       = "pdf_history"
)

// Store holds named byte records. Set replaces the whole value.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// GetJSON decodes the named record into out.
func GetJSON(ctx context.Context, s Store, name string, out any) error {
	data, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	return nil
}

// SetJSON encodes value and stores it under name.
func SetJSON(ctx context.Context, s Store, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.Set(ctx, name, data)
}

// GetString returns the named record as text, or "" when absent.
func GetString(ctx context.Context, s Store, name string) (string, error) {
	data, err := s.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type Driver string

const (
	DriverFile     Driver = "file"
	DriverRedis    Driver = "redis"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config selects and configures a backend.
type Config struct {
	Driver    Driver `yaml:"driver" validate:"omitempty,oneof=file redis postgres mysql"`
	Path      string `yaml:"path"`
	RedisURL  string `yaml:"redis_url" validate:"required_if=Driver redis"`
	KeyPrefix string `yaml:"key_prefix"`
	DSN       string `yaml:"dsn" validate:"required_if=Driver postgres,required_if=Driver mysql"`
}

// Open returns the backend named by cfg.Driver. dataDir anchors the file backend.
func Open(ctx context.Context, cfg Config, dataDir string) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case "", DriverFile:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "state.json")
		}
		return NewFileStore(path)
	case DriverRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case DriverPostgres, DriverMySQL:
		return OpenSQL(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
