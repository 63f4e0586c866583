// Package config loads startup configuration from a YAML file, an optional
// .env file and PAGETUTOR_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/csheth/pagetutor/internal/blob"
	"github.com/csheth/pagetutor/internal/conversation"
	"github.com/csheth/pagetutor/internal/history"
	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/logging"
	"github.com/csheth/pagetutor/internal/render"
	"github.com/csheth/pagetutor/internal/storage"
)

const (
	configFileName = "config.yml"
	appDirName     = "pagetutor"
)

type Config struct {
	DataDir string          `yaml:"data_dir"`
	Log     logging.Options `yaml:"log"`
	LLM     LLMConfig       `yaml:"llm"`
	Storage storage.Config  `yaml:"storage"`
	Blob    BlobConfig      `yaml:"blob"`
	Render  RenderConfig    `yaml:"render"`
	History HistoryConfig   `yaml:"history"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"omitempty,oneof=openai anthropic ollama"`
	Endpoint    string        `yaml:"endpoint" validate:"omitempty,url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
}

type BlobConfig struct {
	Driver   string         `yaml:"driver" validate:"omitempty,oneof=disk s3"`
	Dir      string         `yaml:"dir"`
	FetchDir string         `yaml:"fetch_dir"`
	S3       blob.S3Options `yaml:"s3"`
}

type RenderConfig struct {
	Command        string  `yaml:"command"`
	ViewerScale    float64 `yaml:"viewer_scale" validate:"gt=0"`
	ThumbnailScale float64 `yaml:"thumbnail_scale" validate:"gt=0"`
	CacheEntries   int     `yaml:"cache_entries" validate:"gt=0"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity" validate:"gt=0"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		LLM: LLMConfig{
			Provider:    string(llm.ProviderOpenAI),
			Timeout:     conversation.DefaultTimeout,
			Temperature: llm.DefaultTemperature,
		},
		Storage: storage.Config{Driver: storage.DriverFile},
		Blob:    BlobConfig{Driver: "disk"},
		Render: RenderConfig{
			Command:        "pdftoppm",
			ViewerScale:    render.DefaultViewerScale,
			ThumbnailScale: render.DefaultThumbnailScale,
			CacheEntries:   render.DefaultEntries,
		},
		History: HistoryConfig{Capacity: history.DefaultCapacity},
	}
}

// DefaultPath is the config file looked up when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(dir, appDirName, configFileName)
}

// Load reads path (or DefaultPath when empty). An explicit path must exist;
// the default one is optional.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DataDir = getEnv("PAGETUTOR_DATA_DIR", cfg.DataDir)
	cfg.Log.Path = getEnv("PAGETUTOR_LOG_PATH", cfg.Log.Path)
	cfg.Log.Level = getEnv("PAGETUTOR_LOG_LEVEL", cfg.Log.Level)

	cfg.LLM.Provider = getEnv("PAGETUTOR_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Endpoint = getEnv("PAGETUTOR_LLM_ENDPOINT", cfg.LLM.Endpoint)
	cfg.LLM.Model = getEnv("PAGETUTOR_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = getEnv("PAGETUTOR_LLM_API_KEY", cfg.LLM.APIKey)
	if raw, ok := os.LookupEnv("PAGETUTOR_LLM_TIMEOUT"); ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("PAGETUTOR_LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}
	if raw, ok := os.LookupEnv("PAGETUTOR_LLM_TEMPERATURE"); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("PAGETUTOR_LLM_TEMPERATURE: %w", err)
		}
		cfg.LLM.Temperature = v
	}

	cfg.Storage.Driver = storage.Driver(getEnv("PAGETUTOR_STORAGE_DRIVER", string(cfg.Storage.Driver)))
	cfg.Storage.RedisURL = getEnv("PAGETUTOR_REDIS_URL", cfg.Storage.RedisURL)
	cfg.Storage.DSN = getEnv("PAGETUTOR_DATABASE_DSN", cfg.Storage.DSN)

	cfg.Blob.Driver = getEnv("PAGETUTOR_BLOB_DRIVER", cfg.Blob.Driver)
	cfg.Blob.S3.Bucket = getEnv("PAGETUTOR_S3_BUCKET", cfg.Blob.S3.Bucket)
	cfg.Blob.S3.Region = getEnv("PAGETUTOR_S3_REGION", cfg.Blob.S3.Region)
	cfg.Blob.S3.Endpoint = getEnv("PAGETUTOR_S3_ENDPOINT", cfg.Blob.S3.Endpoint)
	cfg.Blob.S3.AccessKeyID = getEnv("PAGETUTOR_S3_ACCESS_KEY_ID", cfg.Blob.S3.AccessKeyID)
	cfg.Blob.S3.SecretAccessKey = getEnv("PAGETUTOR_S3_SECRET_ACCESS_KEY", cfg.Blob.S3.SecretAccessKey)

	cfg.Render.Command = getEnv("PAGETUTOR_RENDER_COMMAND", cfg.Render.Command)
	return nil
}

func (c *Config) normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Storage.Driver = storage.Driver(strings.ToLower(strings.TrimSpace(string(c.Storage.Driver))))
	c.Blob.Driver = strings.ToLower(strings.TrimSpace(c.Blob.Driver))
	if c.Blob.Dir == "" {
		c.Blob.Dir = filepath.Join(c.DataDir, "documents")
	}
	if c.Blob.FetchDir == "" {
		c.Blob.FetchDir = filepath.Join(c.DataDir, "remote")
	}
}

// Validate checks field constraints and the cross-section rules the struct
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Blob.Driver == "s3" && (strings.TrimSpace(c.Blob.S3.Bucket) == "" || strings.TrimSpace(c.Blob.S3.Region) == "") {
		return errors.New("invalid config: blob.s3.bucket and blob.s3.region are required for the s3 driver")
	}
	return nil
}

// LLMOptions converts the llm section for llm.NewFromEnv.
func (c *Config) LLMOptions() llm.Config {
	return llm.Config{
		Provider:    llm.Provider(c.LLM.Provider),
		Model:       c.LLM.Model,
		Endpoint:    c.LLM.Endpoint,
		APIKey:      c.LLM.APIKey,
		Timeout:     c.LLM.Timeout,
		Temperature: c.LLM.Temperature,
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".pagetutor"
	}
	return filepath.Join(dir, appDirName)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
