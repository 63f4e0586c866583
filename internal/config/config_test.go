package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/csheth/pagetutor/internal/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
data_dir: `+dataDir+`
llm:
  provider: anthropic
  model: claude-3-5-sonnet-latest
  timeout: 30s
storage:
  driver: redis
  redis_url: redis://localhost:6379/2
render:
  cache_entries: 12
history:
  capacity: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Model != "claude-3-5-sonnet-latest" {
		t.Fatalf("llm section = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("temperature default lost: %v", cfg.LLM.Temperature)
	}
	if cfg.Storage.Driver != storage.DriverRedis {
		t.Fatalf("storage driver = %q", cfg.Storage.Driver)
	}
	if cfg.Render.CacheEntries != 12 || cfg.Render.ViewerScale != 1.5 || cfg.Render.ThumbnailScale != 0.2 {
		t.Fatalf("render section = %+v", cfg.Render)
	}
	if cfg.History.Capacity != 5 {
		t.Fatalf("history capacity = %d", cfg.History.Capacity)
	}
	if cfg.Blob.Dir != filepath.Join(dataDir, "documents") {
		t.Fatalf("blob dir = %q", cfg.Blob.Dir)
	}
	opts := cfg.LLMOptions()
	if opts.Provider != "anthropic" || opts.Timeout != 30*time.Second {
		t.Fatalf("llm options = %+v", opts)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: gpt-4\n")
	t.Setenv("PAGETUTOR_LLM_MODEL", "gpt-4o")
	t.Setenv("PAGETUTOR_LLM_PROVIDER", "Ollama")
	t.Setenv("PAGETUTOR_LLM_TIMEOUT", "90s")
	t.Setenv("PAGETUTOR_DATA_DIR", t.TempDir())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Fatalf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Fatalf("timeout = %s", cfg.LLM.Timeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"provider":    "llm:\n  provider: mystery\n",
		"redis url":   "storage:\n  driver: redis\n",
		"sql dsn":     "storage:\n  driver: postgres\n",
		"cache size":  "render:\n  cache_entries: -1\n",
		"s3 bucket":   "blob:\n  driver: s3\n",
		"temperature": "llm:\n  temperature: 3\n",
		"log level":   "log:\n  level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("PAGETUTOR_DATA_DIR", t.TempDir())
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadBadEnvDuration(t *testing.T) {
	t.Setenv("PAGETUTOR_LLM_TIMEOUT", "soon")
	if _, err := Load(writeConfig(t, "")); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
