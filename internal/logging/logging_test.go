package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithoutPathIsNop(t *testing.T) {
	t.Parallel()
	logger, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected a no-op logger")
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "pagetutor.log")
	logger, err := New(Options{Path: path, Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("document opened", zap.String("document_id", "doc-1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if record["message"] != "document opened" {
		t.Fatalf("message = %v", record["message"])
	}
	if record["level"] != "INFO" {
		t.Fatalf("level = %v", record["level"])
	}
	if record["document_id"] != "doc-1" {
		t.Fatalf("document_id = %v", record["document_id"])
	}
	if _, ok := record["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", record)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{Path: filepath.Join(t.TempDir(), "x.log"), Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestCoreRespectsLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := zap.New(NewCore(zapcore.AddSync(&buf), zapcore.WarnLevel))
	logger.Info("skipped")
	logger.Warn("kept")
	if bytes.Contains(buf.Bytes(), []byte("skipped")) {
		t.Fatalf("info record should be filtered: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("kept")) {
		t.Fatalf("warn record missing: %s", buf.String())
	}
}
