// Package logging builds the application's zap logger. The terminal UI owns
// stdout, so records only ever go to a rotated file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the log file and its rotation.
type Options struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// New returns a JSON file logger, or a no-op logger when no path is set.
func New(opts Options) (*zap.Logger, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return zap.NewNop(), nil
	}
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    withDefault(opts.MaxSizeMB, 10),
		MaxBackups: withDefault(opts.MaxBackups, 5),
		MaxAge:     withDefault(opts.MaxAgeDays, 30),
		Compress:   opts.Compress,
	}
	return zap.New(NewCore(zapcore.AddSync(rotator), level), zap.AddCaller()), nil
}

// NewCore is the JSON core used for the log file.
func NewCore(out zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), out, level)
}

func withDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
