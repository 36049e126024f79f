package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger configures the application logger.
type Logger struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`

	// JSON selects JSON output instead of the console encoder.
	JSON bool `json:"json"`

	// File redirects output to a file. Empty means stderr.
	File string `json:"file,omitempty"`
}

// Build creates a zap logger from the configuration.
func (l Logger) Build() (*zap.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if !l.JSON {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if l.File != "" {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	if l.File != "" {
		if err := os.MkdirAll(filepath.Dir(l.File), 0755); err != nil {
			return nil, goerr.Wrap(err, "failed to create log directory", goerr.V("file", l.File))
		}
		cfg.OutputPaths = []string{l.File}
		cfg.ErrorOutputPaths = []string{l.File}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build logger")
	}
	return logger, nil
}

func (l Logger) level() (zapcore.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, goerr.New("unknown log level", goerr.V("level", l.Level))
	}
}
