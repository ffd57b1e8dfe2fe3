package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sand/lbc-exchange/backend/config"
)

// New builds the process logger. Output goes to stdout and, when cfg.Log.File is set,
// to a rotating file as well.
func New(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var writer io.Writer = os.Stdout
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err == nil {
			writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   cfg.Log.File,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAgeDays,
				Compress:   true,
			})
		}
	}

	return slog.New(slog.NewTextHandler(writer, opts))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
