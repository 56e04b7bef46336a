package logs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arcmed/arcmed_backend/config"
)

// New builds the root logger from config.
func New(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)
	isDev := strings.EqualFold(cfg.Server.Environment, "development")

	var writers []io.Writer

	if cfg.Logging.Output.Stdout || !cfg.Logging.Output.File.Enabled {
		writers = append(writers, os.Stdout)
	}

	if cfg.Logging.Output.File.Enabled {
		writers = append(writers, rotatedFile(cfg.Logging.Output.File, "system.log"))
	}

	w := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: isDev,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") || !isDev {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h).With(
		slog.String("service", cfg.Observability.ServiceName),
		slog.String("version", cfg.Observability.ServiceVersion),
		slog.String("env", cfg.Server.Environment),
	)
}

func Default() *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With(slog.String("service", "arcmed_backend"))
}

func rotatedFile(cfg config.FileLogConfig, name string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
