package logs

import (
	"log/slog"
	"os"

	"github.com/arcmed/arcmed_backend/config"
)

// Audit categories. Each gets its own rotated file so compliance exports
// can pick up a single stream.
const (
	CategoryAuth     = "auth"
	CategoryActivity = "activity"
	CategorySystem   = "system"
)

// AuditSet holds one structured logger per audit category.
type AuditSet struct {
	Auth     *slog.Logger
	Activity *slog.Logger
	System   *slog.Logger
}

// NewAuditSet builds the per-category loggers. Without file output enabled
// everything lands on stdout tagged with its category.
func NewAuditSet(cfg *config.Config) *AuditSet {
	build := func(category string) *slog.Logger {
		if cfg.Logging.Output.File.Enabled {
			w := rotatedFile(cfg.Logging.Output.File, category+".log")
			return slog.New(slog.NewJSONHandler(w, nil)).With(slog.String("category", category))
		}
		return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("category", category))
	}

	return &AuditSet{
		Auth:     build(CategoryAuth),
		Activity: build(CategoryActivity),
		System:   build(CategorySystem),
	}
}

// For returns the logger for a category, defaulting to system.
func (a *AuditSet) For(category string) *slog.Logger {
	switch category {
	case CategoryAuth:
		return a.Auth
	case CategoryActivity:
		return a.Activity
	default:
		return a.System
	}
}
