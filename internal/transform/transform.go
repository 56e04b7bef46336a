package transform

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Kind classifies an upload by extension.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".wmv": true, ".webm": true, ".m4v": true, ".mpeg": true, ".mpg": true,
}

// KindForName classifies a filename. Anything that is neither a PDF nor
// a known video extension is rejected upstream.
func KindForName(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf":
		return KindPDF
	case videoExts[ext]:
		return KindVideo
	default:
		return KindUnknown
	}
}

// Transformer runs the compression stage of the upload pipeline.
type Transformer struct {
	log *slog.Logger
	run Runner

	// tool availability probed once at construction
	hasGhostscript bool
	hasFFmpeg      bool
	hasFFprobe     bool
}

func New(log *slog.Logger) *Transformer {
	return &Transformer{
		log:            log.With("component", "transform"),
		run:            execRunner{},
		hasGhostscript: toolAvailable("gs"),
		hasFFmpeg:      toolAvailable("ffmpeg"),
		hasFFprobe:     toolAvailable("ffprobe"),
	}
}

// NewWithRunner is used by tests to inject a fake tool runner.
func NewWithRunner(log *slog.Logger, run Runner, gs, ffmpeg, ffprobe bool) *Transformer {
	return &Transformer{
		log:            log.With("component", "transform"),
		run:            run,
		hasGhostscript: gs,
		hasFFmpeg:      ffmpeg,
		hasFFprobe:     ffprobe,
	}
}
