// Package textextract pulls searchable text out of confirmed PDFs and
// assigns rule-based category tags. Digital extraction is tried first;
// scanned documents fall back to OCR when the engine is installed.
// Failures are swallowed: a file without text is simply not searchable.
package textextract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/ledongthuc/pdf"
)

// minDigitalChars is the threshold below which a digital extraction is
// considered empty (scanned document) and OCR is attempted.
const minDigitalChars = 50

// maxOCRPages bounds the per-file OCR cost.
const maxOCRPages = 40

// Runner executes an external tool. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, command string, args ...string) (string, string, error) {
	task := execute.ExecTask{Command: command, Args: args, StreamStdio: false}
	res, err := task.Execute(ctx)
	if err != nil {
		return res.Stdout, res.Stderr, err
	}
	if res.ExitCode != 0 {
		return res.Stdout, res.Stderr, fmt.Errorf("%s exited %d: %s", command, res.ExitCode, res.Stderr)
	}
	return res.Stdout, res.Stderr, nil
}

type Extractor struct {
	log *slog.Logger
	run Runner

	hasTesseract   bool
	hasGhostscript bool
}

func New(log *slog.Logger) *Extractor {
	return &Extractor{
		log:            log.With("component", "textextract"),
		run:            execRunner{},
		hasTesseract:   toolAvailable("tesseract"),
		hasGhostscript: toolAvailable("gs"),
	}
}

func NewWithRunner(log *slog.Logger, run Runner, tesseract, gs bool) *Extractor {
	return &Extractor{
		log:            log.With("component", "textextract"),
		run:            run,
		hasTesseract:   tesseract,
		hasGhostscript: gs,
	}
}

func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Extract returns the best text it can find for the PDF at path.
// pageCount bounds the OCR fallback; 0 disables it.
func (e *Extractor) Extract(ctx context.Context, path string, pageCount int) string {
	text := e.digitalText(path)
	if len(strings.TrimSpace(text)) >= minDigitalChars {
		return text
	}

	if !e.hasTesseract || !e.hasGhostscript || pageCount <= 0 {
		return text
	}

	if ocr := e.ocrText(ctx, path, pageCount); len(strings.TrimSpace(ocr)) > len(strings.TrimSpace(text)) {
		return ocr
	}
	return text
}

func (e *Extractor) digitalText(path string) string {
	f, r, err := pdf.Open(path)
	if err != nil {
		e.log.Warn("pdf open for text failed", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		e.log.Warn("digital text extraction failed", "path", path, "error", err)
		return ""
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return ""
	}
	return buf.String()
}

// ocrText renders pages one at a time and feeds them to tesseract.
func (e *Extractor) ocrText(ctx context.Context, path string, pageCount int) string {
	pages := pageCount
	if pages > maxOCRPages {
		pages = maxOCRPages
	}

	tmpDir, err := os.MkdirTemp("", "arcmed-ocr-*")
	if err != nil {
		return ""
	}
	defer os.RemoveAll(tmpDir)

	var out strings.Builder
	for page := 1; page <= pages; page++ {
		select {
		case <-ctx.Done():
			return out.String()
		default:
		}

		img := filepath.Join(tmpDir, "page.png")
		_, _, err := e.run.Run(ctx, "gs",
			"-sDEVICE=png16m",
			"-r150",
			"-dNOPAUSE", "-dQUIET", "-dBATCH",
			"-dFirstPage="+strconv.Itoa(page),
			"-dLastPage="+strconv.Itoa(page),
			"-o", img,
			path,
		)
		if err != nil {
			e.log.Warn("page render for ocr failed", "path", path, "page", page, "error", err)
			continue
		}

		text, _, err := e.run.Run(ctx, "tesseract", img, "stdout")
		if err != nil {
			e.log.Warn("tesseract failed", "path", path, "page", page, "error", err)
			continue
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String()
}
