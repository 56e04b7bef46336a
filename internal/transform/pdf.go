package transform

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// lossyThreshold is the input size above which the raster path is tried.
const lossyThreshold = 500 * 1024

// CompressPDF returns a path to a compressed copy, or the input path
// unchanged when compression does not help or fails. The caller owns
// cleanup of the returned path if it differs from the input.
func (t *Transformer) CompressPDF(ctx context.Context, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		t.log.Warn("pdf stat failed, keeping original", "path", path, "error", err)
		return path
	}

	if info.Size() > lossyThreshold && t.hasGhostscript {
		if out, ok := t.lossyCompress(ctx, path, info.Size()); ok {
			return out
		}
	}

	if out, ok := t.losslessOptimize(path, info.Size()); ok {
		return out
	}
	return path
}

// lossyCompress rasterizes pages at ~150 DPI and re-embeds them as JPEG
// quality 60. Keeps the result only when it is smaller than the input.
func (t *Transformer) lossyCompress(ctx context.Context, path string, origSize int64) (string, bool) {
	out := tmpSibling(path, ".lossy.pdf")

	_, stderr, err := t.run.Run(ctx, "gs",
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dNOPAUSE", "-dQUIET", "-dBATCH",
		"-dDownsampleColorImages=true",
		"-dColorImageDownsampleType=/Average",
		"-dColorImageResolution=150",
		"-dGrayImageDownsampleType=/Average",
		"-dGrayImageResolution=150",
		"-dAutoFilterColorImages=false",
		"-dColorImageFilter=/DCTEncode",
		"-dJPEGQ=60",
		"-sOutputFile="+out,
		path,
	)
	if err != nil {
		t.log.Warn("ghostscript compress failed", "path", path, "stderr", strings.TrimSpace(stderr), "error", err)
		_ = os.Remove(out)
		return "", false
	}

	outInfo, err := os.Stat(out)
	if err != nil || outInfo.Size() == 0 || outInfo.Size() >= origSize {
		_ = os.Remove(out)
		return "", false
	}

	t.log.Info("pdf lossy compress", "path", path, "from", origSize, "to", outInfo.Size())
	return out, true
}

// losslessOptimize compresses content streams and strips metadata.
func (t *Transformer) losslessOptimize(path string, origSize int64) (string, bool) {
	out := tmpSibling(path, ".opt.pdf")

	if err := api.OptimizeFile(path, out, nil); err != nil {
		t.log.Warn("pdf optimize failed, keeping original", "path", path, "error", err)
		_ = os.Remove(out)
		return "", false
	}

	outInfo, err := os.Stat(out)
	if err != nil || outInfo.Size() == 0 || outInfo.Size() >= origSize {
		_ = os.Remove(out)
		return "", false
	}

	t.log.Info("pdf lossless optimize", "path", path, "from", origSize, "to", outInfo.Size())
	return out, true
}

// PageCount is best-effort: 0 for non-PDFs and unreadable files.
func (t *Transformer) PageCount(path string) int {
	n, err := api.PageCountFile(path)
	if err != nil {
		t.log.Warn("page count failed", "path", path, "error", err)
		return 0
	}
	return n
}

func tmpSibling(path, suffix string) string {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, base+suffix)
}
