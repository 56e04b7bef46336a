package transform

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// TranscodeVideo downscales videos taller than 720p to H.264+AAC at
// CRF 23, preset medium. Returns the input path unchanged when the
// toolchain is missing, the video is already small enough, or any step
// fails.
func (t *Transformer) TranscodeVideo(ctx context.Context, path string) string {
	if !t.hasFFmpeg || !t.hasFFprobe {
		return path
	}

	height, ok := t.probeHeight(ctx, path)
	if !ok || height <= 720 {
		return path
	}

	out := tmpSibling(path, ".720p.mp4")
	_, stderr, err := t.run.Run(ctx, "ffmpeg",
		"-y",
		"-i", path,
		"-vf", "scale=-2:720",
		"-c:v", "libx264",
		"-crf", "23",
		"-preset", "medium",
		"-c:a", "aac",
		out,
	)
	if err != nil {
		t.log.Warn("transcode failed, keeping original", "path", path, "stderr", strings.TrimSpace(stderr), "error", err)
		_ = os.Remove(out)
		return path
	}

	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return path
	}

	t.log.Info("video transcoded to 720p", "path", path, "height", height)
	return out
}

func (t *Transformer) probeHeight(ctx context.Context, path string) (int, bool) {
	stdout, _, err := t.run.Run(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=height",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		t.log.Warn("ffprobe failed", "path", path, "error", err)
		return 0, false
	}
	height, err := strconv.Atoi(strings.TrimSpace(stdout))
	if err != nil {
		return 0, false
	}
	return height, true
}
