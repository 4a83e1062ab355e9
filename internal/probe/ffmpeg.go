// SPDX-License-Identifier: MIT

package probe

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Thumbnail geometry and seek policy: a still from min(1s, 10% of the
// duration), scaled to 200x120.
const (
	thumbWidth  = 200
	thumbHeight = 120
)

// FFmpegExtractor shells out to ffprobe for the duration and ffmpeg for
// the thumbnail still. Both calls share one deadline; on expiry the
// processes are killed and the result degrades.
type FFmpegExtractor struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// NewFFmpegExtractor creates an extractor using the given binaries.
func NewFFmpegExtractor(ffmpegPath, ffprobePath string, timeout time.Duration, logger zerolog.Logger) *FFmpegExtractor {
	return &FFmpegExtractor{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Timeout:     timeout,
		Logger:      logger,
	}
}

// Extract derives duration and thumbnail for the file at path.
func (e *FFmpegExtractor) Extract(ctx context.Context, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	var res Result

	duration, err := e.probeDuration(ctx, path)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("duration extraction degraded")
	} else {
		res.DurationSeconds = duration
	}

	thumb, err := e.grabThumbnail(ctx, path, res.DurationSeconds)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("thumbnail extraction degraded")
	} else {
		res.Thumbnail = thumb
	}

	return res
}

func (e *FFmpegExtractor) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath, // #nosec G204
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %f", duration)
	}
	return duration, nil
}

func (e *FFmpegExtractor) grabThumbnail(ctx context.Context, path string, duration float64) (string, error) {
	seek := duration * 0.1
	if seek > 1 {
		seek = 1
	}

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, e.FFmpegPath, // #nosec G204
		"-v", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", thumbWidth, thumbHeight),
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	cmd.Stdout = &buf

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("ffmpeg produced no frame")
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
