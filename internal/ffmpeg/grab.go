package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"time"

	"github.com/kikiluvv/kawaiicut/pkg/util"
)

// GrabFrame decodes the frame nearest to the given time as an image.
// Seeking happens before the demuxer opens the input, so extraction cost
// does not grow with the seek position.
func (e *Executor) GrabFrame(ctx context.Context, src string, at float64) (image.Image, error) {
	if at < 0 {
		at = 0
	}
	args := []string{
		"-ss", util.FormatDuration(time.Duration(at * float64(time.Second))),
		"-i", src,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("grab frame %s@%.3f: %w: %s", src, at, err, errBuf.String())
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode grabbed frame %s@%.3f: %w", src, at, err)
	}
	return img, nil
}

// WriteThumbnail extracts a scaled still into an image file on disk
func (e *Executor) WriteThumbnail(ctx context.Context, src, dst string, width int) error {
	args := []string{
		"-ss", "0",
		"-i", src,
		"-frames:v", "1",
		"-vf", NewFilterBuilder().ScaleWidth(width).Build(),
		dst,
	}
	if err := e.Run(ctx, RunOptions{Args: args}); err != nil {
		return fmt.Errorf("write thumbnail for %s: %w", src, err)
	}
	return nil
}
