package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
)

// FFmpegLoader is the production Loader: images decode in-process, video
// and audio metadata and frames come from the ffmpeg executor.
type FFmpegLoader struct {
	exec *ffmpeg.Executor
}

func NewFFmpegLoader(exec *ffmpeg.Executor) FFmpegLoader {
	return FFmpegLoader{exec: exec}
}

func (l FFmpegLoader) DecodeImage(_ context.Context, src string) (image.Image, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

func (l FFmpegLoader) Probe(ctx context.Context, src string) (Info, error) {
	info, err := l.exec.Probe(ctx, src)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		HasAudio: info.HasAudio,
	}, nil
}

func (l FFmpegLoader) GrabFrame(ctx context.Context, src string, at float64) (image.Image, error) {
	return l.exec.GrabFrame(ctx, src, at)
}
