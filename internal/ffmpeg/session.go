package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default encoding settings
const (
	DefaultCRF    = 23
	DefaultPreset = "medium"
	VideoCodec    = "libx264"
	AudioCodec    = "aac"
)

// AudioPlacement routes one source file's audio into the encoded output:
// trimmed to a source interval, rate- and volume-adjusted, then delayed
// to its timeline start.
type AudioPlacement struct {
	Path     string
	StartSec float64
	Offset   float64
	Duration float64
	Speed    float64
	Volume   float64
}

// EncodeOptions configures a streaming encode session
type EncodeOptions struct {
	Output string
	Width  int
	Height int
	FPS    float64
	Audio  []AudioPlacement

	ProgressHandler func(*Progress)
}

// EncodeSession is a running ffmpeg process consuming raw RGBA frames on
// stdin while mixing the placed audio streams into the same output.
type EncodeSession struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger zerolog.Logger

	width  int
	height int

	mu     sync.Mutex
	frames int
	closed bool

	waitErr chan error
}

// StartEncode launches an encode session. The caller writes one frame per
// output tick and must Close to finalize the file.
func (e *Executor) StartEncode(ctx context.Context, opts EncodeOptions) (*EncodeSession, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	args := buildEncodeArgs(opts)
	args = append(e.baseArgs(), append([]string{"-progress", "pipe:2"}, args...)...)

	e.logger.Debug().Strs("args", args).Msg("starting encode session")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s := &EncodeSession{
		cmd:     cmd,
		stdin:   stdin,
		logger:  e.logger,
		width:   opts.Width,
		height:  opts.Height,
		waitErr: make(chan error, 1),
	}

	go func() {
		var tail []string
		streamOutput(stderr, opts.ProgressHandler, func(line string) {
			tail = append(tail, line)
			if len(tail) > 20 {
				tail = tail[1:]
			}
		})
		if err := cmd.Wait(); err != nil {
			s.waitErr <- fmt.Errorf("encode failed: %w: %s", err, strings.Join(tail, "\n"))
			return
		}
		s.waitErr <- nil
	}()

	return s, nil
}

// buildEncodeArgs assembles the full argument list: raw video on stdin,
// one input per audio placement, and a filter graph trimming, scaling and
// delaying each placement before the final mix.
func buildEncodeArgs(opts EncodeOptions) []string {
	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", fmt.Sprintf("%g", opts.FPS),
		"-i", "pipe:0",
	}
	for _, a := range opts.Audio {
		args = append(args, "-i", a.Path)
	}

	if len(opts.Audio) > 0 {
		args = append(args, "-filter_complex", buildAudioGraph(opts.Audio))
		args = append(args, "-map", "0:v", "-map", "[aout]", "-c:a", AudioCodec)
	} else {
		args = append(args, "-map", "0:v", "-an")
	}

	args = append(args,
		"-c:v", VideoCodec,
		"-preset", DefaultPreset,
		"-crf", fmt.Sprintf("%d", DefaultCRF),
		"-pix_fmt", "yuv420p",
		"-shortest",
		opts.Output,
	)
	return args
}

func buildAudioGraph(placements []AudioPlacement) string {
	var chains []string
	var labels []string

	for i, a := range placements {
		speed := a.Speed
		if speed <= 0 {
			speed = 1
		}
		volume := a.Volume
		if volume < 0 {
			volume = 0
		}
		chain := NewFilterBuilder().
			ATrim(a.Offset, a.Duration*speed).
			ATempo(speed).
			Volume(volume).
			ADelay(a.StartSec).
			Build()
		if chain == "" {
			chain = "anull"
		}
		label := fmt.Sprintf("[a%d]", i)
		chains = append(chains, fmt.Sprintf("[%d:a]%s%s", i+1, chain, label))
		labels = append(labels, label)
	}

	mix := fmt.Sprintf("%samix=inputs=%d:normalize=0[aout]",
		strings.Join(labels, ""), len(placements))
	return strings.Join(append(chains, mix), ";")
}

// WriteFrame streams one RGBA frame. The image dimensions must match the
// session's frame size exactly.
func (s *EncodeSession) WriteFrame(frame *image.RGBA) error {
	b := frame.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame size %dx%d does not match session %dx%d",
			b.Dx(), b.Dy(), s.width, s.height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session already closed")
	}
	if _, err := s.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("write frame %d: %w", s.frames, err)
	}
	s.frames++
	return nil
}

// Frames reports how many frames have been written
func (s *EncodeSession) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close finishes the stream and waits for the encoder to flush. It waits
// at most the grace period before killing the process.
func (s *EncodeSession) Close(grace time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.stdin.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("closing encoder stdin")
	}

	if grace <= 0 {
		grace = 10 * time.Second
	}
	select {
	case err := <-s.waitErr:
		return err
	case <-time.After(grace):
		_ = s.cmd.Process.Kill()
		<-s.waitErr
		return fmt.Errorf("encoder did not finish within %s", grace)
	}
}
