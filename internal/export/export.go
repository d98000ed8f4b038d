package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/util"
)

// ErrBusy means an export is already running
var ErrBusy = errors.New("export already in progress")

const (
	// closeGrace bounds how long the encoder may take to flush
	closeGrace = 10 * time.Second
	// successDisplay is how long the success flag stays up
	successDisplay = 3 * time.Second
)

// Session is the sink for rendered frames
type Session interface {
	WriteFrame(*image.RGBA) error
	Frames() int
	Close(grace time.Duration) error
}

// Encoder opens an encode session. NewEncoder adapts the ffmpeg executor;
// tests substitute in-memory sinks.
type Encoder func(ctx context.Context, opts ffmpeg.EncodeOptions) (Session, error)

// NewEncoder wraps an ffmpeg executor as an Encoder
func NewEncoder(e *ffmpeg.Executor) Encoder {
	return func(ctx context.Context, opts ffmpeg.EncodeOptions) (Session, error) {
		return e.StartEncode(ctx, opts)
	}
}

// Options configures one export run
type Options struct {
	Output string
	Width  int
	Height int
	FPS    float64

	// OnProgress, if set, receives (framesDone, framesTotal) per frame
	OnProgress func(done, total int)
}

// Exporter renders a project offline: every output frame is composited
// at its exact timeline instant, so export timing never depends on how
// fast the preview played. Audio is routed by the encoder from the source
// files directly.
type Exporter struct {
	comp   *compositor.Compositor
	encode Encoder
	logger zerolog.Logger

	mu        sync.Mutex
	exporting bool
	success   bool
	successAt *time.Timer
}

func New(comp *compositor.Compositor, encode Encoder, logger zerolog.Logger) *Exporter {
	return &Exporter{
		comp:   comp,
		encode: encode,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// Exporting reports whether a run is in progress
func (ex *Exporter) Exporting() bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.exporting
}

// Succeeded reports whether the last run finished recently. The flag
// clears on its own shortly after being raised.
func (ex *Exporter) Succeeded() bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.success
}

// Export renders the whole project into opts.Output. Every failure mode
// is a plain returned error so the caller can surface it and let the
// user try again.
func (ex *Exporter) Export(ctx context.Context, p *timeline.Project, opts Options) error {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid export size %dx%d", opts.Width, opts.Height)
	}

	ex.mu.Lock()
	if ex.exporting {
		ex.mu.Unlock()
		return ErrBusy
	}
	ex.exporting = true
	ex.success = false
	ex.mu.Unlock()
	defer func() {
		ex.mu.Lock()
		ex.exporting = false
		ex.mu.Unlock()
	}()

	session, err := ex.encode(ctx, ffmpeg.EncodeOptions{
		Output: opts.Output,
		Width:  opts.Width,
		Height: opts.Height,
		FPS:    opts.FPS,
		Audio:  audioPlacements(p),
	})
	if err != nil {
		return fmt.Errorf("could not start export: %w", err)
	}

	total := int(math.Ceil(p.Duration * opts.FPS))
	if total < 1 {
		total = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan *image.RGBA, 4)

	g.Go(func() error {
		defer close(frames)
		for i := 0; i < total; i++ {
			t := float64(i) / opts.FPS
			frame := ex.comp.RenderAt(p, t, opts.Width, opts.Height, compositor.RenderOptions{SeekSources: true})
			select {
			case frames <- frame:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		done := 0
		for frame := range frames {
			if err := session.WriteFrame(frame); err != nil {
				return err
			}
			done++
			if opts.OnProgress != nil {
				opts.OnProgress(done, total)
			}
		}
		return nil
	})

	renderErr := g.Wait()
	closeErr := session.Close(closeGrace)
	if renderErr != nil {
		return fmt.Errorf("export render failed: %w", renderErr)
	}
	if closeErr != nil {
		return fmt.Errorf("export encode failed: %w", closeErr)
	}

	info, err := os.Stat(opts.Output)
	if err != nil {
		return fmt.Errorf("export produced no file: %w", err)
	}
	if info.Size() == 0 {
		util.CleanupFiles(opts.Output)
		return fmt.Errorf("export produced an empty file, try again")
	}

	ex.markSuccess()
	ex.logger.Info().Str("output", opts.Output).Int("frames", total).Msg("export finished")
	return nil
}

func (ex *Exporter) markSuccess() {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.success = true
	if ex.successAt != nil {
		ex.successAt.Stop()
	}
	ex.successAt = time.AfterFunc(successDisplay, func() {
		ex.mu.Lock()
		ex.success = false
		ex.mu.Unlock()
	})
}

// audioPlacements collects the audible clips: every clip of an
// audio-carrying asset on an unmuted track
func audioPlacements(p *timeline.Project) []ffmpeg.AudioPlacement {
	var out []ffmpeg.AudioPlacement
	for _, clip := range p.Clips {
		asset, ok := p.Asset(clip.AssetID)
		if !ok || !asset.Kind.HasAudio() {
			continue
		}
		if track, ok := p.Track(clip.TrackID); ok && track.Muted {
			continue
		}
		speed := clip.Speed
		if speed <= 0 {
			speed = 1
		}
		out = append(out, ffmpeg.AudioPlacement{
			Path:     asset.Src,
			StartSec: clip.StartTime,
			Offset:   clip.Offset,
			Duration: clip.Duration,
			Speed:    speed,
			Volume:   1,
		})
	}
	return out
}
