package media

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// Info is the probed shape of a media source
type Info struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
}

// Loader decodes media sources for the cache. The production loader wraps
// the ffmpeg package; tests substitute in-memory fakes.
type Loader interface {
	DecodeImage(ctx context.Context, src string) (image.Image, error)
	Probe(ctx context.Context, src string) (Info, error)
	GrabFrame(ctx context.Context, src string, at float64) (image.Image, error)
}

// frameStaleness is how far the transport may drift from the last decoded
// frame before Refresh grabs a new one
const frameStaleness = 0.1

// Cache holds one Resource per source locator. It satisfies the
// compositor's frame source so render passes read pixels straight out of
// the cache without knowing about decoding.
type Cache struct {
	loader Loader
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	res      map[string]*Resource
	inflight map[string]bool
}

// NewCache creates an empty resource cache backed by the given loader
func NewCache(loader Loader, logger zerolog.Logger) *Cache {
	return &Cache{
		loader:   loader,
		logger:   logger.With().Str("component", "media").Logger(),
		now:      time.Now,
		res:      make(map[string]*Resource),
		inflight: make(map[string]bool),
	}
}

// SetClock overrides the wall clock, for deterministic tests
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	for _, r := range c.res {
		r.now = now
	}
}

// Acquire returns the resource for an asset, creating an empty one on
// first sight. The resource stays not-ready until Resolve runs for it.
func (c *Cache) Acquire(asset timeline.Asset) *Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.res[asset.Src]; ok {
		return r
	}
	r := newResource(asset.Kind, asset.Src, c.now)
	c.res[asset.Src] = r
	return r
}

// Lookup returns the cached resource for a source, if any
func (c *Cache) Lookup(src string) (*Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.res[src]
	return r, ok
}

// Resolve decodes or probes the source and marks the resource ready. It
// blocks; callers run it off the render path. Safe to call repeatedly,
// a ready resource resolves to a no-op.
func (c *Cache) Resolve(ctx context.Context, src string) error {
	r, ok := c.Lookup(src)
	if !ok {
		return fmt.Errorf("resolve %s: not acquired", src)
	}
	if r.Ready() {
		return nil
	}

	switch r.Kind() {
	case timeline.KindImage:
		img, err := c.loader.DecodeImage(ctx, src)
		if err != nil {
			r.setFailed()
			return fmt.Errorf("decode image %s: %w", src, err)
		}
		b := img.Bounds()
		r.setLoaded(img, b.Dx(), b.Dy(), 0)

	case timeline.KindVideo:
		info, err := c.loader.Probe(ctx, src)
		if err != nil {
			r.setFailed()
			return fmt.Errorf("probe %s: %w", src, err)
		}
		frame, err := c.loader.GrabFrame(ctx, src, 0)
		if err != nil {
			r.setFailed()
			return fmt.Errorf("grab first frame %s: %w", src, err)
		}
		r.setLoaded(frame, info.Width, info.Height, info.Duration)

	case timeline.KindAudio:
		info, err := c.loader.Probe(ctx, src)
		if err != nil {
			r.setFailed()
			return fmt.Errorf("probe %s: %w", src, err)
		}
		r.setLoaded(nil, 0, 0, info.Duration)

	default:
		// text and effect placements have no backing media
		r.setLoaded(nil, 0, 0, 0)
	}

	c.logger.Debug().Str("src", src).Str("kind", string(r.Kind())).Msg("resource resolved")
	return nil
}

// Refresh re-decodes a video frame when the transport has drifted from
// the last decoded frame. One grab per source runs at a time; overlapping
// calls return immediately.
func (c *Cache) Refresh(ctx context.Context, src string) {
	r, ok := c.Lookup(src)
	if !ok || !r.Ready() || r.Kind() != timeline.KindVideo {
		return
	}

	r.mu.Lock()
	pos := r.positionLocked()
	stale := pos < r.frameAt || pos-r.frameAt > frameStaleness
	r.mu.Unlock()
	if !stale {
		return
	}

	c.mu.Lock()
	if c.inflight[src] {
		c.mu.Unlock()
		return
	}
	c.inflight[src] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, src)
		c.mu.Unlock()
	}()

	frame, err := c.loader.GrabFrame(ctx, src, pos)
	if err != nil {
		c.logger.Warn().Err(err).Str("src", src).Float64("at", pos).Msg("frame grab failed")
		return
	}
	r.setFrame(frame, pos)
}

// Frame implements the compositor frame source
func (c *Cache) Frame(src string) (image.Image, bool) {
	r, ok := c.Lookup(src)
	if !ok {
		return nil, false
	}
	return r.Frame()
}

// FrameAt returns the pixels of a video source at an exact source time,
// decoding synchronously when the cached frame is too far away. Offline
// export reads through here so every output frame tracks the source; a
// failed grab degrades to the last decoded frame.
func (c *Cache) FrameAt(src string, at float64) (image.Image, bool) {
	r, ok := c.Lookup(src)
	if !ok {
		return nil, false
	}
	if r.Kind() != timeline.KindVideo || !r.Ready() {
		return r.Frame()
	}

	r.mu.Lock()
	cached := r.frame
	near := cached != nil && math.Abs(at-r.frameAt) <= frameStaleness
	r.mu.Unlock()
	if near {
		return cached, true
	}

	frame, err := c.loader.GrabFrame(context.Background(), src, at)
	if err != nil {
		c.logger.Warn().Err(err).Str("src", src).Float64("at", at).Msg("frame grab failed")
		return r.Frame()
	}
	r.setFrame(frame, at)
	return frame, true
}

// Dimensions implements the compositor frame source
func (c *Cache) Dimensions(src string) (int, int, bool) {
	r, ok := c.Lookup(src)
	if !ok {
		return 0, 0, false
	}
	return r.Dimensions()
}

// Playables calls fn for every audio-capable resource in the cache
func (c *Cache) Playables(fn func(*Resource)) {
	c.mu.Lock()
	list := make([]*Resource, 0, len(c.res))
	for _, r := range c.res {
		if r.Kind().HasAudio() {
			list = append(list, r)
		}
	}
	c.mu.Unlock()
	for _, r := range list {
		fn(r)
	}
}
