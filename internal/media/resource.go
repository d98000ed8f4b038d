package media

import (
	"image"
	"sync"
	"time"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// Resource is the live playback state of one media source. Images are
// static; video and audio resources model a transport with a position
// that advances with the wall clock while playing.
type Resource struct {
	kind timeline.AssetKind
	src  string

	mu     sync.Mutex
	ready  bool
	failed bool

	frame   image.Image
	frameAt float64
	width   int
	height  int
	dur     float64

	playing bool
	rate    float64
	volume  float64
	basePos float64
	baseAt  time.Time

	now func() time.Time
}

func newResource(kind timeline.AssetKind, src string, now func() time.Time) *Resource {
	return &Resource{
		kind:   kind,
		src:    src,
		rate:   1,
		volume: 1,
		now:    now,
	}
}

// Kind returns the asset kind this resource decodes
func (r *Resource) Kind() timeline.AssetKind { return r.kind }

// Src returns the media locator
func (r *Resource) Src() string { return r.src }

// Ready reports whether decoding/probing has completed successfully
func (r *Resource) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Failed reports whether decoding/probing gave up on this source
func (r *Resource) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Duration returns the probed source duration in seconds, 0 if unknown
func (r *Resource) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dur
}

// Dimensions returns the pixel size of the source, ok=false until probed
func (r *Resource) Dimensions() (int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready || r.width <= 0 {
		return 0, 0, false
	}
	return r.width, r.height, true
}

// Frame returns the most recently decoded frame, ok=false until one exists
func (r *Resource) Frame() (image.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame == nil {
		return nil, false
	}
	return r.frame, true
}

// Position returns the transport position in source seconds. While playing
// it advances with the wall clock at the current rate.
func (r *Resource) Position() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positionLocked()
}

func (r *Resource) positionLocked() float64 {
	if !r.playing {
		return r.basePos
	}
	return r.basePos + r.now().Sub(r.baseAt).Seconds()*r.rate
}

// SetPosition seeks the transport
func (r *Resource) SetPosition(pos float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	r.basePos = pos
	r.baseAt = r.now()
}

// Play starts the transport advancing
func (r *Resource) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing {
		return
	}
	r.playing = true
	r.baseAt = r.now()
}

// Pause freezes the transport at its current position
func (r *Resource) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing {
		return
	}
	r.basePos = r.positionLocked()
	r.playing = false
}

// Playing reports whether the transport is advancing
func (r *Resource) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

// SetRate changes the playback rate, rebasing so the position is continuous
func (r *Resource) SetRate(rate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rate <= 0 {
		rate = 1
	}
	if r.rate == rate {
		return
	}
	r.basePos = r.positionLocked()
	r.baseAt = r.now()
	r.rate = rate
}

// Rate returns the current playback rate
func (r *Resource) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// SetVolume sets the mix volume, 0..1
func (r *Resource) SetVolume(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	r.volume = v
}

// Volume returns the mix volume
func (r *Resource) Volume() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volume
}

func (r *Resource) setLoaded(frame image.Image, w, h int, dur float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
	r.width = w
	r.height = h
	r.dur = dur
	r.ready = true
	r.failed = false
}

func (r *Resource) setFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
}

func (r *Resource) setFrame(frame image.Image, at float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
	r.frameAt = at
}
