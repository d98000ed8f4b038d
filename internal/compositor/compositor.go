package compositor

import (
	"image"
	"sort"
	"time"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// FrameSource supplies decoded pixels for asset locators. A source that
// is still warming up reports ok=false and the layer is skipped for the
// frame; interactive renders never block on a resource.
type FrameSource interface {
	// Frame returns the most recently decoded pixels without blocking.
	Frame(src string) (image.Image, bool)
	// FrameAt returns pixels for an exact source time and may block to
	// decode. Only renders with SeekSources set call it.
	FrameAt(src string, at float64) (image.Image, bool)
	Dimensions(src string) (w, h int, ok bool)
}

// RenderOptions tweaks a single Render call
type RenderOptions struct {
	// ShowSelection draws the dashed bounding box and corner handles of
	// the selected clip. Export renders leave it off.
	ShowSelection bool
	// SeekSources makes every video layer decode at its exact source
	// time instead of taking the latest cached frame. Offline export
	// turns it on; interactive renders keep the non-blocking path.
	SeekSources bool
}

// ActiveEffect is an effect placement covering the query time
type ActiveEffect struct {
	Type timeline.EffectType
	Clip timeline.Clip
}

// Compositor turns a project snapshot plus a query time into one rendered
// frame. It holds no per-frame state; every call re-derives the draw list
// from scratch.
type Compositor struct {
	frames FrameSource
	fonts  *FaceCache
	logger zerolog.Logger

	// now feeds wall-clock driven effects (FLASH oscillates with real
	// time, not timeline time, so two exports of the same timeline can
	// differ in flash phase)
	now func() time.Time
}

// New creates a compositor reading pixels from the given source
func New(frames FrameSource, logger zerolog.Logger) *Compositor {
	return &Compositor{
		frames: frames,
		fonts:  NewFaceCache(),
		logger: logger.With().Str("component", "compositor").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the wall clock, for deterministic tests
func (c *Compositor) SetClock(now func() time.Time) {
	c.now = now
}

// ActiveLayers returns the active clips at t in draw order: tracks later
// in the list draw first (background), earlier tracks draw last
// (foreground). Clips on the same track keep clip-list order, so later
// insertions draw on top.
func ActiveLayers(p *timeline.Project, t float64) []timeline.Clip {
	active := p.ActiveClips(t)
	sort.SliceStable(active, func(i, j int) bool {
		ti := p.TrackIndex(active[i].TrackID)
		tj := p.TrackIndex(active[j].TrackID)
		if ti < 0 {
			ti = 0
		}
		if tj < 0 {
			tj = 0
		}
		return ti > tj
	})
	return active
}

// ActiveEffects splits the effect placements out of the active set, keyed
// by their originating clip for progress computation
func ActiveEffects(p *timeline.Project, t float64) []ActiveEffect {
	var out []ActiveEffect
	for _, clip := range p.ActiveClips(t) {
		asset, ok := p.Asset(clip.AssetID)
		if !ok || asset.Kind != timeline.KindEffect || asset.EffectType == "" {
			continue
		}
		out = append(out, ActiveEffect{Type: asset.EffectType, Clip: clip})
	}
	return out
}

func hasEffect(effects []ActiveEffect, t timeline.EffectType) bool {
	for _, e := range effects {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Render composites the frame for the project's current time
func (c *Compositor) Render(p *timeline.Project, w, h int, opts RenderOptions) *image.RGBA {
	return c.RenderAt(p, p.CurrentTime, w, h, opts)
}

// RenderAt composites the frame for an explicit query time
func (c *Compositor) RenderAt(p *timeline.Project, t float64, w, h int, opts RenderOptions) *image.RGBA {
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	layers := ActiveLayers(p, t)
	effects := ActiveEffects(p, t)

	for _, clip := range layers {
		asset, ok := p.Asset(clip.AssetID)
		if !ok || asset.Kind == timeline.KindEffect || asset.Kind == timeline.KindAudio {
			continue
		}
		c.drawClip(dc, clip, asset, effects, t, w, h, opts)
	}

	c.drawEffectOverlays(dc, effects, t, w, h)

	if opts.ShowSelection {
		c.drawSelection(dc, p, t, w, h)
	}

	return dc.Image().(*image.RGBA)
}

func (c *Compositor) drawClip(dc *gg.Context, clip timeline.Clip, asset timeline.Asset, effects []ActiveEffect, t float64, w, h int, opts RenderOptions) {
	cx := float64(w) / 2
	cy := float64(h) / 2

	dc.Push()
	defer dc.Pop()

	dc.Translate(cx+clip.X, cy+clip.Y)
	dc.Rotate(gg.Radians(clip.Rotation))
	sx := clip.Scale
	if clip.Mirror {
		sx = -sx
	}
	dc.Scale(sx, clip.Scale)

	switch asset.Kind {
	case timeline.KindImage, timeline.KindVideo:
		var frame image.Image
		var ok bool
		if asset.Kind == timeline.KindVideo && opts.SeekSources {
			frame, ok = c.frames.FrameAt(asset.Src, clip.SourceTime(t))
		} else {
			frame, ok = c.frames.Frame(asset.Src)
		}
		if !ok {
			return
		}
		frame = filterLayer(frame, effects)
		frame = applyOpacity(frame, clip.Opacity)

		b := frame.Bounds()
		fitW, fitH := fittedSize(b.Dx(), b.Dy(), w)
		dc.Push()
		dc.Scale(fitW/float64(b.Dx()), fitH/float64(b.Dy()))
		dc.DrawImageAnchored(frame, 0, 0, 0.5, 0.5)
		dc.Pop()

	case timeline.KindText:
		if clip.TextData == nil {
			return
		}
		if !hasPixelFilter(effects) {
			c.drawText(dc, *clip.TextData, clip.Opacity)
			return
		}
		// pixel filters work on rasters, so the block draws onto its own
		// layer before compositing
		layer := gg.NewContext(w, h)
		layer.Translate(cx+clip.X, cy+clip.Y)
		layer.Rotate(gg.Radians(clip.Rotation))
		layer.Scale(sx, clip.Scale)
		c.drawText(layer, *clip.TextData, clip.Opacity)

		dc.Identity()
		dc.DrawImage(filterLayer(layer.Image(), effects), 0, 0)
	}
}

// fittedSize scales source dimensions to fill the canvas width while
// preserving aspect ratio
func fittedSize(srcW, srcH, canvasW int) (float64, float64) {
	if srcW <= 0 || srcH <= 0 {
		return float64(canvasW), float64(canvasW)
	}
	fw := float64(canvasW)
	return fw, float64(srcH) / float64(srcW) * fw
}

func (c *Compositor) drawSelection(dc *gg.Context, p *timeline.Project, t float64, w, h int) {
	clip, ok := p.SelectedClip()
	if !ok || !clip.ActiveAt(t) {
		return
	}
	asset, ok := p.Asset(clip.AssetID)
	if !ok || asset.Kind == timeline.KindAudio || asset.Kind == timeline.KindEffect {
		return
	}

	bounds, ok := ClipBounds(p, c.frames, clip.ID, w, h)
	if !ok {
		return
	}

	dc.Push()
	defer dc.Pop()

	dc.Translate(bounds.Center.X, bounds.Center.Y)
	dc.Rotate(gg.Radians(bounds.Rotation))

	sw := bounds.Width
	sh := bounds.Height

	dc.SetHexColor("#7851a9")
	dc.SetLineWidth(2)
	dc.SetDash(5, 5)
	dc.DrawRectangle(-sw/2, -sh/2, sw, sh)
	dc.Stroke()

	dc.SetDash()
	dc.SetRGB(1, 1, 1)
	const handle = 10.0
	for _, corner := range [][2]float64{{-sw / 2, -sh / 2}, {sw / 2, -sh / 2}, {-sw / 2, sh / 2}, {sw / 2, sh / 2}} {
		dc.DrawRectangle(corner[0]-handle/2, corner[1]-handle/2, handle, handle)
		dc.Fill()
	}
}
