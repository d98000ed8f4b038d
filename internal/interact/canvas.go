package interact

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/geom"
)

const (
	// cornerMargin is the hit radius around a resize handle in canvas pixels
	cornerMargin = 20.0
	// minScale floors radial resizing so a clip can never vanish
	minScale = 0.1
)

type canvasMode int

const (
	canvasIdle canvasMode = iota
	canvasMove
	canvasResize
)

// CanvasController turns preview-surface pointer events into clip
// transform updates. Only the selected clip is manipulable; hits are
// tested in the clip's rotation-undone local space so handles track the
// drawn corners exactly.
type CanvasController struct {
	store  *timeline.Store
	dims   compositor.DimensionSource
	logger zerolog.Logger

	mode    canvasMode
	start   geom.Point
	initial timeline.Clip
}

func NewCanvas(store *timeline.Store, dims compositor.DimensionSource, logger zerolog.Logger) *CanvasController {
	return &CanvasController{
		store:  store,
		dims:   dims,
		logger: logger.With().Str("component", "canvas").Logger(),
	}
}

// PointerDown begins a gesture if the point lands on the selected clip.
// A corner within the handle margin starts a resize, the interior starts
// a move, anything else is ignored (and reports false so the caller can
// treat it as a deselect).
func (c *CanvasController) PointerDown(pt geom.Point, canvasW, canvasH int) bool {
	p := c.store.Current()
	clip, ok := p.SelectedClip()
	if !ok {
		return false
	}
	bounds, ok := compositor.ClipBounds(p, c.dims, clip.ID, canvasW, canvasH)
	if !ok {
		return false
	}

	local := geom.ToLocal(pt, bounds.Center, bounds.Rotation)
	halfW := bounds.Width / 2
	halfH := bounds.Height / 2

	onCorner := math.Abs(math.Abs(local.X)-halfW) < cornerMargin &&
		math.Abs(math.Abs(local.Y)-halfH) < cornerMargin

	switch {
	case onCorner:
		c.mode = canvasResize
	case math.Abs(local.X) < halfW && math.Abs(local.Y) < halfH:
		c.mode = canvasMove
	default:
		return false
	}

	c.start = pt
	c.initial = clip
	return true
}

// PointerMove advances the active gesture. Moves map the screen delta
// 1:1 onto the clip offset; resizes scale by the ratio of pointer
// distances from the clip center, floored at the minimum scale.
func (c *CanvasController) PointerMove(pt geom.Point, canvasW, canvasH int) {
	switch c.mode {
	case canvasMove:
		c.store.Apply(func(p *timeline.Project) *timeline.Project {
			return p.UpdateClip(c.initial.ID, timeline.ClipPatch{
				X: timeline.Ptr(c.initial.X + (pt.X - c.start.X)),
				Y: timeline.Ptr(c.initial.Y + (pt.Y - c.start.Y)),
			})
		})

	case canvasResize:
		center := geom.Point{
			X: float64(canvasW)/2 + c.initial.X,
			Y: float64(canvasH)/2 + c.initial.Y,
		}
		distInitial := geom.Distance(c.start, center)
		if distInitial == 0 {
			return
		}
		factor := geom.Distance(pt, center) / distInitial
		scale := c.initial.Scale * factor
		if scale < minScale {
			scale = minScale
		}
		c.store.Apply(func(p *timeline.Project) *timeline.Project {
			return p.UpdateClip(c.initial.ID, timeline.ClipPatch{
				Scale: timeline.Ptr(scale),
			})
		})
	}
}

// PointerUp ends the gesture
func (c *CanvasController) PointerUp() {
	c.mode = canvasIdle
	c.initial = timeline.Clip{}
}

// Active reports whether a gesture is in progress
func (c *CanvasController) Active() bool {
	return c.mode != canvasIdle
}
