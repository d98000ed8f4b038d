package interact

import (
	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/geom"
)

// minClipDuration is the trim floor in seconds
const minClipDuration = 0.1

// TrimEdge selects which clip edge a trim gesture grabs
type TrimEdge int

const (
	TrimLeft TrimEdge = iota
	TrimRight
)

type clipDrag struct {
	id            string
	startPX       float64
	originalStart float64
}

type clipTrim struct {
	id       string
	edge     TrimEdge
	startPX  float64
	start    float64
	duration float64
	offset   float64
}

// TimelineController turns timeline-strip pointer events into scrubs,
// clip drags and edge trims. Gestures work from the state captured at
// pointer-down, so every move recomputes from the original placement
// instead of accumulating drift.
type TimelineController struct {
	store  *timeline.Store
	seek   func(t float64)
	logger zerolog.Logger

	scrubbing bool
	drag      *clipDrag
	trim      *clipTrim
}

// NewTimeline creates a controller. seek is the playhead setter, wired to
// the playback clock so scrubbing also represents the frame.
func NewTimeline(store *timeline.Store, seek func(float64), logger zerolog.Logger) *TimelineController {
	return &TimelineController{
		store:  store,
		seek:   seek,
		logger: logger.With().Str("component", "timeline-ui").Logger(),
	}
}

// TimeAt converts a strip x position to timeline seconds, clamped at 0
func (tc *TimelineController) TimeAt(px float64) float64 {
	t := geom.PixelsToTime(px, tc.store.Current().Zoom)
	if t < 0 {
		return 0
	}
	return t
}

// BeginScrub starts playhead dragging and seeks immediately
func (tc *TimelineController) BeginScrub(px float64) {
	tc.scrubbing = true
	tc.seek(tc.TimeAt(px))
}

// BeginClipDrag selects the clip and starts moving it
func (tc *TimelineController) BeginClipDrag(clipID string, px float64) {
	clip, ok := tc.store.Current().Clip(clipID)
	if !ok {
		return
	}
	tc.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.SelectClip(clipID)
	})
	tc.drag = &clipDrag{id: clipID, startPX: px, originalStart: clip.StartTime}
}

// BeginTrim selects the clip and starts trimming the given edge
func (tc *TimelineController) BeginTrim(clipID string, edge TrimEdge, px float64) {
	clip, ok := tc.store.Current().Clip(clipID)
	if !ok {
		return
	}
	tc.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.SelectClip(clipID)
	})
	tc.trim = &clipTrim{
		id:       clipID,
		edge:     edge,
		startPX:  px,
		start:    clip.StartTime,
		duration: clip.Duration,
		offset:   clip.Offset,
	}
}

// PointerMove advances whichever gesture is live. hoverTrackID names the
// track lane under the pointer; during a clip drag a different lane
// reassigns the clip to it on the fly.
func (tc *TimelineController) PointerMove(px float64, hoverTrackID string) {
	switch {
	case tc.trim != nil:
		tc.moveTrim(px)
	case tc.drag != nil:
		tc.moveDrag(px, hoverTrackID)
	case tc.scrubbing:
		tc.seek(tc.TimeAt(px))
	}
}

// PointerUp ends every gesture
func (tc *TimelineController) PointerUp() {
	tc.scrubbing = false
	tc.drag = nil
	tc.trim = nil
}

func (tc *TimelineController) moveDrag(px float64, hoverTrackID string) {
	p := tc.store.Current()
	delta := geom.PixelsToTime(px-tc.drag.startPX, p.Zoom)
	start := tc.drag.originalStart + delta
	if start < 0 {
		start = 0
	}

	patch := timeline.ClipPatch{StartTime: timeline.Ptr(start)}
	if hoverTrackID != "" {
		if clip, ok := p.Clip(tc.drag.id); ok && clip.TrackID != hoverTrackID {
			if _, ok := p.Track(hoverTrackID); ok {
				patch.TrackID = timeline.Ptr(hoverTrackID)
			}
		}
	}

	id := tc.drag.id
	tc.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.UpdateClip(id, patch)
	})
}

func (tc *TimelineController) moveTrim(px float64) {
	p := tc.store.Current()
	clip, ok := p.Clip(tc.trim.id)
	if !ok {
		return
	}
	asset, ok := p.Asset(clip.AssetID)
	if !ok {
		return
	}
	delta := geom.PixelsToTime(px-tc.trim.startPX, p.Zoom)

	var patch timeline.ClipPatch
	switch tc.trim.edge {
	case TrimRight:
		duration := tc.trim.duration + delta
		if duration < minClipDuration {
			duration = minClipDuration
		}
		// bounded media cannot outlast the source past its offset
		if !asset.Kind.Unbounded() {
			if limit := asset.Duration - tc.trim.offset; duration > limit {
				duration = limit
			}
		}
		patch.Duration = timeline.Ptr(duration)

	case TrimLeft:
		change := delta
		if tc.trim.duration-change < minClipDuration {
			change = tc.trim.duration - minClipDuration
		}
		if tc.trim.offset+change < 0 {
			change = -tc.trim.offset
		}
		// the end time stays fixed: start, duration and offset shift together
		patch.StartTime = timeline.Ptr(tc.trim.start + change)
		patch.Duration = timeline.Ptr(tc.trim.duration - change)
		patch.Offset = timeline.Ptr(tc.trim.offset + change)
	}

	id := tc.trim.id
	tc.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.UpdateClip(id, patch)
	})
}
