package gui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/fogleman/gg"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/interact"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/geom"
	"github.com/kikiluvv/kawaiicut/pkg/util"
)

const (
	rulerHeight  = 28
	trackHeight  = 44
	trimHandlePX = 6.0
	// stripPad keeps empty room past the last clip so drags can extend
	// the timeline
	stripPad = 240
)

var clipColors = map[timeline.AssetKind]string{
	timeline.KindVideo:  "#5b8def",
	timeline.KindAudio:  "#3fa46a",
	timeline.KindImage:  "#d98f3e",
	timeline.KindText:   "#c25d9a",
	timeline.KindEffect: "#8a63d2",
}

// timelineStrip draws the ruler, track lanes, clips and playhead, and
// routes pointer gestures to the timeline controller. The whole strip
// re-renders per refresh; the draw pass is a few rectangles and stays
// well under a frame.
type timelineStrip struct {
	widget.BaseWidget

	state *timeline.Store
	ctl   *interact.TimelineController
	faces *compositor.FaceCache
	img   *canvas.Image
}

var (
	_ desktop.Mouseable = (*timelineStrip)(nil)
	_ fyne.Draggable    = (*timelineStrip)(nil)
)

func newTimelineStrip(state *timeline.Store, ctl *interact.TimelineController) *timelineStrip {
	ts := &timelineStrip{
		state: state,
		ctl:   ctl,
		faces: compositor.NewFaceCache(),
		img:   canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1))),
	}
	ts.img.FillMode = canvas.ImageFillOriginal
	ts.ExtendBaseWidget(ts)
	return ts
}

func (ts *timelineStrip) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ts.img)
}

func (ts *timelineStrip) MinSize() fyne.Size {
	p := ts.state.Current()
	w := geom.TimeToPixels(p.Duration, p.Zoom) + stripPad
	h := rulerHeight + trackHeight*len(p.Tracks)
	if h < rulerHeight+trackHeight {
		h = rulerHeight + trackHeight
	}
	return fyne.NewSize(float32(w), float32(h))
}

// Refresh re-renders the strip from the latest snapshot. UI thread only.
func (ts *timelineStrip) Refresh() {
	ts.img.Image = ts.render()
	ts.img.Refresh()
	ts.BaseWidget.Refresh()
}

func (ts *timelineStrip) render() image.Image {
	p := ts.state.Current()
	w := int(geom.TimeToPixels(p.Duration, p.Zoom)) + stripPad
	if sw := int(ts.Size().Width); sw > w {
		w = sw
	}
	h := rulerHeight + trackHeight*len(p.Tracks)
	if h < rulerHeight+trackHeight {
		h = rulerHeight + trackHeight
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor("#1e1e24")
	dc.Clear()

	ts.drawRuler(dc, p, w)
	ts.drawLanes(dc, p, w)
	ts.drawClips(dc, p)

	// playhead
	px := geom.TimeToPixels(p.CurrentTime, p.Zoom)
	dc.SetHexColor("#e5484d")
	dc.SetLineWidth(2)
	dc.DrawLine(px, 0, px, float64(h))
	dc.Stroke()

	return dc.Image()
}

func (ts *timelineStrip) drawRuler(dc *gg.Context, p *timeline.Project, w int) {
	dc.SetHexColor("#2a2a32")
	dc.DrawRectangle(0, 0, float64(w), rulerHeight)
	dc.Fill()

	dc.SetFontFace(ts.faces.Face(11, false, false))
	for sec := 0; ; sec++ {
		x := geom.TimeToPixels(float64(sec), p.Zoom)
		if x > float64(w) {
			break
		}
		major := sec%5 == 0
		tick := 6.0
		if major {
			tick = 10
		}
		dc.SetHexColor("#6b6b76")
		dc.SetLineWidth(1)
		dc.DrawLine(x, rulerHeight-tick, x, rulerHeight)
		dc.Stroke()
		if major {
			dc.SetHexColor("#a8a8b3")
			dc.DrawString(util.FormatClock(float64(sec)), x+3, rulerHeight-12)
		}
	}
}

func (ts *timelineStrip) drawLanes(dc *gg.Context, p *timeline.Project, w int) {
	for i, track := range p.Tracks {
		y := float64(rulerHeight + i*trackHeight)
		if i%2 == 0 {
			dc.SetHexColor("#24242c")
		} else {
			dc.SetHexColor("#202028")
		}
		dc.DrawRectangle(0, y, float64(w), trackHeight)
		dc.Fill()

		if track.Muted {
			dc.SetRGBA(0, 0, 0, 0.35)
			dc.DrawRectangle(0, y, float64(w), trackHeight)
			dc.Fill()
		}

		dc.SetFontFace(ts.faces.Face(11, false, false))
		dc.SetHexColor("#55555f")
		dc.DrawString(track.Name, 4, y+13)
	}
}

func (ts *timelineStrip) drawClips(dc *gg.Context, p *timeline.Project) {
	dc.SetFontFace(ts.faces.Face(12, false, false))
	for _, clip := range p.Clips {
		idx := p.TrackIndex(clip.TrackID)
		if idx < 0 {
			continue
		}
		x := geom.TimeToPixels(clip.StartTime, p.Zoom)
		cw := geom.TimeToPixels(clip.Duration, p.Zoom)
		y := float64(rulerHeight+idx*trackHeight) + 4
		ch := float64(trackHeight) - 8

		color := "#5b8def"
		name := ""
		if asset, ok := p.Asset(clip.AssetID); ok {
			if c, ok := clipColors[asset.Kind]; ok {
				color = c
			}
			name = asset.Name
		}
		if clip.TextData != nil {
			name = clip.TextData.Content
		}

		dc.SetHexColor(color)
		dc.DrawRoundedRectangle(x, y, cw, ch, 4)
		dc.Fill()

		if clip.ID == p.SelectedClipID {
			dc.SetRGB(1, 1, 1)
			dc.SetLineWidth(2)
			dc.DrawRoundedRectangle(x, y, cw, ch, 4)
			dc.Stroke()
		}

		if name != "" && cw > 24 {
			dc.SetRGB(1, 1, 1)
			dc.DrawString(name, x+6, y+ch/2+4)
		}
	}
}

// trackAt returns the track lane under a widget y position
func (ts *timelineStrip) trackAt(y float32) (string, bool) {
	if y < rulerHeight {
		return "", false
	}
	p := ts.state.Current()
	idx := (int(y) - rulerHeight) / trackHeight
	if idx < 0 || idx >= len(p.Tracks) {
		return "", false
	}
	return p.Tracks[idx].ID, true
}

// clipAt returns the clip under a widget position, preferring later
// insertions the way the draw order stacks them
func (ts *timelineStrip) clipAt(pos fyne.Position) (timeline.Clip, bool) {
	trackID, ok := ts.trackAt(pos.Y)
	if !ok {
		return timeline.Clip{}, false
	}
	p := ts.state.Current()
	t := geom.PixelsToTime(float64(pos.X), p.Zoom)
	for i := len(p.Clips) - 1; i >= 0; i-- {
		c := p.Clips[i]
		if c.TrackID == trackID && c.ActiveAt(t) {
			return c, true
		}
	}
	return timeline.Clip{}, false
}

func (ts *timelineStrip) MouseDown(ev *desktop.MouseEvent) {
	x := float64(ev.Position.X)
	if ev.Position.Y < rulerHeight {
		ts.ctl.BeginScrub(x)
		return
	}

	clip, ok := ts.clipAt(ev.Position)
	if !ok {
		// empty lane clears the selection
		ts.state.Apply(func(p *timeline.Project) *timeline.Project {
			return p.SelectClip("")
		})
		return
	}

	p := ts.state.Current()
	left := geom.TimeToPixels(clip.StartTime, p.Zoom)
	right := geom.TimeToPixels(clip.EndTime(), p.Zoom)
	switch {
	case x-left <= trimHandlePX:
		ts.ctl.BeginTrim(clip.ID, interact.TrimLeft, x)
	case right-x <= trimHandlePX:
		ts.ctl.BeginTrim(clip.ID, interact.TrimRight, x)
	default:
		ts.ctl.BeginClipDrag(clip.ID, x)
	}
}

func (ts *timelineStrip) MouseUp(*desktop.MouseEvent) {
	ts.ctl.PointerUp()
}

func (ts *timelineStrip) Dragged(ev *fyne.DragEvent) {
	hover, _ := ts.trackAt(ev.Position.Y)
	ts.ctl.PointerMove(float64(ev.Position.X), hover)
}

func (ts *timelineStrip) DragEnd() {
	ts.ctl.PointerUp()
}
