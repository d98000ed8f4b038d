package gui

import (
	"image"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/kawaiicut/internal/interact"
	"github.com/kikiluvv/kawaiicut/pkg/geom"
)

// previewArea shows composited frames and feeds pointer gestures to the
// canvas controller. Frames render at the configured preview resolution;
// the widget letterboxes them, so pointer positions are mapped back into
// render pixels before hit testing.
type previewArea struct {
	widget.BaseWidget

	img     *canvas.Image
	renderW int
	renderH int

	ctl    *interact.CanvasController
	onMiss func()
}

var (
	_ desktop.Mouseable = (*previewArea)(nil)
	_ fyne.Draggable    = (*previewArea)(nil)
)

func newPreviewArea(renderW, renderH int, ctl *interact.CanvasController, onMiss func()) *previewArea {
	pa := &previewArea{
		img:     canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, renderW, renderH))),
		renderW: renderW,
		renderH: renderH,
		ctl:     ctl,
		onMiss:  onMiss,
	}
	pa.img.FillMode = canvas.ImageFillContain
	pa.ExtendBaseWidget(pa)
	return pa
}

func (pa *previewArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(pa.img)
}

func (pa *previewArea) MinSize() fyne.Size {
	return fyne.NewSize(480, 270)
}

// update swaps in a freshly rendered frame. UI thread only.
func (pa *previewArea) update(frame image.Image) {
	pa.img.Image = frame
	pa.img.Refresh()
}

// toCanvas maps a widget position into render pixels
func (pa *previewArea) toCanvas(pos fyne.Position) (geom.Point, bool) {
	sz := pa.Size()
	if sz.Width <= 0 || sz.Height <= 0 {
		return geom.Point{}, false
	}
	scale := math.Min(
		float64(sz.Width)/float64(pa.renderW),
		float64(sz.Height)/float64(pa.renderH),
	)
	if scale <= 0 {
		return geom.Point{}, false
	}
	offX := (float64(sz.Width) - float64(pa.renderW)*scale) / 2
	offY := (float64(sz.Height) - float64(pa.renderH)*scale) / 2
	return geom.Point{
		X: (float64(pos.X) - offX) / scale,
		Y: (float64(pos.Y) - offY) / scale,
	}, true
}

func (pa *previewArea) MouseDown(ev *desktop.MouseEvent) {
	pt, ok := pa.toCanvas(ev.Position)
	if !ok {
		return
	}
	if !pa.ctl.PointerDown(pt, pa.renderW, pa.renderH) && pa.onMiss != nil {
		pa.onMiss()
	}
}

func (pa *previewArea) MouseUp(*desktop.MouseEvent) {
	pa.ctl.PointerUp()
}

func (pa *previewArea) Dragged(ev *fyne.DragEvent) {
	if !pa.ctl.Active() {
		return
	}
	if pt, ok := pa.toCanvas(ev.Position); ok {
		pa.ctl.PointerMove(pt, pa.renderW, pa.renderH)
	}
}

func (pa *previewArea) DragEnd() {
	pa.ctl.PointerUp()
}
