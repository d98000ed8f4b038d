package compositor

import (
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/geom"
)

// Bounds is a clip's visual footprint on the canvas: its center in canvas
// pixels, its fitted size multiplied by the clip scale, and its rotation.
// Hit testing re-derives this from state instead of caching layout, so
// the compositor and the manipulation controller always agree.
type Bounds struct {
	Center   geom.Point
	Width    float64
	Height   float64
	Rotation float64
}

// DimensionSource is the subset of FrameSource needed for layout
type DimensionSource interface {
	Dimensions(src string) (w, h int, ok bool)
}

// ClipBounds computes the canvas-space bounds of a clip. Audio and effect
// clips have no visual footprint. When the clip's resource has not
// resolved dimensions yet the fitted height falls back to a square, the
// same rule the draw pass uses.
func ClipBounds(p *timeline.Project, dims DimensionSource, clipID string, canvasW, canvasH int) (Bounds, bool) {
	clip, ok := p.Clip(clipID)
	if !ok {
		return Bounds{}, false
	}
	asset, ok := p.Asset(clip.AssetID)
	if !ok || asset.Kind == timeline.KindAudio || asset.Kind == timeline.KindEffect {
		return Bounds{}, false
	}

	w := float64(canvasW)
	h := w
	if asset.Kind == timeline.KindImage || asset.Kind == timeline.KindVideo {
		if sw, sh, ok := dims.Dimensions(asset.Src); ok {
			w, h = geom.FitWidth(float64(sw), float64(sh), float64(canvasW))
		}
	}

	return Bounds{
		Center: geom.Point{
			X: float64(canvasW)/2 + clip.X,
			Y: float64(canvasH)/2 + clip.Y,
		},
		Width:    w * clip.Scale,
		Height:   h * clip.Scale,
		Rotation: clip.Rotation,
	}, true
}
