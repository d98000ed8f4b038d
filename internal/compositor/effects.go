package compositor

import (
	"image"
	"image/draw"
	"math"

	"github.com/fogleman/gg"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// Filter strengths matching the product's canvas filter terms
const (
	blurRadius  = 5
	sepiaAmount = 0.8
)

// hasPixelFilter reports whether any active effect needs per-pixel work
// on the layers it covers
func hasPixelFilter(effects []ActiveEffect) bool {
	return hasEffect(effects, timeline.EffectBlur) ||
		hasEffect(effects, timeline.EffectSepia) ||
		hasEffect(effects, timeline.EffectInvert)
}

// filterLayer applies the global per-frame filters to a layer image.
// Presence of BLUR/SEPIA/INVERT anywhere in the active set filters every
// visual clip identically that frame; the filter is not scoped to the
// clip carrying the effect. Changing this changes visible output.
func filterLayer(src image.Image, effects []ActiveEffect) image.Image {
	if !hasPixelFilter(effects) {
		return src
	}
	sepia := hasEffect(effects, timeline.EffectSepia)
	invert := hasEffect(effects, timeline.EffectInvert)
	blur := hasEffect(effects, timeline.EffectBlur)

	img := toRGBA(src)
	if sepia {
		applySepia(img, sepiaAmount)
	}
	if invert {
		applyInvert(img)
	}
	if blur {
		img = boxBlur(img, blurRadius)
	}
	return img
}

func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return img
}

func applySepia(img *image.RGBA, amount float64) {
	inv := 1 - amount
	for i := 0; i < len(img.Pix); i += 4 {
		r := float64(img.Pix[i])
		g := float64(img.Pix[i+1])
		b := float64(img.Pix[i+2])

		sr := 0.393*r + 0.769*g + 0.189*b
		sg := 0.349*r + 0.686*g + 0.168*b
		sb := 0.272*r + 0.534*g + 0.131*b

		img.Pix[i] = clamp8(inv*r + amount*sr)
		img.Pix[i+1] = clamp8(inv*g + amount*sg)
		img.Pix[i+2] = clamp8(inv*b + amount*sb)
	}
}

func applyInvert(img *image.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		// pixels are alpha-premultiplied; invert within the alpha range
		img.Pix[i] = a - img.Pix[i]
		img.Pix[i+1] = a - img.Pix[i+1]
		img.Pix[i+2] = a - img.Pix[i+2]
	}
}

// boxBlur is a two-pass box blur, the cheap stand-in for a gaussian at
// this radius
func boxBlur(img *image.RGBA, radius int) *image.RGBA {
	if radius <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := image.NewRGBA(b)
	out := image.NewRGBA(b)

	// horizontal
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sr, sg, sb, sa, n int
			for dx := -radius; dx <= radius; dx++ {
				xx := x + dx
				if xx < 0 || xx >= w {
					continue
				}
				i := y*img.Stride + xx*4
				sr += int(img.Pix[i])
				sg += int(img.Pix[i+1])
				sb += int(img.Pix[i+2])
				sa += int(img.Pix[i+3])
				n++
			}
			i := y*tmp.Stride + x*4
			tmp.Pix[i] = uint8(sr / n)
			tmp.Pix[i+1] = uint8(sg / n)
			tmp.Pix[i+2] = uint8(sb / n)
			tmp.Pix[i+3] = uint8(sa / n)
		}
	}

	// vertical
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sr, sg, sb, sa, n int
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				i := yy*tmp.Stride + x*4
				sr += int(tmp.Pix[i])
				sg += int(tmp.Pix[i+1])
				sb += int(tmp.Pix[i+2])
				sa += int(tmp.Pix[i+3])
				n++
			}
			i := y*out.Stride + x*4
			out.Pix[i] = uint8(sr / n)
			out.Pix[i+1] = uint8(sg / n)
			out.Pix[i+2] = uint8(sb / n)
			out.Pix[i+3] = uint8(sa / n)
		}
	}
	return out
}

// applyOpacity scales a layer's alpha. RGBA pixels are premultiplied, so
// every channel scales together.
func applyOpacity(src image.Image, opacity float64) image.Image {
	if opacity >= 0.999 {
		return src
	}
	if opacity < 0 {
		opacity = 0
	}
	img := toRGBA(src)
	for i := 0; i < len(img.Pix); i++ {
		img.Pix[i] = uint8(float64(img.Pix[i]) * opacity)
	}
	return img
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// effectProgress is the clip-local 0..1 progress of an effect placement
func effectProgress(clip timeline.Clip, t float64) float64 {
	if clip.Duration <= 0 {
		return 1
	}
	p := (t - clip.StartTime) / clip.Duration
	return math.Max(0, math.Min(1, p))
}

// drawEffectOverlays runs the full-frame post pass. FADE_OUT darkens with
// clip progress, SUNRISE is its inverse, FLASH flickers with the wall
// clock, VHS draws scanlines every 4px. Remaining effect types are
// placements without a frame contribution.
func (c *Compositor) drawEffectOverlays(dc *gg.Context, effects []ActiveEffect, t float64, w, h int) {
	fw := float64(w)
	fh := float64(h)

	for _, e := range effects {
		switch e.Type {
		case timeline.EffectFadeOut:
			dc.SetRGBA(0, 0, 0, effectProgress(e.Clip, t))
			dc.DrawRectangle(0, 0, fw, fh)
			dc.Fill()

		case timeline.EffectSunrise:
			dc.SetRGBA(0, 0, 0, 1-effectProgress(e.Clip, t))
			dc.DrawRectangle(0, 0, fw, fh)
			dc.Fill()

		case timeline.EffectFlash:
			ms := float64(c.now().UnixMilli())
			alpha := math.Abs(math.Sin(ms/100)) * 0.5
			dc.SetRGBA(1, 1, 1, alpha)
			dc.DrawRectangle(0, 0, fw, fh)
			dc.Fill()

		case timeline.EffectVHS:
			dc.SetRGBA(0, 1, 1, 0.1)
			for y := 0; y < h; y += 4 {
				dc.DrawRectangle(0, float64(y), fw, 1)
				dc.Fill()
			}
		}
	}
}
