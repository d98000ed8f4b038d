package compositor

import (
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// lineSpacing multiplies the font size to get the distance between
// baselines of a multi-line block
const lineSpacing = 1.2

// drawText renders a text clip centered on the current transform origin.
// Lines stack around the vertical center; each line is anchored by the
// clip's alignment. Outline and shadow mimic the stroke/shadow look of
// the styling fields.
func (c *Compositor) drawText(dc *gg.Context, td timeline.TextData, opacity float64) {
	if td.Content == "" {
		return
	}
	size := td.FontSize
	if size <= 0 {
		size = 40
	}
	dc.SetFontFace(c.fonts.Face(size, td.Bold, td.Italic))

	lines := strings.Split(td.Content, "\n")
	lineHeight := size * lineSpacing
	blockTop := -lineHeight * float64(len(lines)-1) / 2

	ax := 0.5
	switch td.Align {
	case "left":
		ax = 0
	case "right":
		ax = 1
	}

	for i, line := range lines {
		y := blockTop + lineHeight*float64(i)

		if td.BackgroundColor != "" {
			w, h := dc.MeasureString(line)
			pad := size * 0.15
			setColor(dc, td.BackgroundColor, opacity)
			dc.DrawRectangle(-w*ax-pad, y-h/2-pad, w+2*pad, h+2*pad)
			dc.Fill()
		}

		if td.ShadowColor != "" && td.ShadowBlur > 0 {
			// cheap shadow: a soft copy offset by half the blur radius
			off := td.ShadowBlur / 2
			setColor(dc, td.ShadowColor, opacity*0.6)
			dc.DrawStringAnchored(line, off, y+off, ax, 0.5)
		}

		if td.OutlineColor != "" && td.OutlineWidth > 0 {
			setColor(dc, td.OutlineColor, opacity)
			w := td.OutlineWidth
			for _, d := range [][2]float64{
				{-w, 0}, {w, 0}, {0, -w}, {0, w},
				{-w, -w}, {w, -w}, {-w, w}, {w, w},
			} {
				dc.DrawStringAnchored(line, d[0], y+d[1], ax, 0.5)
			}
		}

		setColor(dc, td.Color, opacity)
		dc.DrawStringAnchored(line, 0, y, ax, 0.5)
	}
}

// setColor applies a #rgb/#rrggbb hex color scaled by the clip opacity.
// Unparseable colors fall back to white.
func setColor(dc *gg.Context, hex string, opacity float64) {
	r, g, b, ok := parseHexColor(hex)
	if !ok {
		r, g, b = 1, 1, 1
	}
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	dc.SetRGBA(r, g, b, opacity)
}

func parseHexColor(s string) (r, g, b float64, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return float64(v>>16&0xff) / 255, float64(v>>8&0xff) / 255, float64(v&0xff) / 255, true
}
