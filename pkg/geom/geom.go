package geom

import "math"

// Point is a position in canvas pixels.
type Point struct {
	X float64
	Y float64
}

// TimeToPixels converts timeline seconds to a horizontal pixel offset.
func TimeToPixels(seconds, zoom float64) float64 {
	return seconds * zoom
}

// PixelsToTime converts a horizontal pixel offset to timeline seconds.
// Zoom is pixels per second; a non-positive zoom yields 0.
func PixelsToTime(px, zoom float64) float64 {
	if zoom <= 0 {
		return 0
	}
	return px / zoom
}

// Rotate rotates a point around the origin by the given angle in degrees.
func Rotate(p Point, degrees float64) Point {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

// ToLocal transforms a canvas-space point into the rotation-undone local
// space of an object centered at center and rotated by degrees.
func ToLocal(p, center Point, degrees float64) Point {
	return Rotate(Point{X: p.X - center.X, Y: p.Y - center.Y}, -degrees)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// FitWidth scales source dimensions to fill targetWidth while preserving
// the source aspect ratio. A degenerate source fills the target square.
func FitWidth(srcW, srcH, targetWidth float64) (w, h float64) {
	if srcW <= 0 || srcH <= 0 {
		return targetWidth, targetWidth
	}
	return targetWidth, srcH / srcW * targetWidth
}

// FitRatio shrinks a container to the largest inner rectangle with the
// given aspect ratio (width/height).
func FitRatio(containerW, containerH, ratio float64) (w, h float64) {
	if ratio <= 0 || containerH <= 0 {
		return containerW, containerH
	}
	if containerW/containerH > ratio {
		return containerH * ratio, containerH
	}
	return containerW, containerW / ratio
}

// AspectValue maps an aspect ratio label to its numeric width/height value.
// Unknown labels fall back to 16:9.
func AspectValue(label string) float64 {
	switch label {
	case "9:16":
		return 9.0 / 16.0
	case "1:1":
		return 1
	case "4:3":
		return 4.0 / 3.0
	default:
		return 16.0 / 9.0
	}
}
