package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPixelsToTime(t *testing.T) {
	if got := PixelsToTime(90, 30); !almostEqual(got, 3) {
		t.Errorf("expected 3s, got %f", got)
	}
	if got := PixelsToTime(90, 0); got != 0 {
		t.Errorf("zero zoom should yield 0, got %f", got)
	}
}

func TestTimeToPixelsRoundTrip(t *testing.T) {
	zooms := []float64{1, 30, 120.5}
	for _, zoom := range zooms {
		px := TimeToPixels(4.25, zoom)
		if got := PixelsToTime(px, zoom); !almostEqual(got, 4.25) {
			t.Errorf("zoom %f: round trip gave %f", zoom, got)
		}
	}
}

func TestRotate(t *testing.T) {
	p := Rotate(Point{X: 1, Y: 0}, 90)
	if !almostEqual(p.X, 0) || !almostEqual(p.Y, 1) {
		t.Errorf("90 degree rotation gave (%f, %f)", p.X, p.Y)
	}
}

func TestToLocalUndoesRotation(t *testing.T) {
	center := Point{X: 100, Y: 50}
	local := Point{X: 20, Y: -10}
	rotated := Rotate(local, 37)
	canvas := Point{X: center.X + rotated.X, Y: center.Y + rotated.Y}

	got := ToLocal(canvas, center, 37)
	if !almostEqual(got.X, local.X) || !almostEqual(got.Y, local.Y) {
		t.Errorf("expected (%f, %f), got (%f, %f)", local.X, local.Y, got.X, got.Y)
	}
}

func TestFitWidth(t *testing.T) {
	w, h := FitWidth(1920, 1080, 960)
	if w != 960 || !almostEqual(h, 540) {
		t.Errorf("expected 960x540, got %fx%f", w, h)
	}
	w, h = FitWidth(0, 0, 400)
	if w != 400 || h != 400 {
		t.Errorf("degenerate source should fill square, got %fx%f", w, h)
	}
}

func TestFitRatio(t *testing.T) {
	w, h := FitRatio(1000, 500, 16.0/9.0)
	if !almostEqual(w, 500*16.0/9.0) || h != 500 {
		t.Errorf("wide container: got %fx%f", w, h)
	}
	w, h = FitRatio(300, 1000, 1)
	if w != 300 || h != 300 {
		t.Errorf("tall container: got %fx%f", w, h)
	}
}

func TestAspectValue(t *testing.T) {
	cases := map[string]float64{
		"16:9":    16.0 / 9.0,
		"9:16":    9.0 / 16.0,
		"1:1":     1,
		"4:3":     4.0 / 3.0,
		"unknown": 16.0 / 9.0,
	}
	for label, want := range cases {
		if got := AspectValue(label); !almostEqual(got, want) {
			t.Errorf("%s: expected %f, got %f", label, want, got)
		}
	}
}
