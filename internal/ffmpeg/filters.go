package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder constructs linear ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{filters: make([]string, 0)}
}

// Scale adds a scale filter with explicit dimensions
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// ScaleWidth adds a scale filter that keeps the aspect ratio
func (fb *FilterBuilder) ScaleWidth(width int) *FilterBuilder {
	if width <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:-2", width))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%f", fps))
	return fb
}

// ATrim cuts an audio stream to a source interval and rebases timestamps
func (fb *FilterBuilder) ATrim(start, duration float64) *FilterBuilder {
	if start < 0 {
		start = 0
	}
	if duration <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("atrim=start=%.3f:duration=%.3f", start, duration),
		"asetpts=PTS-STARTPTS")
	return fb
}

// ATempo adjusts audio playback speed
func (fb *FilterBuilder) ATempo(rate float64) *FilterBuilder {
	if rate <= 0 || rate == 1 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("atempo=%.3f", rate))
	return fb
}

// Volume scales audio amplitude, 0..1
func (fb *FilterBuilder) Volume(v float64) *FilterBuilder {
	if v < 0 {
		v = 0
	}
	if v == 1 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("volume=%.3f", v))
	return fb
}

// ADelay shifts an audio stream later by the given number of seconds,
// applied to every channel
func (fb *FilterBuilder) ADelay(seconds float64) *FilterBuilder {
	if seconds <= 0 {
		return fb
	}
	ms := int(seconds * 1000)
	fb.filters = append(fb.filters, fmt.Sprintf("adelay=%d:all=1", ms))
	return fb
}

// Custom adds a raw filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build joins the chain with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
