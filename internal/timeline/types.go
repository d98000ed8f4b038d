package timeline

import (
	"time"

	"github.com/google/uuid"
)

// AssetKind identifies what a media asset contains
type AssetKind string

const (
	KindVideo  AssetKind = "video"
	KindImage  AssetKind = "image"
	KindAudio  AssetKind = "audio"
	KindText   AssetKind = "text"
	KindEffect AssetKind = "effect"
)

// HasAudio reports whether the kind carries an audio stream
func (k AssetKind) HasAudio() bool {
	return k == KindVideo || k == KindAudio
}

// Unbounded reports whether clips of this kind may outlast their source.
// Images, text and effects have no intrinsic length, so trimming them is
// not clamped to the asset duration.
func (k AssetKind) Unbounded() bool {
	return k == KindImage || k == KindText || k == KindEffect
}

// EffectType identifies a visual effect placement
type EffectType string

const (
	EffectSnow    EffectType = "SNOW"
	EffectLeaves  EffectType = "LEAVES"
	EffectRain    EffectType = "RAIN"
	EffectVHS     EffectType = "VHS"
	EffectBlur    EffectType = "BLUR"
	EffectSepia   EffectType = "SEPIA"
	EffectFlash   EffectType = "FLASH"
	EffectInvert  EffectType = "INVERT"
	EffectFrame   EffectType = "FRAME"
	EffectSunrise EffectType = "SUNRISE"
	EffectFadeOut EffectType = "FADE_OUT"
	EffectShake   EffectType = "SHAKE"
	EffectStars   EffectType = "STARS"
)

// EffectTypes lists every effect in panel order
var EffectTypes = []EffectType{
	EffectSnow, EffectLeaves, EffectRain, EffectVHS, EffectBlur,
	EffectSepia, EffectFlash, EffectInvert, EffectFrame, EffectSunrise,
	EffectFadeOut, EffectShake, EffectStars,
}

// Asset is an importable or generated media reference
type Asset struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       AssetKind  `json:"kind"`
	Src        string     `json:"src"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
	Duration   float64    `json:"duration"`
	EffectType EffectType `json:"effectType,omitempty"`
}

// TextData holds the styling of a text clip
type TextData struct {
	Content         string  `json:"content"`
	FontFamily      string  `json:"fontFamily"`
	FontSize        float64 `json:"fontSize"`
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	Align           string  `json:"align"`
	Bold            bool    `json:"bold,omitempty"`
	Italic          bool    `json:"italic,omitempty"`
	ShadowColor     string  `json:"shadowColor,omitempty"`
	ShadowBlur      float64 `json:"shadowBlur,omitempty"`
	OutlineColor    string  `json:"outlineColor,omitempty"`
	OutlineWidth    float64 `json:"outlineWidth,omitempty"`
}

// Clip places one asset on one track over a time interval.
// StartTime and Duration are timeline seconds; Offset is seconds into the
// source asset where playback begins.
type Clip struct {
	ID        string  `json:"id"`
	AssetID   string  `json:"assetId"`
	TrackID   string  `json:"trackId"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Offset    float64 `json:"offset"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	Mirror   bool    `json:"mirror"`
	Speed    float64 `json:"speed"`

	TextData   *TextData  `json:"textData,omitempty"`
	EffectType EffectType `json:"effectType,omitempty"`
}

// EndTime returns the clip's exclusive end on the timeline
func (c Clip) EndTime() float64 {
	return c.StartTime + c.Duration
}

// ActiveAt reports whether the clip covers t. The interval is half-open:
// a clip is active at its start instant and inactive at its end instant.
func (c Clip) ActiveAt(t float64) bool {
	return t >= c.StartTime && t < c.EndTime()
}

// SourceTime maps timeline seconds to seconds within the source asset
func (c Clip) SourceTime(t float64) float64 {
	return (t-c.StartTime)*c.Speed + c.Offset
}

// TrackKind identifies a lane type
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is an ordered lane. Position in the project track list defines
// z-order: the first track is topmost.
type Track struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Kind   TrackKind `json:"kind"`
	Muted  bool      `json:"muted"`
	Locked bool      `json:"locked"`
}

// Metadata describes a project in dashboard listings
type Metadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AspectRatio  string    `json:"aspectRatio"`
	LastModified time.Time `json:"lastModified"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Deleted      bool      `json:"deleted,omitempty"`
}

// Project is the aggregate editing state
type Project struct {
	Meta           Metadata `json:"meta"`
	Assets         []Asset  `json:"assets"`
	Tracks         []Track  `json:"tracks"`
	Clips          []Clip   `json:"clips"`
	CurrentTime    float64  `json:"currentTime"`
	Duration       float64  `json:"duration"`
	Playing        bool     `json:"isPlaying"`
	SelectedClipID string   `json:"selectedClipId,omitempty"`
	Zoom           float64  `json:"zoom"`
}

// UserProfile is the editing user's identity card
type UserProfile struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Avatar  string `json:"avatar"`
}

// Settings holds application-wide preferences
type Settings struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

const (
	// DefaultZoom is the initial timeline scale in pixels per second
	DefaultZoom = 30.0
	// PlaceholderDuration seeds text/effect assets and image imports
	PlaceholderDuration = 5.0
	// ProvisionalDuration seeds audio/video assets until probing resolves
	// their real length
	ProvisionalDuration = 10.0
)

// NewProject creates an empty project with the three default tracks
func NewProject(name, aspectRatio string) *Project {
	return &Project{
		Meta: Metadata{
			ID:           uuid.NewString(),
			Name:         name,
			AspectRatio:  aspectRatio,
			LastModified: time.Now(),
		},
		Tracks: []Track{
			{ID: uuid.NewString(), Name: "Overlay", Kind: TrackVideo},
			{ID: uuid.NewString(), Name: "Video 1", Kind: TrackVideo},
			{ID: uuid.NewString(), Name: "Audio 1", Kind: TrackAudio},
		},
		Duration: 10,
		Zoom:     DefaultZoom,
	}
}

// Asset returns the asset with the given id, if present
func (p *Project) Asset(id string) (Asset, bool) {
	for _, a := range p.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// Clip returns the clip with the given id, if present
func (p *Project) Clip(id string) (Clip, bool) {
	for _, c := range p.Clips {
		if c.ID == id {
			return c, true
		}
	}
	return Clip{}, false
}

// Track returns the track with the given id, if present
func (p *Project) Track(id string) (Track, bool) {
	for _, t := range p.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// TrackIndex returns the list position of a track, or -1
func (p *Project) TrackIndex(id string) int {
	for i, t := range p.Tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SelectedClip returns the currently selected clip, if any
func (p *Project) SelectedClip() (Clip, bool) {
	if p.SelectedClipID == "" {
		return Clip{}, false
	}
	return p.Clip(p.SelectedClipID)
}

// ActiveClips returns the clips covering t, in clip-list order
func (p *Project) ActiveClips(t float64) []Clip {
	var out []Clip
	for _, c := range p.Clips {
		if c.ActiveAt(t) {
			out = append(out, c)
		}
	}
	return out
}

// Clone deep-copies the project so a snapshot can be mutated independently
func (p *Project) Clone() *Project {
	cp := *p
	cp.Assets = append([]Asset(nil), p.Assets...)
	cp.Tracks = append([]Track(nil), p.Tracks...)
	cp.Clips = append([]Clip(nil), p.Clips...)
	for i, c := range cp.Clips {
		if c.TextData != nil {
			td := *c.TextData
			cp.Clips[i].TextData = &td
		}
	}
	return &cp
}
