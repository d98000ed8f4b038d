package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ptr returns a pointer to v, for building ClipPatch values
func Ptr[T any](v T) *T {
	return &v
}

// ClipPatch is a partial clip update; nil fields are left unchanged
type ClipPatch struct {
	TrackID   *string
	StartTime *float64
	Duration  *float64
	Offset    *float64
	X         *float64
	Y         *float64
	Scale     *float64
	Rotation  *float64
	Opacity   *float64
	Mirror    *bool
	Speed     *float64
	TextData  *TextData
}

func (patch ClipPatch) apply(c *Clip) {
	if patch.TrackID != nil {
		c.TrackID = *patch.TrackID
	}
	if patch.StartTime != nil {
		c.StartTime = *patch.StartTime
	}
	if patch.Duration != nil {
		c.Duration = *patch.Duration
	}
	if patch.Offset != nil {
		c.Offset = *patch.Offset
	}
	if patch.X != nil {
		c.X = *patch.X
	}
	if patch.Y != nil {
		c.Y = *patch.Y
	}
	if patch.Scale != nil {
		c.Scale = *patch.Scale
	}
	if patch.Rotation != nil {
		c.Rotation = *patch.Rotation
	}
	if patch.Opacity != nil {
		c.Opacity = *patch.Opacity
	}
	if patch.Mirror != nil {
		c.Mirror = *patch.Mirror
	}
	if patch.Speed != nil {
		c.Speed = *patch.Speed
	}
	if patch.TextData != nil {
		td := *patch.TextData
		c.TextData = &td
	}
}

func newClip(assetID, trackID string, start, duration float64) Clip {
	return Clip{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		TrackID:   trackID,
		StartTime: start,
		Duration:  duration,
		Scale:     1,
		Opacity:   1,
		Speed:     1,
	}
}

// Recalculate enforces the duration and playhead invariants. Project
// duration is the furthest clip end, floored at 1 second; a playhead past
// the new duration resets to 0. Every structural mutation funnels through
// here; playback and export bound their loops to Duration.
func (p *Project) Recalculate() *Project {
	out := p.Clone()
	maxEnd := 0.0
	for _, c := range out.Clips {
		if end := c.EndTime(); end > maxEnd {
			maxEnd = end
		}
	}
	out.Duration = maxEnd
	if out.Duration < 1 {
		out.Duration = 1
	}
	if out.CurrentTime > out.Duration {
		out.CurrentTime = 0
	}
	out.Meta.LastModified = time.Now()
	return out
}

// AddClip places an asset on a track at the given time and selects the new
// clip. Unknown asset or track ids leave the project unchanged.
func (p *Project) AddClip(assetID, trackID string, at float64) *Project {
	asset, ok := p.Asset(assetID)
	if !ok {
		return p
	}
	if _, ok := p.Track(trackID); !ok {
		return p
	}
	out := p.Clone()
	clip := newClip(asset.ID, trackID, at, asset.Duration)
	clip.EffectType = asset.EffectType
	out.Clips = append(out.Clips, clip)
	out.SelectedClipID = clip.ID
	return out.Recalculate()
}

// AddTextClip synthesizes a placeholder text asset plus a clip carrying
// the given styling, and selects the clip.
func (p *Project) AddTextClip(td TextData, trackID string, at float64) *Project {
	if _, ok := p.Track(trackID); !ok {
		return p
	}
	out := p.Clone()
	asset := Asset{
		ID:       uuid.NewString(),
		Name:     "Text",
		Kind:     KindText,
		Duration: PlaceholderDuration,
	}
	clip := newClip(asset.ID, trackID, at, PlaceholderDuration)
	clip.TextData = &td
	out.Assets = append(out.Assets, asset)
	out.Clips = append(out.Clips, clip)
	out.SelectedClipID = clip.ID
	return out.Recalculate()
}

// AddEffectClip synthesizes a placeholder effect asset plus a clip, and
// selects the clip.
func (p *Project) AddEffectClip(effect EffectType, trackID string, at float64) *Project {
	if _, ok := p.Track(trackID); !ok {
		return p
	}
	out := p.Clone()
	asset := Asset{
		ID:         uuid.NewString(),
		Name:       string(effect),
		Kind:       KindEffect,
		Duration:   PlaceholderDuration,
		EffectType: effect,
	}
	clip := newClip(asset.ID, trackID, at, PlaceholderDuration)
	clip.EffectType = effect
	out.Assets = append(out.Assets, asset)
	out.Clips = append(out.Clips, clip)
	out.SelectedClipID = clip.ID
	return out.Recalculate()
}

// AddAsset appends an imported asset to the library
func (p *Project) AddAsset(a Asset) *Project {
	out := p.Clone()
	out.Assets = append(out.Assets, a)
	out.Meta.LastModified = time.Now()
	return out
}

// UpdateClip merges a patch into the clip with the given id. An unknown id
// is a no-op, not an error.
func (p *Project) UpdateClip(id string, patch ClipPatch) *Project {
	idx := -1
	for i, c := range p.Clips {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p
	}
	out := p.Clone()
	patch.apply(&out.Clips[idx])
	return out.Recalculate()
}

// DeleteClip removes a clip and clears the selection if it pointed at it
func (p *Project) DeleteClip(id string) *Project {
	if _, ok := p.Clip(id); !ok {
		return p
	}
	out := p.Clone()
	kept := out.Clips[:0]
	for _, c := range out.Clips {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	out.Clips = kept
	if out.SelectedClipID == id {
		out.SelectedClipID = ""
	}
	return out.Recalculate()
}

// DeleteAsset removes an asset and cascades to every clip referencing it.
// The selection is cleared if it pointed at a removed entity.
func (p *Project) DeleteAsset(id string) *Project {
	if _, ok := p.Asset(id); !ok {
		return p
	}
	out := p.Clone()
	assets := out.Assets[:0]
	for _, a := range out.Assets {
		if a.ID != id {
			assets = append(assets, a)
		}
	}
	out.Assets = assets

	clips := out.Clips[:0]
	for _, c := range out.Clips {
		if c.AssetID == id {
			if out.SelectedClipID == c.ID {
				out.SelectedClipID = ""
			}
			continue
		}
		clips = append(clips, c)
	}
	out.Clips = clips
	if out.SelectedClipID == id {
		out.SelectedClipID = ""
	}
	return out.Recalculate()
}

// AddTrack appends a new unmuted video track
func (p *Project) AddTrack() *Project {
	out := p.Clone()
	out.Tracks = append(out.Tracks, Track{
		ID:   uuid.NewString(),
		Name: fmt.Sprintf("Track %d", len(out.Tracks)+1),
		Kind: TrackVideo,
	})
	out.Meta.LastModified = time.Now()
	return out
}

// ResolveAssetDuration corrects an asset's duration once real media
// metadata is known. Clips of that asset still carrying the provisional
// duration are corrected with it.
func (p *Project) ResolveAssetDuration(assetID string, duration float64) *Project {
	if duration <= 0 {
		return p
	}
	idx := -1
	for i, a := range p.Assets {
		if a.ID == assetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p
	}
	out := p.Clone()
	out.Assets[idx].Duration = duration
	for i, c := range out.Clips {
		if c.AssetID == assetID && c.Duration == ProvisionalDuration {
			out.Clips[i].Duration = duration
		}
	}
	return out.Recalculate()
}

// SelectClip sets the selection; an empty id clears it
func (p *Project) SelectClip(id string) *Project {
	if p.SelectedClipID == id {
		return p
	}
	out := p.Clone()
	out.SelectedClipID = id
	return out
}

// Seek moves the playhead. Only the lower bound is clamped; scrubbing past
// the last clip is allowed and the next recompute or toggle sorts it out.
func (p *Project) Seek(t float64) *Project {
	out := p.Clone()
	if t < 0 {
		t = 0
	}
	out.CurrentTime = t
	return out
}

// TogglePlay flips the transport. Toggling at the end restarts from 0.
func (p *Project) TogglePlay() *Project {
	out := p.Clone()
	if out.CurrentTime >= out.Duration {
		out.CurrentTime = 0
		out.Playing = true
		return out
	}
	out.Playing = !out.Playing
	return out
}

// Advance moves the playhead forward by dt seconds while playing. Reaching
// the duration stops playback exactly there, never overshooting.
func (p *Project) Advance(dt float64) *Project {
	if !p.Playing || dt <= 0 {
		return p
	}
	out := p.Clone()
	next := out.CurrentTime + dt
	if next >= out.Duration {
		out.CurrentTime = out.Duration
		out.Playing = false
	} else {
		out.CurrentTime = next
	}
	return out
}

// SetZoom changes the timeline scale in pixels per second
func (p *Project) SetZoom(zoom float64) *Project {
	if zoom <= 0 {
		return p
	}
	out := p.Clone()
	out.Zoom = zoom
	return out
}
