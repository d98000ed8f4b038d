package media

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// SeekTolerance is how far a transport may drift from its expected source
// time before the synchronizer issues a corrective seek. Seeking on every
// tick would stutter; small drift is inaudible.
const SeekTolerance = 0.25

// Synchronizer reconciles live media transports with the project state
// once per tick. Every step is idempotent: reconciling the same state
// twice issues no further transport commands.
type Synchronizer struct {
	cache  *Cache
	mixer  *Mixer
	logger zerolog.Logger
}

func NewSynchronizer(cache *Cache, mixer *Mixer, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		cache:  cache,
		mixer:  mixer,
		logger: logger.With().Str("component", "sync").Logger(),
	}
}

// Reconcile drives every audio-capable resource toward the state the
// project demands at time t: active clips get position, rate, volume and
// play/pause matched; inactive resources are paused and rewound.
func (s *Synchronizer) Reconcile(p *timeline.Project, t float64) {
	active := make(map[string]bool)

	for _, clip := range p.ActiveClips(t) {
		asset, ok := p.Asset(clip.AssetID)
		if !ok || !asset.Kind.HasAudio() {
			continue
		}
		res, ok := s.cache.Lookup(asset.Src)
		if !ok || !res.Ready() {
			continue
		}
		active[asset.Src] = true
		s.reconcileActive(p, clip, res, t)
	}

	// anything not covered by an active clip goes silent and rewinds, so
	// re-entering the clip starts from its mapped source time
	s.cache.Playables(func(res *Resource) {
		if active[res.Src()] {
			return
		}
		if res.Playing() {
			res.Pause()
		}
		if res.Position() > 0 {
			res.SetPosition(0)
		}
	})
}

func (s *Synchronizer) reconcileActive(p *timeline.Project, clip timeline.Clip, res *Resource, t float64) {
	expected := clip.SourceTime(t)
	if math.Abs(res.Position()-expected) > SeekTolerance {
		res.SetPosition(expected)
	}

	speed := clip.Speed
	if speed <= 0 {
		speed = 1
	}
	res.SetRate(speed)

	volume := 1.0
	if track, ok := p.Track(clip.TrackID); ok && track.Muted {
		volume = 0
	}
	res.SetVolume(volume)

	if p.Playing {
		if !res.Playing() {
			if r := s.mixer.EnsureAttached(res.Src()); r == AttachFailed {
				s.logger.Warn().Str("src", res.Src()).Msg("playing without audio routing")
			}
			if err := s.mixer.Resume(); err != nil {
				s.logger.Warn().Err(err).Msg("mix graph resume failed")
			}
			res.Play()
		}
	} else if res.Playing() {
		res.Pause()
	}
}
