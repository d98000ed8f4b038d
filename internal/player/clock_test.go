package player

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

type recordingRecon struct {
	times []float64
}

func (r *recordingRecon) Reconcile(_ *timeline.Project, t float64) {
	r.times = append(r.times, t)
}

func clockRig(duration float64) (*Clock, *ManualScheduler, *recordingRecon, *[]float64, func(time.Duration)) {
	p := timeline.NewProject("clock", "16:9")
	p.Assets = []timeline.Asset{{ID: "v", Kind: timeline.KindVideo, Src: "/tmp/v", Duration: duration}}
	p.Clips = []timeline.Clip{{
		ID: "c", AssetID: "v", TrackID: p.Tracks[1].ID,
		Duration: duration, Scale: 1, Opacity: 1, Speed: 1,
	}}
	store := timeline.NewStore(p.Recalculate(), nil)

	sched := &ManualScheduler{}
	recon := &recordingRecon{}
	frames := &[]float64{}
	c := NewClock(store, sched, recon, func(_ *timeline.Project, t float64) {
		*frames = append(*frames, t)
	}, zerolog.Nop())

	wall := time.Unix(5000, 0)
	c.SetNow(func() time.Time { return wall })
	advance := func(d time.Duration) {
		wall = wall.Add(d)
	}
	return c, sched, recon, frames, advance
}

func TestTickAdvancesByWallDelta(t *testing.T) {
	c, sched, _, _, advance := clockRig(10)

	c.Toggle()
	if !sched.Pending() {
		t.Fatal("playing should schedule a tick")
	}

	advance(50 * time.Millisecond)
	sched.Fire()
	if got := c.store.Current().CurrentTime; got != 0.05 {
		t.Errorf("expected playhead at 0.05, got %f", got)
	}
	if !sched.Pending() {
		t.Error("each tick should schedule the next")
	}
}

func TestTickDeltaClamped(t *testing.T) {
	c, sched, _, _, advance := clockRig(10)

	c.Toggle()
	advance(5 * time.Second)
	sched.Fire()
	if got := c.store.Current().CurrentTime; got != MaxTickDelta {
		t.Errorf("stalled tick should clamp to %f, got %f", MaxTickDelta, got)
	}
}

func TestStopCancelsPendingTick(t *testing.T) {
	c, sched, _, _, _ := clockRig(10)

	c.Toggle()
	if !sched.Pending() {
		t.Fatal("playing should schedule a tick")
	}
	c.Toggle()
	if sched.Pending() {
		t.Error("stopping must cancel the outstanding tick")
	}
	if c.Playing() {
		t.Error("transport should be stopped")
	}
}

func TestReachingEndStopsLoop(t *testing.T) {
	c, sched, _, _, advance := clockRig(10)

	c.Seek(9.95)
	c.Toggle()
	advance(100 * time.Millisecond)
	sched.Fire()

	p := c.store.Current()
	if p.CurrentTime != 10 || p.Playing {
		t.Errorf("expected stop exactly at duration, got t=%f playing=%v", p.CurrentTime, p.Playing)
	}
	if sched.Pending() {
		t.Error("a stopped transport must not keep ticking")
	}
}

func TestToggleAtEndRestarts(t *testing.T) {
	c, sched, _, _, _ := clockRig(10)

	c.Seek(10)
	c.Toggle()
	p := c.store.Current()
	if p.CurrentTime != 0 || !p.Playing {
		t.Errorf("toggle at end should restart from 0, got t=%f playing=%v", p.CurrentTime, p.Playing)
	}
	if !sched.Pending() {
		t.Error("restart should schedule a tick")
	}
}

func TestReconcilerAndFrameSeeSameTime(t *testing.T) {
	c, sched, recon, frames, advance := clockRig(10)

	c.Toggle()
	advance(40 * time.Millisecond)
	sched.Fire()
	advance(40 * time.Millisecond)
	sched.Fire()

	if len(recon.times) != len(*frames) {
		t.Fatalf("reconciler ran %d times, frames %d", len(recon.times), len(*frames))
	}
	for i := range recon.times {
		if recon.times[i] != (*frames)[i] {
			t.Errorf("tick %d: reconciler saw %f, frame saw %f", i, recon.times[i], (*frames)[i])
		}
	}
}

func TestSeekPresentsFrameWhilePaused(t *testing.T) {
	c, sched, _, frames, _ := clockRig(10)

	c.Seek(3.5)
	if sched.Pending() {
		t.Error("seeking while paused must not start the loop")
	}
	if len(*frames) == 0 || (*frames)[len(*frames)-1] != 3.5 {
		t.Errorf("seek should present the frame at 3.5, got %v", *frames)
	}
}

func TestSkipIsRelative(t *testing.T) {
	c, _, _, _, _ := clockRig(30)

	c.Seek(10)
	c.Skip(5)
	if got := c.store.Current().CurrentTime; got != 15 {
		t.Errorf("skip +5 from 10 should land on 15, got %f", got)
	}
	c.Skip(-20)
	if got := c.store.Current().CurrentTime; got != 0 {
		t.Errorf("skip past the start should clamp to 0, got %f", got)
	}
}
