package media

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

type fakeLoader struct {
	infos  map[string]Info
	frames map[string]image.Image
	grabs  []float64
}

func (l *fakeLoader) DecodeImage(_ context.Context, src string) (image.Image, error) {
	img, ok := l.frames[src]
	if !ok {
		return nil, errors.New("no such image")
	}
	return img, nil
}

func (l *fakeLoader) Probe(_ context.Context, src string) (Info, error) {
	info, ok := l.infos[src]
	if !ok {
		return Info{}, errors.New("no such source")
	}
	return info, nil
}

func (l *fakeLoader) GrabFrame(_ context.Context, src string, at float64) (image.Image, error) {
	l.grabs = append(l.grabs, at)
	img, ok := l.frames[src]
	if !ok {
		return nil, errors.New("no such source")
	}
	return img, nil
}

type fakeOutput struct {
	attach  []string
	resumes int
	fail    bool
}

func (o *fakeOutput) Attach(src string) error {
	if o.fail {
		return errors.New("no device")
	}
	o.attach = append(o.attach, src)
	return nil
}

func (o *fakeOutput) Resume() error  { o.resumes++; return nil }
func (o *fakeOutput) Suspend() error { return nil }

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testRig(t *testing.T) (*Cache, *Mixer, *Synchronizer, *fakeLoader, *fakeOutput, *manualClock) {
	t.Helper()
	loader := &fakeLoader{
		infos: map[string]Info{
			"/tmp/v.mp4": {Duration: 30, Width: 640, Height: 360, HasAudio: true},
			"/tmp/a.mp3": {Duration: 60, HasAudio: true},
		},
		frames: map[string]image.Image{
			"/tmp/v.mp4": image.NewRGBA(image.Rect(0, 0, 640, 360)),
		},
	}
	clock := &manualClock{t: time.Unix(1000, 0)}
	cache := NewCache(loader, zerolog.Nop())
	cache.SetClock(clock.now)
	out := &fakeOutput{}
	mixer := NewMixer(out, zerolog.Nop())
	sync := NewSynchronizer(cache, mixer, zerolog.Nop())
	return cache, mixer, sync, loader, out, clock
}

func syncProject(cache *Cache) *timeline.Project {
	p := timeline.NewProject("sync", "16:9")
	asset := timeline.Asset{ID: "v", Kind: timeline.KindVideo, Src: "/tmp/v.mp4", Duration: 30}
	p.Assets = []timeline.Asset{asset}
	p.Clips = []timeline.Clip{{
		ID: "c", AssetID: "v", TrackID: p.Tracks[1].ID,
		StartTime: 2, Duration: 10, Offset: 3, Scale: 1, Opacity: 1, Speed: 1,
	}}
	cache.Acquire(asset)
	return p.Recalculate()
}

func TestReconcileSeeksOnlyPastTolerance(t *testing.T) {
	cache, _, sync, _, _, _ := testRig(t)
	p := syncProject(cache)
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	res, _ := cache.Lookup("/tmp/v.mp4")

	// expected source time at t=5 is (5-2)*1+3 = 6
	res.SetPosition(5.9)
	sync.Reconcile(p, 5)
	if res.Position() != 5.9 {
		t.Errorf("drift under tolerance must not seek, got %f", res.Position())
	}

	res.SetPosition(5.0)
	sync.Reconcile(p, 5)
	if res.Position() != 6.0 {
		t.Errorf("drift past tolerance should seek to 6.0, got %f", res.Position())
	}
}

func TestReconcilePlayPauseFollowsTransport(t *testing.T) {
	cache, mixer, sync, _, out, _ := testRig(t)
	p := syncProject(cache)
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	res, _ := cache.Lookup("/tmp/v.mp4")

	p.Playing = true
	sync.Reconcile(p, 5)
	if !res.Playing() {
		t.Error("resource should play while the project plays over it")
	}
	if len(out.attach) != 1 || out.attach[0] != "/tmp/v.mp4" {
		t.Errorf("source should attach to the mix graph once, got %v", out.attach)
	}
	if !mixer.Running() {
		t.Error("mix graph should resume on first play")
	}

	// second reconcile is a no-op
	sync.Reconcile(p, 5)
	if len(out.attach) != 1 || out.resumes != 1 {
		t.Errorf("reconcile must be idempotent: attaches=%d resumes=%d", len(out.attach), out.resumes)
	}

	p.Playing = false
	sync.Reconcile(p, 5)
	if res.Playing() {
		t.Error("pausing the project should pause the resource")
	}
}

func TestReconcileRewindsInactiveOnce(t *testing.T) {
	cache, _, sync, _, _, _ := testRig(t)
	p := syncProject(cache)
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	res, _ := cache.Lookup("/tmp/v.mp4")

	res.SetPosition(7)
	res.Play()
	sync.Reconcile(p, 20) // past the clip
	if res.Playing() || res.Position() != 0 {
		t.Errorf("inactive resource should pause and rewind, playing=%v pos=%f", res.Playing(), res.Position())
	}

	// already rewound: nothing more to do
	sync.Reconcile(p, 20)
	if res.Position() != 0 {
		t.Errorf("second reconcile should hold at 0, got %f", res.Position())
	}
}

func TestReconcileMutedTrackSilences(t *testing.T) {
	cache, _, sync, _, _, _ := testRig(t)
	p := syncProject(cache)
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	res, _ := cache.Lookup("/tmp/v.mp4")

	p.Tracks[1].Muted = true
	sync.Reconcile(p, 5)
	if res.Volume() != 0 {
		t.Errorf("muted track should zero the volume, got %f", res.Volume())
	}

	p.Tracks[1].Muted = false
	sync.Reconcile(p, 5)
	if res.Volume() != 1 {
		t.Errorf("unmuting should restore volume, got %f", res.Volume())
	}
}

func TestReconcileAppliesClipSpeed(t *testing.T) {
	cache, _, sync, _, _, clock := testRig(t)
	p := syncProject(cache)
	p.Clips[0].Speed = 2
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	res, _ := cache.Lookup("/tmp/v.mp4")

	p.Playing = true
	sync.Reconcile(p, 2)
	if res.Rate() != 2 {
		t.Errorf("rate should follow clip speed, got %f", res.Rate())
	}

	start := res.Position()
	clock.advance(time.Second)
	if got := res.Position() - start; got != 2 {
		t.Errorf("position should advance at 2x, got +%f", got)
	}
}

func TestReconcileSkipsUnresolvedResources(t *testing.T) {
	cache, _, sync, _, _, _ := testRig(t)
	p := syncProject(cache)
	// no Resolve call: resource exists but is not ready
	sync.Reconcile(p, 5)
	res, _ := cache.Lookup("/tmp/v.mp4")
	if res.Playing() {
		t.Error("unready resources must be left alone")
	}
}

func TestMixerAttachRetriesAfterFailure(t *testing.T) {
	out := &fakeOutput{fail: true}
	m := NewMixer(out, zerolog.Nop())

	if got := m.EnsureAttached("/tmp/a.mp3"); got != AttachFailed {
		t.Fatalf("expected failure, got %v", got)
	}
	out.fail = false
	if got := m.EnsureAttached("/tmp/a.mp3"); got != Attached {
		t.Fatalf("expected retry to attach, got %v", got)
	}
	if got := m.EnsureAttached("/tmp/a.mp3"); got != AlreadyAttached {
		t.Fatalf("expected already-attached, got %v", got)
	}
}

func TestCacheRefreshGrabsOnDrift(t *testing.T) {
	cache, _, _, loader, _, clock := testRig(t)
	asset := timeline.Asset{ID: "v", Kind: timeline.KindVideo, Src: "/tmp/v.mp4"}
	cache.Acquire(asset)
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	res, _ := cache.Lookup("/tmp/v.mp4")
	grabsAfterResolve := len(loader.grabs)

	cache.Refresh(context.Background(), "/tmp/v.mp4")
	if len(loader.grabs) != grabsAfterResolve {
		t.Error("fresh frame should not trigger a grab")
	}

	res.Play()
	clock.advance(500 * time.Millisecond)
	cache.Refresh(context.Background(), "/tmp/v.mp4")
	if len(loader.grabs) != grabsAfterResolve+1 {
		t.Errorf("stale frame should grab once, got %d extra", len(loader.grabs)-grabsAfterResolve)
	}
}

func TestCacheFrameAtGrabsExactTime(t *testing.T) {
	cache, _, _, loader, _, _ := testRig(t)
	cache.Acquire(timeline.Asset{ID: "v", Kind: timeline.KindVideo, Src: "/tmp/v.mp4"})
	if err := cache.Resolve(context.Background(), "/tmp/v.mp4"); err != nil {
		t.Fatal(err)
	}
	base := len(loader.grabs)

	if _, ok := cache.FrameAt("/tmp/v.mp4", 2.5); !ok {
		t.Fatal("expected a frame at 2.5")
	}
	if len(loader.grabs) != base+1 || loader.grabs[base] != 2.5 {
		t.Fatalf("expected one grab at 2.5, got %v", loader.grabs[base:])
	}

	// within the staleness window of the frame just grabbed
	if _, ok := cache.FrameAt("/tmp/v.mp4", 2.55); !ok {
		t.Fatal("expected the cached frame")
	}
	if len(loader.grabs) != base+1 {
		t.Errorf("a near frame must not decode again, got %v", loader.grabs[base:])
	}
}

func TestCacheFrameAtFallsBackForImages(t *testing.T) {
	loader := &fakeLoader{frames: map[string]image.Image{
		"/tmp/p.png": image.NewRGBA(image.Rect(0, 0, 10, 10)),
	}}
	cache := NewCache(loader, zerolog.Nop())
	cache.Acquire(timeline.Asset{ID: "i", Kind: timeline.KindImage, Src: "/tmp/p.png"})
	if err := cache.Resolve(context.Background(), "/tmp/p.png"); err != nil {
		t.Fatal(err)
	}

	if _, ok := cache.FrameAt("/tmp/p.png", 3); !ok {
		t.Error("images serve their static frame at any time")
	}
	if len(loader.grabs) != 0 {
		t.Errorf("images must never grab, got %v", loader.grabs)
	}
}

func TestCacheResolveImage(t *testing.T) {
	loader := &fakeLoader{frames: map[string]image.Image{
		"/tmp/p.png": image.NewRGBA(image.Rect(0, 0, 100, 50)),
	}}
	cache := NewCache(loader, zerolog.Nop())
	cache.Acquire(timeline.Asset{ID: "i", Kind: timeline.KindImage, Src: "/tmp/p.png"})

	if err := cache.Resolve(context.Background(), "/tmp/p.png"); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Frame("/tmp/p.png"); !ok {
		t.Error("resolved image should expose a frame")
	}
	w, h, ok := cache.Dimensions("/tmp/p.png")
	if !ok || w != 100 || h != 50 {
		t.Errorf("expected 100x50, got %dx%d ok=%v", w, h, ok)
	}
}

func TestCacheResolveFailureMarksResource(t *testing.T) {
	cache := NewCache(&fakeLoader{}, zerolog.Nop())
	cache.Acquire(timeline.Asset{ID: "x", Kind: timeline.KindImage, Src: "/tmp/missing.png"})

	if err := cache.Resolve(context.Background(), "/tmp/missing.png"); err == nil {
		t.Fatal("expected a decode error")
	}
	res, _ := cache.Lookup("/tmp/missing.png")
	if !res.Failed() {
		t.Error("failed decode should mark the resource")
	}
	if _, ok := cache.Frame("/tmp/missing.png"); ok {
		t.Error("failed resource must not expose a frame")
	}
}
