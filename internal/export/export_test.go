package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

type fakeSession struct {
	output   string
	frames   int
	payload  []byte
	writeErr error
}

func (s *fakeSession) WriteFrame(*image.RGBA) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.frames++
	return nil
}

func (s *fakeSession) Frames() int { return s.frames }

func (s *fakeSession) Close(time.Duration) error {
	return os.WriteFile(s.output, s.payload, 0o644)
}

type emptyFrames struct{}

func (emptyFrames) Frame(string) (image.Image, bool)            { return nil, false }
func (emptyFrames) FrameAt(string, float64) (image.Image, bool) { return nil, false }
func (emptyFrames) Dimensions(string) (int, int, bool)          { return 0, 0, false }

// timedFrames brightens with the requested source time; Frame always
// returns the first still, the way a paused preview cache would
type timedFrames struct{}

func (f timedFrames) Frame(src string) (image.Image, bool) {
	return f.FrameAt(src, 0)
}

func (timedFrames) FrameAt(_ string, at float64) (image.Image, bool) {
	shade := uint8(at * 60)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = shade
		img.Pix[i+1] = shade
		img.Pix[i+2] = shade
		img.Pix[i+3] = 255
	}
	return img, true
}

func (timedFrames) Dimensions(string) (int, int, bool) { return 4, 4, true }

func exportProject() *timeline.Project {
	p := timeline.NewProject("export", "16:9")
	p.Assets = []timeline.Asset{
		{ID: "v", Kind: timeline.KindVideo, Src: "/tmp/v.mp4", Duration: 4},
		{ID: "a", Kind: timeline.KindAudio, Src: "/tmp/a.mp3", Duration: 9},
	}
	p.Clips = []timeline.Clip{
		{ID: "c1", AssetID: "v", TrackID: p.Tracks[1].ID, StartTime: 0, Duration: 4, Scale: 1, Opacity: 1, Speed: 1},
		{ID: "c2", AssetID: "a", TrackID: p.Tracks[2].ID, StartTime: 1, Duration: 2, Offset: 3, Scale: 1, Opacity: 1, Speed: 1},
	}
	return p.Recalculate()
}

func testExporter(session *fakeSession, captured *ffmpeg.EncodeOptions) *Exporter {
	comp := compositor.New(emptyFrames{}, zerolog.Nop())
	encode := func(_ context.Context, opts ffmpeg.EncodeOptions) (Session, error) {
		if captured != nil {
			*captured = opts
		}
		session.output = opts.Output
		return session, nil
	}
	return New(comp, encode, zerolog.Nop())
}

func TestExportRendersEveryFrame(t *testing.T) {
	session := &fakeSession{payload: []byte("video")}
	var captured ffmpeg.EncodeOptions
	ex := testExporter(session, &captured)

	p := exportProject() // duration 4
	var lastDone, lastTotal int
	err := ex.Export(context.Background(), p, Options{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 36, FPS: 10,
		OnProgress: func(done, total int) { lastDone, lastTotal = done, total },
	})
	if err != nil {
		t.Fatal(err)
	}
	if session.frames != 40 {
		t.Errorf("4s at 10fps should write 40 frames, got %d", session.frames)
	}
	if lastDone != 40 || lastTotal != 40 {
		t.Errorf("progress should end at 40/40, got %d/%d", lastDone, lastTotal)
	}
	if !ex.Succeeded() {
		t.Error("successful export should raise the success flag")
	}
}

type recordingSession struct {
	fakeSession
	pix [][]byte
}

func (s *recordingSession) WriteFrame(f *image.RGBA) error {
	cp := make([]byte, len(f.Pix))
	copy(cp, f.Pix)
	s.pix = append(s.pix, cp)
	return s.fakeSession.WriteFrame(f)
}

func TestExportVideoLayersTrackSourceTime(t *testing.T) {
	comp := compositor.New(timedFrames{}, zerolog.Nop())
	session := &recordingSession{fakeSession: fakeSession{payload: []byte("video")}}
	encode := func(_ context.Context, opts ffmpeg.EncodeOptions) (Session, error) {
		session.output = opts.Output
		return session, nil
	}
	ex := New(comp, encode, zerolog.Nop())

	p := exportProject() // 4s video clip from t=0, speed 1
	err := ex.Export(context.Background(), p, Options{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 36, FPS: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(session.pix) != 8 {
		t.Fatalf("4s at 2fps should capture 8 frames, got %d", len(session.pix))
	}
	// the source advances during the clip, so the first and last output
	// frames cannot be the same still
	if bytes.Equal(session.pix[0], session.pix[7]) {
		t.Error("exported frames of an advancing video source must differ over time")
	}
}

func TestExportRoutesAudiblePlacements(t *testing.T) {
	session := &fakeSession{payload: []byte("video")}
	var captured ffmpeg.EncodeOptions
	ex := testExporter(session, &captured)

	p := exportProject()
	err := ex.Export(context.Background(), p, Options{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 36, FPS: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(captured.Audio) != 2 {
		t.Fatalf("expected 2 audio placements, got %d", len(captured.Audio))
	}
	a := captured.Audio[1]
	if a.Path != "/tmp/a.mp3" || a.StartSec != 1 || a.Offset != 3 || a.Duration != 2 {
		t.Errorf("unexpected placement: %+v", a)
	}
}

func TestExportSkipsMutedTracks(t *testing.T) {
	session := &fakeSession{payload: []byte("video")}
	var captured ffmpeg.EncodeOptions
	ex := testExporter(session, &captured)

	p := exportProject()
	p.Tracks[2].Muted = true
	err := ex.Export(context.Background(), p, Options{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 36, FPS: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(captured.Audio) != 1 || captured.Audio[0].Path != "/tmp/v.mp4" {
		t.Errorf("muted track audio must not be routed, got %+v", captured.Audio)
	}
}

func TestExportEmptyFileIsError(t *testing.T) {
	session := &fakeSession{payload: nil} // zero-byte output
	ex := testExporter(session, nil)

	out := filepath.Join(t.TempDir(), "out.mp4")
	err := ex.Export(context.Background(), exportProject(), Options{
		Output: out, Width: 64, Height: 36, FPS: 10,
	})
	if err == nil {
		t.Fatal("zero-byte output must fail")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("empty output file should be removed")
	}
	if ex.Succeeded() {
		t.Error("failed export must not raise the success flag")
	}
}

func TestExportWriteFailurePropagates(t *testing.T) {
	session := &fakeSession{payload: []byte("video"), writeErr: errors.New("pipe broke")}
	ex := testExporter(session, nil)

	err := ex.Export(context.Background(), exportProject(), Options{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 36, FPS: 10,
	})
	if err == nil {
		t.Fatal("write failures must propagate")
	}
}

func TestExportRejectsConcurrentRuns(t *testing.T) {
	session := &fakeSession{payload: []byte("video")}
	ex := testExporter(session, nil)

	ex.mu.Lock()
	ex.exporting = true
	ex.mu.Unlock()

	err := ex.Export(context.Background(), exportProject(), Options{
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 36, FPS: 10,
	})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestExportEncoderFailureIsRecoverable(t *testing.T) {
	comp := compositor.New(emptyFrames{}, zerolog.Nop())
	encode := func(context.Context, ffmpeg.EncodeOptions) (Session, error) {
		return nil, errors.New("no encoder")
	}
	ex := New(comp, encode, zerolog.Nop())

	err := ex.Export(context.Background(), exportProject(), Options{
		Output: "/tmp/out.mp4", Width: 64, Height: 36, FPS: 10,
	})
	if err == nil {
		t.Fatal("encoder failure must surface as an error")
	}
	if ex.Exporting() {
		t.Error("a failed start must release the busy flag")
	}
}
