package importer

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

type fakeProber struct {
	info   ffmpeg.MediaInfo
	thumbs []string
}

func (p *fakeProber) Probe(_ context.Context, _ string) (*ffmpeg.MediaInfo, error) {
	info := p.info
	return &info, nil
}

func (p *fakeProber) WriteThumbnail(_ context.Context, _, dst string, _ int) error {
	p.thumbs = append(p.thumbs, dst)
	return os.WriteFile(dst, []byte("jpg"), 0o644)
}

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
		img.Pix[i+3] = 255
	}
	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestKindForFile(t *testing.T) {
	cases := []struct {
		path string
		kind timeline.AssetKind
		ok   bool
	}{
		{"clip.MP4", timeline.KindVideo, true},
		{"/media/song.mp3", timeline.KindAudio, true},
		{"pic.jpeg", timeline.KindImage, true},
		{"notes.txt", "", false},
		{"noext", "", false},
	}
	for _, tc := range cases {
		kind, ok := KindForFile(tc.path)
		if ok != tc.ok || kind != tc.kind {
			t.Errorf("KindForFile(%q) = %v, %v; expected %v, %v", tc.path, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestImportImage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir)
	im := New(&fakeProber{}, filepath.Join(dir, "thumbs"), zerolog.Nop())

	asset, err := im.Import(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if asset.Kind != timeline.KindImage || asset.Duration != timeline.PlaceholderDuration {
		t.Errorf("unexpected asset: %+v", asset)
	}
	if asset.Name != "photo.png" {
		t.Errorf("name should be the base name, got %q", asset.Name)
	}

	f, err := os.Open(asset.Thumbnail)
	if err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}
	defer f.Close()
	thumb, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if thumb.Bounds().Dx() != thumbnailWidth {
		t.Errorf("thumbnail width should be %d, got %d", thumbnailWidth, thumb.Bounds().Dx())
	}
	if r, _, _, a := thumb.At(10, 10).RGBA(); r == 0 || a == 0 {
		t.Error("thumbnail should carry pixel data")
	}
}

func TestImportVideoIsProvisional(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.mp4")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	im := New(&fakeProber{}, dir, zerolog.Nop())

	asset, err := im.Import(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if asset.Kind != timeline.KindVideo || asset.Duration != timeline.ProvisionalDuration {
		t.Errorf("video should import with the provisional duration, got %+v", asset)
	}
	if asset.Thumbnail != "" {
		t.Error("video thumbnails come from ResolveMetadata, not Import")
	}
}

func TestImportRejectsUnknownAndMissing(t *testing.T) {
	im := New(&fakeProber{}, t.TempDir(), zerolog.Nop())
	if _, err := im.Import(context.Background(), "/tmp/readme.txt"); err == nil {
		t.Error("unknown extensions should be rejected")
	}
	if _, err := im.Import(context.Background(), "/tmp/definitely-missing.mp4"); err == nil {
		t.Error("missing files should be rejected")
	}
}

func TestResolveMetadataVideo(t *testing.T) {
	dir := t.TempDir()
	prober := &fakeProber{info: ffmpeg.MediaInfo{Duration: 42.5, Width: 1920, Height: 1080, HasVideo: true}}
	im := New(prober, dir, zerolog.Nop())

	asset := timeline.Asset{ID: "vid-1", Kind: timeline.KindVideo, Src: "/tmp/take.mp4", Duration: timeline.ProvisionalDuration}
	dur, thumb, err := im.ResolveMetadata(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if dur != 42.5 {
		t.Errorf("expected probed duration 42.5, got %f", dur)
	}
	if thumb == "" || len(prober.thumbs) != 1 {
		t.Errorf("video resolution should produce a thumbnail, got %q", thumb)
	}
}

func TestResolveMetadataImageIsPassthrough(t *testing.T) {
	im := New(&fakeProber{}, t.TempDir(), zerolog.Nop())
	asset := timeline.Asset{ID: "img-1", Kind: timeline.KindImage, Duration: 5, Thumbnail: "/tmp/t.png"}

	dur, thumb, err := im.ResolveMetadata(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if dur != 5 || thumb != "/tmp/t.png" {
		t.Errorf("images should pass through unchanged, got %f %q", dur, thumb)
	}
}
