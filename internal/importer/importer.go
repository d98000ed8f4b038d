package importer

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/util"
)

// thumbnailWidth is the dashboard/library preview width in pixels
const thumbnailWidth = 160

var kindByExt = map[string]timeline.AssetKind{
	".mp4":  timeline.KindVideo,
	".mov":  timeline.KindVideo,
	".mkv":  timeline.KindVideo,
	".webm": timeline.KindVideo,
	".avi":  timeline.KindVideo,
	".mp3":  timeline.KindAudio,
	".wav":  timeline.KindAudio,
	".ogg":  timeline.KindAudio,
	".m4a":  timeline.KindAudio,
	".flac": timeline.KindAudio,
	".png":  timeline.KindImage,
	".jpg":  timeline.KindImage,
	".jpeg": timeline.KindImage,
	".gif":  timeline.KindImage,
	".bmp":  timeline.KindImage,
	".webp": timeline.KindImage,
}

// KindForFile maps a file to an asset kind by extension
func KindForFile(path string) (timeline.AssetKind, bool) {
	kind, ok := kindByExt[util.GetExtension(path)]
	return kind, ok
}

// Prober resolves real media metadata after the provisional import
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
	WriteThumbnail(ctx context.Context, src, dst string, width int) error
}

// Importer turns files into library assets. Audio and video get a
// provisional duration so the clip lands on the timeline immediately;
// ResolveMetadata corrects it once probing finishes.
type Importer struct {
	prober   Prober
	thumbDir string
	logger   zerolog.Logger
}

func New(prober Prober, thumbDir string, logger zerolog.Logger) *Importer {
	return &Importer{
		prober:   prober,
		thumbDir: thumbDir,
		logger:   logger.With().Str("component", "importer").Logger(),
	}
}

// Import creates an asset for a media file
func (im *Importer) Import(ctx context.Context, path string) (timeline.Asset, error) {
	kind, ok := KindForFile(path)
	if !ok {
		return timeline.Asset{}, fmt.Errorf("unsupported file type: %s", path)
	}
	if !util.FileExists(path) {
		return timeline.Asset{}, fmt.Errorf("file not found: %s", path)
	}

	asset := timeline.Asset{
		ID:   uuid.NewString(),
		Name: filepath.Base(path),
		Kind: kind,
		Src:  path,
	}

	switch kind {
	case timeline.KindImage:
		asset.Duration = timeline.PlaceholderDuration
		thumb, err := im.imageThumbnail(path, asset.ID)
		if err != nil {
			return timeline.Asset{}, fmt.Errorf("import %s: %w", path, err)
		}
		asset.Thumbnail = thumb

	case timeline.KindVideo, timeline.KindAudio:
		asset.Duration = timeline.ProvisionalDuration
	}

	im.logger.Info().Str("asset", asset.ID).Str("kind", string(kind)).Str("src", path).Msg("asset imported")
	return asset, nil
}

// ResolveMetadata probes the source and returns the real duration plus a
// thumbnail path for video assets. Meant to run off the UI path after
// Import; the caller feeds the result to ResolveAssetDuration.
func (im *Importer) ResolveMetadata(ctx context.Context, asset timeline.Asset) (float64, string, error) {
	if !asset.Kind.HasAudio() {
		return asset.Duration, asset.Thumbnail, nil
	}

	info, err := im.prober.Probe(ctx, asset.Src)
	if err != nil {
		return 0, "", fmt.Errorf("resolve metadata for %s: %w", asset.Src, err)
	}

	thumb := asset.Thumbnail
	if asset.Kind == timeline.KindVideo {
		if err := util.EnsureDir(im.thumbDir); err != nil {
			return 0, "", fmt.Errorf("thumbnail dir: %w", err)
		}
		thumb = filepath.Join(im.thumbDir, asset.ID+".jpg")
		if err := im.prober.WriteThumbnail(ctx, asset.Src, thumb, thumbnailWidth); err != nil {
			// a missing thumbnail is cosmetic, the duration still counts
			im.logger.Warn().Err(err).Str("asset", asset.ID).Msg("video thumbnail failed")
			util.CleanupFiles(thumb)
			thumb = ""
		}
	}
	return info.Duration, thumb, nil
}

func (im *Importer) imageThumbnail(path, assetID string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	small := resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)

	if err := util.EnsureDir(im.thumbDir); err != nil {
		return "", err
	}
	dst := filepath.Join(im.thumbDir, assetID+".png")
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := png.Encode(out, small); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return dst, nil
}
