package gui

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/config"
	"github.com/kikiluvv/kawaiicut/internal/export"
	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
	"github.com/kikiluvv/kawaiicut/internal/i18n"
	"github.com/kikiluvv/kawaiicut/internal/importer"
	"github.com/kikiluvv/kawaiicut/internal/interact"
	"github.com/kikiluvv/kawaiicut/internal/media"
	"github.com/kikiluvv/kawaiicut/internal/player"
	"github.com/kikiluvv/kawaiicut/internal/store"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// Editor owns the full editing session: the project state, the playback
// clock, media resources, the compositor and the window showing them.
type Editor struct {
	cfg    *config.Config
	tr     *i18n.Translator
	logger zerolog.Logger

	library  *store.Store
	auto     *store.Autosaver
	state    *timeline.Store
	cache    *media.Cache
	mixer    *media.Mixer
	comp     *compositor.Compositor
	clock    *player.Clock
	exporter *export.Exporter
	imp      *importer.Importer

	canvasCtl   *interact.CanvasController
	timelineCtl *interact.TimelineController

	ui editorUI
}

// NewEditor wires the engine around a loaded project
func NewEditor(cfg *config.Config, project *timeline.Project, library *store.Store, exec *ffmpeg.Executor, tr *i18n.Translator, logger zerolog.Logger) *Editor {
	e := &Editor{
		cfg:     cfg,
		tr:      tr,
		logger:  logger.With().Str("component", "gui").Logger(),
		library: library,
	}

	e.auto = store.NewAutosaver(library, logger)
	e.state = timeline.NewStore(project, e.stateChanged)
	e.cache = media.NewCache(media.NewFFmpegLoader(exec), logger)
	e.mixer = media.NewMixer(media.NopOutput{}, logger)
	e.comp = compositor.New(e.cache, logger)

	sync := media.NewSynchronizer(e.cache, e.mixer, logger)
	e.clock = player.NewClock(e.state, &player.TickerScheduler{}, sync, e.present, logger)

	e.exporter = export.New(e.comp, export.NewEncoder(exec), logger)
	e.imp = importer.New(exec, cfg.ThumbDir, logger)

	e.canvasCtl = interact.NewCanvas(e.state, e.cache, logger)
	e.timelineCtl = interact.NewTimeline(e.state, e.clock.Seek, logger)
	return e
}

func (e *Editor) stateChanged(p *timeline.Project) {
	e.auto.Changed(p)
	// while playing the tick loop presents frames on its own
	if !p.Playing {
		e.present(p, p.CurrentTime)
	}
}

// ensureResources acquires a resource per asset and resolves the missing
// ones off the UI path
func (e *Editor) ensureResources(p *timeline.Project) {
	for _, asset := range p.Assets {
		r := e.cache.Acquire(asset)
		if r.Ready() || r.Failed() {
			continue
		}
		src := asset.Src
		go func() {
			if err := e.cache.Resolve(context.Background(), src); err != nil {
				e.logger.Warn().Err(err).Str("src", src).Msg("resource resolve failed")
			}
		}()
	}
}
