package gui

import (
	"context"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/export"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/util"
)

var importExtensions = []string{
	".mp4", ".mov", ".mkv", ".webm", ".avi",
	".mp3", ".wav", ".ogg", ".m4a", ".flac",
	".png", ".jpg", ".jpeg", ".gif", ".bmp",
}

type editorUI struct {
	win     fyne.Window
	preview *previewArea
	strip   *timelineStrip
	timeLbl *widget.Label
	playBtn *widget.Button
}

// Run opens the editor window and blocks until it closes
func (e *Editor) Run() {
	a := app.NewWithID("kawaiicut")
	w := a.NewWindow("KawaiiCut - " + e.state.Current().Meta.Name)
	w.Resize(fyne.NewSize(1200, 760))
	e.ui.win = w

	e.ui.preview = newPreviewArea(e.cfg.Editor.PreviewWidth, e.cfg.Editor.PreviewHeight, e.canvasCtl, func() {
		e.state.Apply(func(p *timeline.Project) *timeline.Project {
			return p.SelectClip("")
		})
	})
	e.ui.strip = newTimelineStrip(e.state, e.timelineCtl)
	e.ui.timeLbl = widget.NewLabel("0:00 / 0:00")
	e.ui.playBtn = widget.NewButton("▶", e.clock.Toggle)

	importBtn := widget.NewButton(e.tr.T("importMedia"), e.showImportDialog)
	textBtn := widget.NewButton(e.tr.T("text"), e.showTextDialog)
	effectSel := e.buildEffectSelect()
	exportBtn := widget.NewButton(e.tr.T("export"), e.showExportDialog)

	skipBack := widget.NewButton("«", func() { e.clock.Skip(-5) })
	skipFwd := widget.NewButton("»", func() { e.clock.Skip(5) })
	zoomOut := widget.NewButton("-", func() { e.adjustZoom(1 / 1.25) })
	zoomIn := widget.NewButton("+", func() { e.adjustZoom(1.25) })
	addTrackBtn := widget.NewButton("Add Track", func() {
		e.state.Apply(func(p *timeline.Project) *timeline.Project {
			return p.AddTrack()
		})
	})

	toolbar := container.NewHBox(importBtn, textBtn, effectSel, layout.NewSpacer(), exportBtn)
	transport := container.NewHBox(skipBack, e.ui.playBtn, skipFwd, e.ui.timeLbl,
		layout.NewSpacer(), zoomOut, zoomIn, addTrackBtn)
	bottom := container.NewVBox(transport, container.NewHScroll(e.ui.strip))

	w.SetContent(container.NewBorder(toolbar, bottom, nil, nil, e.ui.preview))

	w.Canvas().SetOnTypedKey(e.typedKey)
	w.SetOnClosed(func() {
		e.clock.Pause()
		e.auto.Flush()
	})

	e.ensureResources(e.state.Current())
	e.clock.Resync()
	w.ShowAndRun()
}

// present renders the frame at t and pushes it plus the transport chrome
// onto the UI thread. Runs on whatever goroutine mutated the state.
func (e *Editor) present(p *timeline.Project, t float64) {
	frame := e.comp.RenderAt(p, t, e.cfg.Editor.PreviewWidth, e.cfg.Editor.PreviewHeight,
		compositor.RenderOptions{ShowSelection: true})

	// video frames drift behind the transport; grab fresh ones off-path
	for _, clip := range p.ActiveClips(t) {
		if asset, ok := p.Asset(clip.AssetID); ok && asset.Kind == timeline.KindVideo {
			src := asset.Src
			go e.cache.Refresh(context.Background(), src)
		}
	}

	playing := p.Playing
	clock := util.FormatClock(t) + " / " + util.FormatClock(p.Duration)
	fyne.Do(func() {
		if e.ui.preview == nil {
			return
		}
		e.ui.preview.update(frame)
		e.ui.strip.Refresh()
		e.ui.timeLbl.SetText(clock)
		if playing {
			e.ui.playBtn.SetText("⏸")
		} else {
			e.ui.playBtn.SetText("▶")
		}
	})
}

func (e *Editor) adjustZoom(factor float64) {
	e.state.Apply(func(p *timeline.Project) *timeline.Project {
		zoom := p.Zoom * factor
		if zoom < 5 {
			zoom = 5
		} else if zoom > 240 {
			zoom = 240
		}
		return p.SetZoom(zoom)
	})
}

func (e *Editor) typedKey(ev *fyne.KeyEvent) {
	// text entry owns the keyboard while focused
	if _, ok := e.ui.win.Canvas().Focused().(*widget.Entry); ok {
		return
	}
	switch ev.Name {
	case fyne.KeySpace:
		e.clock.Toggle()
	case fyne.KeyDelete, fyne.KeyBackspace:
		e.state.Apply(func(p *timeline.Project) *timeline.Project {
			if p.SelectedClipID == "" {
				return p
			}
			return p.DeleteClip(p.SelectedClipID)
		})
	}
}

func effectKey(et timeline.EffectType) string {
	return "eff_" + strings.ToLower(strings.ReplaceAll(string(et), "_", ""))
}

func (e *Editor) buildEffectSelect() *widget.Select {
	labels := make([]string, len(timeline.EffectTypes))
	byLabel := make(map[string]timeline.EffectType, len(timeline.EffectTypes))
	for i, et := range timeline.EffectTypes {
		labels[i] = e.tr.T(effectKey(et))
		byLabel[labels[i]] = et
	}

	var sel *widget.Select
	sel = widget.NewSelect(labels, func(label string) {
		et, ok := byLabel[label]
		if !ok {
			return
		}
		e.state.Apply(func(p *timeline.Project) *timeline.Project {
			trackID := overlayTrack(p)
			if trackID == "" {
				return p
			}
			return p.AddEffectClip(et, trackID, p.CurrentTime)
		})
		sel.ClearSelected()
	})
	sel.PlaceHolder = e.tr.T("effectsTitle")
	return sel
}

// overlayTrack is the topmost video lane, where text and effects land
func overlayTrack(p *timeline.Project) string {
	for _, t := range p.Tracks {
		if t.Kind == timeline.TrackVideo {
			return t.ID
		}
	}
	return ""
}

// mediaTrack picks the lane an import lands on: the audio lane for audio,
// the bottom-most video lane for everything else
func mediaTrack(p *timeline.Project, kind timeline.AssetKind) string {
	want := timeline.TrackVideo
	if kind == timeline.KindAudio {
		want = timeline.TrackAudio
	}
	id := ""
	for _, t := range p.Tracks {
		if t.Kind == want {
			id = t.ID
		}
	}
	return id
}

func (e *Editor) showImportDialog() {
	fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
		if err != nil || ur == nil {
			return
		}
		path := ur.URI().Path()
		ur.Close()
		go e.importFile(path)
	}, e.ui.win)
	fd.SetFilter(storage.NewExtensionFileFilter(importExtensions))
	fd.Show()
}

func (e *Editor) importFile(path string) {
	ctx := context.Background()
	asset, err := e.imp.Import(ctx, path)
	if err != nil {
		e.logger.Error().Err(err).Str("path", path).Msg("import failed")
		fyne.Do(func() { dialog.ShowError(err, e.ui.win) })
		return
	}

	e.state.Apply(func(p *timeline.Project) *timeline.Project {
		out := p.AddAsset(asset)
		if trackID := mediaTrack(out, asset.Kind); trackID != "" {
			out = out.AddClip(asset.ID, trackID, out.CurrentTime)
		}
		return out
	})

	e.cache.Acquire(asset)
	if err := e.cache.Resolve(ctx, asset.Src); err != nil {
		e.logger.Warn().Err(err).Str("src", asset.Src).Msg("resource resolve failed")
	}

	if asset.Kind.HasAudio() {
		duration, _, err := e.imp.ResolveMetadata(ctx, asset)
		if err != nil {
			e.logger.Warn().Err(err).Str("asset", asset.ID).Msg("metadata resolve failed")
			return
		}
		e.state.Apply(func(p *timeline.Project) *timeline.Project {
			return p.ResolveAssetDuration(asset.ID, duration)
		})
	}
}

func (e *Editor) showTextDialog() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder(e.tr.T("text"))
	items := []*widget.FormItem{widget.NewFormItem(e.tr.T("text"), entry)}

	dialog.ShowForm(e.tr.T("text"), e.tr.T("create"), e.tr.T("cancel"), items, func(ok bool) {
		if !ok || entry.Text == "" {
			return
		}
		td := timeline.TextData{
			Content:    entry.Text,
			FontFamily: "Arial",
			FontSize:   40,
			Color:      "#ffffff",
			Align:      "center",
		}
		e.state.Apply(func(p *timeline.Project) *timeline.Project {
			trackID := overlayTrack(p)
			if trackID == "" {
				return p
			}
			return p.AddTextClip(td, trackID, p.CurrentTime)
		})
	}, e.ui.win)
}

func (e *Editor) showExportDialog() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		path := uc.URI().Path()
		uc.Close()
		go e.runExport(path)
	}, e.ui.win)
	fd.SetFileName(e.state.Current().Meta.Name + ".mp4")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".mp4"}))
	fd.Show()
}

func (e *Editor) runExport(path string) {
	e.clock.Pause()
	e.auto.Suspend()
	defer e.auto.Resume()

	bar := widget.NewProgressBar()
	var pd dialog.Dialog
	fyne.DoAndWait(func() {
		body := container.NewVBox(widget.NewLabel(e.tr.T("renderDesc")), bar)
		pd = dialog.NewCustomWithoutButtons(e.tr.T("rendering"), body, e.ui.win)
		pd.Show()
	})

	opts := export.Options{
		Output: util.UniquePath(path),
		Width:  e.cfg.Export.Width,
		Height: e.cfg.Export.Height,
		FPS:    e.cfg.Export.FPS,
		OnProgress: func(done, total int) {
			v := float64(done) / float64(total)
			fyne.Do(func() { bar.SetValue(v) })
		},
	}
	err := e.exporter.Export(context.Background(), e.state.Current(), opts)

	fyne.Do(func() {
		pd.Hide()
		if err != nil {
			dialog.ShowError(err, e.ui.win)
			return
		}
		dialog.ShowInformation(e.tr.T("success"), e.tr.T("successDesc"), e.ui.win)
	})
}
