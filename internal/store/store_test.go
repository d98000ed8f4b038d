package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := openTestStore(t)

	p := timeline.NewProject("roundtrip", "9:16")
	p = p.AddTextClip(timeline.TextData{Content: "hello", FontSize: 40}, p.Tracks[0].ID, 2)
	if err := s.SaveProject(p); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadProject(p.Meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta.Name != "roundtrip" || got.Meta.AspectRatio != "9:16" {
		t.Errorf("metadata did not survive: %+v", got.Meta)
	}
	if len(got.Clips) != 1 || got.Clips[0].TextData == nil || got.Clips[0].TextData.Content != "hello" {
		t.Errorf("clip state did not survive: %+v", got.Clips)
	}
	if len(got.Tracks) != 3 {
		t.Errorf("expected 3 tracks, got %d", len(got.Tracks))
	}
}

func TestSaveIsUpsert(t *testing.T) {
	s := openTestStore(t)

	p := timeline.NewProject("upsert", "16:9")
	if err := s.SaveProject(p); err != nil {
		t.Fatal(err)
	}
	p = p.AddTrack()
	if err := s.SaveProject(p); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadProject(p.Meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tracks) != 4 {
		t.Errorf("second save should replace the first, got %d tracks", len(got.Tracks))
	}

	list, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("upsert must not duplicate rows, got %d", len(list))
	}
}

func TestLoadUnknownProject(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LoadProject("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersByLastModified(t *testing.T) {
	s := openTestStore(t)

	older := timeline.NewProject("older", "16:9")
	older.Meta.LastModified = time.Now().Add(-time.Hour)
	newer := timeline.NewProject("newer", "16:9")
	newer.Meta.LastModified = time.Now()
	for _, p := range []*timeline.Project{older, newer} {
		if err := s.SaveProject(p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "newer" || list[1].Name != "older" {
		t.Errorf("expected newest first, got %+v", list)
	}
}

func TestTrashFlow(t *testing.T) {
	s := openTestStore(t)

	p := timeline.NewProject("doomed", "16:9")
	if err := s.SaveProject(p); err != nil {
		t.Fatal(err)
	}

	if err := s.SoftDelete(p.Meta.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListProjects()
	trash, _ := s.ListTrash()
	if len(list) != 0 || len(trash) != 1 {
		t.Fatalf("soft delete should move to trash: list=%d trash=%d", len(list), len(trash))
	}

	if err := s.Restore(p.Meta.ID); err != nil {
		t.Fatal(err)
	}
	list, _ = s.ListProjects()
	if len(list) != 1 {
		t.Fatal("restore should bring the project back")
	}

	if err := s.SoftDelete(p.Meta.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.EmptyTrash(); err != nil {
		t.Fatal(err)
	}
	trash, _ = s.ListTrash()
	if len(trash) != 0 {
		t.Error("empty trash should leave nothing behind")
	}
	if _, err := s.LoadProject(p.Meta.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("emptied project should be gone, got %v", err)
	}
}

func TestHardDeleteUnknownProject(t *testing.T) {
	s := openTestStore(t)
	if err := s.HardDelete("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileRoundtrip(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Profile()
	if err != nil || got != (timeline.UserProfile{}) {
		t.Fatalf("fresh store should hold an empty profile, got %+v err=%v", got, err)
	}

	want := timeline.UserProfile{Name: "Mina", Surname: "K", Avatar: "/tmp/ava.png"}
	if err := s.SaveProfile(want); err != nil {
		t.Fatal(err)
	}
	got, err = s.Profile()
	if err != nil || got != want {
		t.Errorf("profile did not survive, got %+v err=%v", got, err)
	}
}

func TestSettingsDefaultsAndRoundtrip(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got.Language != "en" || got.Theme != "dark" {
		t.Errorf("unexpected defaults: %+v", got)
	}

	want := timeline.Settings{Language: "ru", Theme: "neon"}
	if err := s.SaveSettings(want); err != nil {
		t.Fatal(err)
	}
	got, err = s.Settings()
	if err != nil || got != want {
		t.Errorf("settings did not survive, got %+v err=%v", got, err)
	}
}

func TestAutosaveDebounces(t *testing.T) {
	s := openTestStore(t)
	a := NewAutosaver(s, zerolog.Nop())
	a.delay = 20 * time.Millisecond

	p := timeline.NewProject("debounce", "16:9")
	a.Changed(p)
	a.Changed(p.AddTrack())
	a.Changed(p.AddTrack().AddTrack())

	time.Sleep(100 * time.Millisecond)
	got, err := s.LoadProject(p.Meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tracks) != 5 {
		t.Errorf("latest snapshot should win, got %d tracks", len(got.Tracks))
	}
}

func TestAutosaveSuspended(t *testing.T) {
	s := openTestStore(t)
	a := NewAutosaver(s, zerolog.Nop())
	a.delay = 10 * time.Millisecond

	p := timeline.NewProject("quiet", "16:9")
	a.Suspend()
	a.Changed(p)
	time.Sleep(50 * time.Millisecond)
	if _, err := s.LoadProject(p.Meta.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("suspended autosaver must not write, got %v", err)
	}

	a.Resume()
	a.Changed(p)
	a.Flush()
	if _, err := s.LoadProject(p.Meta.ID); err != nil {
		t.Errorf("flush after resume should write, got %v", err)
	}
}
