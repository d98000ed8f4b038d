package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// ErrNotFound is returned when a project id has no row
var ErrNotFound = errors.New("project not found")

// projectRow persists one project: listing metadata as columns so the
// dashboard never unmarshals full states, the editing state as a JSON
// blob.
type projectRow struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	AspectRatio  string
	LastModified time.Time
	Thumbnail    string
	Deleted      bool
	State        []byte
}

func (projectRow) TableName() string { return "projects" }

// profileRow and settingsRow are single-row tables
type profileRow struct {
	ID      uint `gorm:"primaryKey"`
	Name    string
	Surname string
	Avatar  string
}

func (profileRow) TableName() string { return "profile" }

type settingsRow struct {
	ID       uint `gorm:"primaryKey"`
	Language string
	Theme    string
}

func (settingsRow) TableName() string { return "settings" }

// Store is the sqlite-backed project library
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open opens (or creates) the library database and migrates its schema
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	if err := db.AutoMigrate(&projectRow{}, &profileRow{}, &settingsRow{}); err != nil {
		return nil, fmt.Errorf("migrate library: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// SaveProject upserts a project snapshot
func (s *Store) SaveProject(p *timeline.Project) error {
	state, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.Meta.ID, err)
	}
	row := projectRow{
		ID:           p.Meta.ID,
		Name:         p.Meta.Name,
		AspectRatio:  p.Meta.AspectRatio,
		LastModified: p.Meta.LastModified,
		Thumbnail:    p.Meta.Thumbnail,
		Deleted:      p.Meta.Deleted,
		State:        state,
	}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("save project %s: %w", p.Meta.ID, err)
	}
	s.logger.Debug().Str("project", p.Meta.ID).Msg("project saved")
	return nil
}

// LoadProject reads a full project state back
func (s *Store) LoadProject(id string) (*timeline.Project, error) {
	var row projectRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	var p timeline.Project
	if err := json.Unmarshal(row.State, &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	// listing columns win over whatever the blob carried
	p.Meta.Deleted = row.Deleted
	return &p, nil
}

// ListProjects returns dashboard metadata, most recently modified first
func (s *Store) ListProjects() ([]timeline.Metadata, error) {
	return s.listWhere("deleted = ?", false)
}

// ListTrash returns soft-deleted projects, most recently modified first
func (s *Store) ListTrash() ([]timeline.Metadata, error) {
	return s.listWhere("deleted = ?", true)
}

func (s *Store) listWhere(query string, arg any) ([]timeline.Metadata, error) {
	var rows []projectRow
	if err := s.db.Select("id", "name", "aspect_ratio", "last_modified", "thumbnail", "deleted").
		Where(query, arg).
		Order("last_modified desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]timeline.Metadata, 0, len(rows))
	for _, r := range rows {
		out = append(out, timeline.Metadata{
			ID:           r.ID,
			Name:         r.Name,
			AspectRatio:  r.AspectRatio,
			LastModified: r.LastModified,
			Thumbnail:    r.Thumbnail,
			Deleted:      r.Deleted,
		})
	}
	return out, nil
}

// SoftDelete moves a project to the trash
func (s *Store) SoftDelete(id string) error {
	return s.setDeleted(id, true)
}

// Restore moves a project out of the trash
func (s *Store) Restore(id string) error {
	return s.setDeleted(id, false)
}

func (s *Store) setDeleted(id string, deleted bool) error {
	res := s.db.Model(&projectRow{}).Where("id = ?", id).Update("deleted", deleted)
	if res.Error != nil {
		return fmt.Errorf("update project %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes a project row permanently
func (s *Store) HardDelete(id string) error {
	res := s.db.Delete(&projectRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete project %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EmptyTrash removes every soft-deleted project permanently
func (s *Store) EmptyTrash() error {
	if err := s.db.Delete(&projectRow{}, "deleted = ?", true).Error; err != nil {
		return fmt.Errorf("empty trash: %w", err)
	}
	return nil
}

// Profile returns the stored user profile, or an empty one
func (s *Store) Profile() (timeline.UserProfile, error) {
	var row profileRow
	err := s.db.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return timeline.UserProfile{}, nil
	}
	if err != nil {
		return timeline.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return timeline.UserProfile{Name: row.Name, Surname: row.Surname, Avatar: row.Avatar}, nil
}

// SaveProfile replaces the stored user profile
func (s *Store) SaveProfile(p timeline.UserProfile) error {
	row := profileRow{ID: 1, Name: p.Name, Surname: p.Surname, Avatar: p.Avatar}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Settings returns the stored settings, defaulting language and theme
func (s *Store) Settings() (timeline.Settings, error) {
	var row settingsRow
	err := s.db.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return timeline.Settings{Language: "en", Theme: "dark"}, nil
	}
	if err != nil {
		return timeline.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return timeline.Settings{Language: row.Language, Theme: row.Theme}, nil
}

// SaveSettings replaces the stored settings
func (s *Store) SaveSettings(v timeline.Settings) error {
	row := settingsRow{ID: 1, Language: v.Language, Theme: v.Theme}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
