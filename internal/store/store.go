// Package store keeps recording and screenshot metadata in SQLite. The
// capture core never calls it; the API and CLI record outcomes here after
// the session manager returns.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	StatusRecording = "recording"
	StatusCompleted = "completed"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

type Recording struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Name          string    `json:"name"`
	Status        string    `gorm:"index" json:"status"`
	SessionID     string    `json:"session_id,omitempty"`
	RecordingPath string    `json:"recording_path,omitempty"`
	WebcamPath    string    `json:"webcam_path,omitempty"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	Target        string    `json:"target,omitempty"`
	DurationMs    *int64    `json:"duration_ms,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type NewRecording struct {
	Name   string
	Target string
}

// UpdateRecording changes only the fields that are set.
type UpdateRecording struct {
	Name          *string
	Status        *string
	SessionID     *string
	RecordingPath *string
	WebcamPath    *string
	ThumbnailPath *string
	DurationMs    *int64
}

type Screenshot struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Title         string    `json:"title"`
	ImagePath     string    `json:"image_path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	Target        string    `json:"target,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type NewScreenshot struct {
	Title         string
	ImagePath     string
	ThumbnailPath string
	Target        string
}

type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	log := logger.WithComponent("store")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Recording{}, &Screenshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Debug().Str("path", path).Msg("Database opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateRecording(n NewRecording) (Recording, error) {
	rec := Recording{
		ID:     uuid.NewString(),
		Name:   n.Name,
		Status: StatusRecording,
		Target: n.Target,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return Recording{}, fmt.Errorf("failed to create recording: %w", err)
	}
	return s.GetRecording(rec.ID)
}

func (s *Store) GetRecording(id string) (Recording, error) {
	var rec Recording
	err := s.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recording{}, fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("failed to load recording: %w", err)
	}
	return rec, nil
}

// ListRecordings returns all recordings, newest first.
func (s *Store) ListRecordings() ([]Recording, error) {
	recs := []Recording{}
	if err := s.db.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recs, nil
}

func (s *Store) UpdateRecording(id string, u UpdateRecording) (Recording, error) {
	if _, err := s.GetRecording(id); err != nil {
		return Recording{}, err
	}

	changes := map[string]any{"updated_at": time.Now()}
	set := func(column string, v *string) {
		if v != nil {
			changes[column] = *v
		}
	}
	set("name", u.Name)
	set("status", u.Status)
	set("session_id", u.SessionID)
	set("recording_path", u.RecordingPath)
	set("webcam_path", u.WebcamPath)
	set("thumbnail_path", u.ThumbnailPath)
	if u.DurationMs != nil {
		changes["duration_ms"] = *u.DurationMs
	}

	if err := s.db.Model(&Recording{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return Recording{}, fmt.Errorf("failed to update recording: %w", err)
	}
	return s.GetRecording(id)
}

func (s *Store) DeleteRecording(id string) error {
	res := s.db.Delete(&Recording{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete recording: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	return nil
}

// FindRecordingBySession returns the recording created for a session id.
func (s *Store) FindRecordingBySession(sessionID string) (Recording, error) {
	var rec Recording
	err := s.db.First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recording{}, fmt.Errorf("recording for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("failed to load recording: %w", err)
	}
	return rec, nil
}

func (s *Store) CreateScreenshot(n NewScreenshot) (Screenshot, error) {
	shot := Screenshot{
		ID:            uuid.NewString(),
		Title:         n.Title,
		ImagePath:     n.ImagePath,
		ThumbnailPath: n.ThumbnailPath,
		Target:        n.Target,
	}
	if err := s.db.Create(&shot).Error; err != nil {
		return Screenshot{}, fmt.Errorf("failed to create screenshot: %w", err)
	}
	return shot, nil
}

func (s *Store) ListScreenshots() ([]Screenshot, error) {
	shots := []Screenshot{}
	if err := s.db.Order("created_at DESC").Find(&shots).Error; err != nil {
		return nil, fmt.Errorf("failed to list screenshots: %w", err)
	}
	return shots, nil
}

func (s *Store) DeleteScreenshot(id string) error {
	res := s.db.Delete(&Screenshot{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete screenshot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("screenshot %s: %w", id, ErrNotFound)
	}
	return nil
}
