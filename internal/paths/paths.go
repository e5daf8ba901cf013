// Package paths lays out the data directory and names output files.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	recordingsDir  = "recordings"
	screenshotsDir = "screenshots"
	stampLayout    = "20060102_150405"
)

// Resolver names output files under a data directory:
//
//	<data>/recordings/recording_YYYYMMDD_HHMMSS.<ext>
//	<data>/recordings/webcam_YYYYMMDD_HHMMSS.mp4
//	<data>/screenshots/screenshot_YYYYMMDD_HHMMSS.png
type Resolver struct {
	dataDir string
	now     func() time.Time
}

// DefaultDataDir is $XDG_DATA_HOME/focusrecorder when set, else the user
// config dir.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "focusrecorder"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "focusrecorder"), nil
}

// NewResolver creates the data directory layout. An empty dataDir uses
// DefaultDataDir.
func NewResolver(dataDir string) (*Resolver, error) {
	if dataDir == "" {
		var err error
		if dataDir, err = DefaultDataDir(); err != nil {
			return nil, err
		}
	}
	for _, sub := range []string{recordingsDir, screenshotsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	return &Resolver{dataDir: dataDir, now: time.Now}, nil
}

// WithClock replaces the timestamp source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

func (r *Resolver) DataDir() string        { return r.dataDir }
func (r *Resolver) RecordingsDir() string  { return filepath.Join(r.dataDir, recordingsDir) }
func (r *Resolver) ScreenshotsDir() string { return filepath.Join(r.dataDir, screenshotsDir) }

// Recording returns fresh paths for a screen recording and its companion
// webcam file, sharing one timestamp.
func (r *Resolver) Recording(ext string) (primary, webcam string) {
	stamp := r.now().Format(stampLayout)
	dir := r.RecordingsDir()
	for n := 0; ; n++ {
		suffix := stamp
		if n > 0 {
			suffix = fmt.Sprintf("%s_%d", stamp, n)
		}
		primary = filepath.Join(dir, "recording_"+suffix+"."+ext)
		webcam = filepath.Join(dir, "webcam_"+suffix+".mp4")
		if !exists(primary) && !exists(webcam) {
			return primary, webcam
		}
	}
}

// Screenshot returns a fresh png path in the screenshots directory.
func (r *Resolver) Screenshot() string {
	return r.fresh(r.ScreenshotsDir(), "screenshot_", ".png")
}

// Thumbnail returns the thumbnail path for a media file.
func (r *Resolver) Thumbnail(mediaPath string) string {
	ext := filepath.Ext(mediaPath)
	return mediaPath[:len(mediaPath)-len(ext)] + "_thumb.png"
}

func (r *Resolver) fresh(dir, prefix, ext string) string {
	stamp := r.now().Format(stampLayout)
	path := filepath.Join(dir, prefix+stamp+ext)
	for n := 1; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s%s_%d%s", prefix, stamp, n, ext))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
