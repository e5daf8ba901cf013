// Package session owns the single active screen recording: its lifecycle,
// its output files and the optional webcam process running alongside it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
)

// Status is the session state. Transitions: Idle → Recording → Stopping →
// Idle, and Recording → Idle on cancel.
type Status int

const (
	Idle Status = iota
	Recording
	Stopping
)

func (s Status) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	default:
		return "idle"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = Idle
	case "recording":
		*s = Recording
	case "stopping":
		*s = Stopping
	default:
		return fmt.Errorf("unknown session status %q", name)
	}
	return nil
}

// Launcher starts the primary capture for a target.
type Launcher interface {
	Launch(ctx context.Context, target capture.Target, outputPath string, cfg capture.RecordingConfig) (process.Process, error)

	// Extension is the container the launcher will write for cfg
	Extension(cfg capture.RecordingConfig) string
}

// WebcamSpawner starts the companion camera recording.
type WebcamSpawner interface {
	// Spawn records the camera to outputPath; an empty device means the default
	Spawn(ctx context.Context, outputPath, device string) (process.Process, error)
}

// PathResolver hands out fresh output paths.
type PathResolver interface {
	Recording(ext string) (primary, webcam string)
}

// StartRequest describes a recording to start.
type StartRequest struct {
	Target     capture.Target
	Config     capture.RecordingConfig
	WithWebcam bool

	// WebcamDevice picks the camera for this recording, empty for the default
	WebcamDevice string
}

// Snapshot is a copy of the session record.
type Snapshot struct {
	Status     Status    `json:"status"`
	ID         string    `json:"session_id,omitempty"`
	Target     string    `json:"target,omitempty"`
	Path       string    `json:"path,omitempty"`
	WebcamPath string    `json:"webcam_path,omitempty"`
	PID        int       `json:"pid,omitempty"`
	WebcamPID  int       `json:"webcam_pid,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}

// Result describes a finished recording.
type Result struct {
	SessionID  string    `json:"session_id"`
	Path       string    `json:"path"`
	WebcamPath string    `json:"webcam_path,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// EventType names a session transition.
type EventType string

const (
	EventStarted   EventType = "started"
	EventStopping  EventType = "stopping"
	EventStopped   EventType = "stopped"
	EventCancelled EventType = "cancelled"

	// EventStatus carries the current snapshot, not a transition
	EventStatus EventType = "status"
)

// Event is published on every transition.
type Event struct {
	Type    EventType `json:"type"`
	Session Snapshot  `json:"session"`
	Result  *Result   `json:"result,omitempty"`
}
