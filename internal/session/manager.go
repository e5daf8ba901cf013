package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStopGrace bounds how long Stop waits for capture processes to
// finalize their files.
const DefaultStopGrace = 3 * time.Second

// Options wires a Manager. Launcher and Paths are required.
type Options struct {
	Launcher Launcher
	Paths    PathResolver

	// Webcam is optional; without it WithWebcam requests record screen only
	Webcam WebcamSpawner

	StopGrace time.Duration
	Clock     func() time.Time
	NewID     func() string
}

type record struct {
	status     Status
	id         string
	target     capture.Target
	path       string
	webcamPath string
	primary    process.Process
	webcam     process.Process
	startedAt  time.Time
}

// Manager is the single owner of the recording session. All transitions
// happen under one lock; IsRecording reads an atomic kept in step with it.
type Manager struct {
	launcher Launcher
	webcam   WebcamSpawner
	paths    PathResolver
	grace    time.Duration
	now      func() time.Time
	newID    func() string

	mu        sync.Mutex
	rec       record
	recording atomic.Bool

	subsMu sync.Mutex
	subs   map[chan Event]struct{}
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Launcher == nil {
		return nil, errors.New("session: launcher is required")
	}
	if opts.Paths == nil {
		return nil, errors.New("session: path resolver is required")
	}
	m := &Manager{
		launcher: opts.Launcher,
		webcam:   opts.Webcam,
		paths:    opts.Paths,
		grace:    opts.StopGrace,
		now:      opts.Clock,
		newID:    opts.NewID,
		subs:     make(map[chan Event]struct{}),
	}
	if m.grace <= 0 {
		m.grace = DefaultStopGrace
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m, nil
}

// Start launches the primary capture and, if requested, the webcam. It
// fails with RecordingInProgress unless the session is idle. Webcam
// failures are logged and the recording proceeds without it.
func (m *Manager) Start(ctx context.Context, req StartRequest) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec.status != Idle {
		return Snapshot{}, capture.ErrRecordingInProgress
	}

	id := m.newID()
	log := logger.WithSession("session", id)

	primaryPath, webcamPath := m.paths.Recording(m.launcher.Extension(req.Config))

	primary, err := m.launcher.Launch(ctx, req.Target, primaryPath, req.Config)
	if err != nil {
		log.Error().Err(err).Str("target", req.Target.String()).Msg("Failed to start recording")
		return Snapshot{}, err
	}

	var cam process.Process
	if req.WithWebcam {
		cam = m.spawnWebcam(ctx, webcamPath, req.WebcamDevice, log)
	}
	if cam == nil {
		webcamPath = ""
	}

	m.rec = record{
		status:     Recording,
		id:         id,
		target:     req.Target,
		path:       primaryPath,
		webcamPath: webcamPath,
		primary:    primary,
		webcam:     cam,
		startedAt:  m.now(),
	}
	m.recording.Store(true)

	snap := m.snapshotLocked()
	log.Info().
		Str("target", req.Target.String()).
		Str("path", primaryPath).
		Int("pid", snap.PID).
		Bool("webcam", cam != nil).
		Msg("Recording started")

	m.publish(Event{Type: EventStarted, Session: snap})
	return snap, nil
}

func (m *Manager) spawnWebcam(ctx context.Context, path, device string, log *zerolog.Logger) process.Process {
	if m.webcam == nil {
		log.Warn().Msg("Webcam requested but no webcam recorder is configured")
		return nil
	}
	cam, err := m.webcam.Spawn(ctx, path, device)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to start webcam recording, continuing without it")
		return nil
	}
	log.Info().Str("path", path).Int("pid", cam.PID()).Msg("Webcam recording started")
	return cam
}

// Stop asks both processes to finalize, waits up to the grace interval
// for them to exit and returns to Idle. Both processes are signalled even
// if one fails. The session is reset whatever the outcome; a failure to
// stop the primary capture is returned alongside the result. A webcam file
// that was never written is left out of the result.
func (m *Manager) Stop(ctx context.Context) (Result, error) {
	m.mu.Lock()
	if m.rec.status != Recording {
		m.mu.Unlock()
		return Result{}, capture.ErrNoActiveRecording
	}
	m.rec.status = Stopping
	rec := m.rec
	stopping := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(Event{Type: EventStopping, Session: stopping})

	log := logger.WithSession("session", rec.id)

	primaryErr := rec.primary.Terminate()
	if primaryErr != nil {
		log.Error().Err(primaryErr).Int("pid", rec.primary.PID()).Msg("Failed to stop recording")
	}
	if rec.webcam != nil {
		if err := rec.webcam.Terminate(); err != nil {
			log.Warn().Err(err).Int("pid", rec.webcam.PID()).Msg("Failed to stop webcam recording")
		}
	}

	m.awaitExit(ctx, log, rec.primary, rec.webcam)

	webcamPath := rec.webcamPath
	if webcamPath != "" && !fileExists(webcamPath) {
		log.Warn().Str("path", webcamPath).Msg("Webcam recording produced no file")
		webcamPath = ""
	}

	ended := m.now()
	result := Result{
		SessionID:  rec.id,
		Path:       rec.path,
		WebcamPath: webcamPath,
		DurationMs: elapsedMs(rec.startedAt, ended),
		StartedAt:  rec.startedAt,
		EndedAt:    ended,
	}

	m.mu.Lock()
	m.rec = record{}
	m.recording.Store(false)
	m.mu.Unlock()

	log.Info().
		Str("path", result.Path).
		Int64("duration_ms", result.DurationMs).
		Msg("Recording stopped")

	m.publish(Event{Type: EventStopped, Session: Snapshot{Status: Idle}, Result: &result})

	if primaryErr != nil {
		return result, fmt.Errorf("failed to stop recording: %w", primaryErr)
	}
	return result, nil
}

// Cancel kills both processes, returns to Idle and deletes whatever they
// wrote. It returns the id of the cancelled session. The lock is released
// before waiting on the processes; paths are never reused, so a session
// started meanwhile cannot lose its files.
func (m *Manager) Cancel(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.rec.status != Recording {
		m.mu.Unlock()
		return "", capture.ErrNoActiveRecording
	}

	rec := m.rec
	log := logger.WithSession("session", rec.id)

	if err := rec.primary.Kill(); err != nil {
		log.Warn().Err(err).Int("pid", rec.primary.PID()).Msg("Failed to kill recording")
	}
	if rec.webcam != nil {
		if err := rec.webcam.Kill(); err != nil {
			log.Warn().Err(err).Int("pid", rec.webcam.PID()).Msg("Failed to kill webcam recording")
		}
	}

	m.rec = record{}
	m.recording.Store(false)
	m.publish(Event{Type: EventCancelled, Session: Snapshot{Status: Idle}})
	m.mu.Unlock()

	// wait for exit so nothing recreates the files after removal
	m.awaitExit(ctx, log, rec.primary, rec.webcam)

	for _, path := range []string{rec.path, rec.webcamPath} {
		removeIfExists(path, log)
	}

	log.Info().Msg("Recording cancelled")
	return rec.id, nil
}

// Shutdown stops an active recording, if any. Used when the host exits.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.IsRecording() {
		return nil
	}
	_, err := m.Stop(ctx)
	if errors.Is(err, capture.ErrNoActiveRecording) {
		return nil
	}
	return err
}

// IsRecording is lock-free. It stays true through Stopping.
func (m *Manager) IsRecording() bool {
	return m.recording.Load()
}

// CurrentSessionID is empty when idle.
func (m *Manager) CurrentSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.id
}

// Status returns a copy of the session record.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	r := m.rec
	if r.status == Idle {
		return Snapshot{Status: Idle}
	}
	snap := Snapshot{
		Status:     r.status,
		ID:         r.id,
		Target:     r.target.String(),
		Path:       r.path,
		WebcamPath: r.webcamPath,
		StartedAt:  r.startedAt,
		ElapsedMs:  elapsedMs(r.startedAt, m.now()),
	}
	if r.primary != nil {
		snap.PID = r.primary.PID()
	}
	if r.webcam != nil {
		snap.WebcamPID = r.webcam.PID()
	}
	return snap
}

// awaitExit waits for every non-nil process to exit, sharing one grace
// deadline. Stragglers are logged and left to finish on their own.
func (m *Manager) awaitExit(ctx context.Context, log *zerolog.Logger, procs ...process.Process) {
	deadline := time.Now().Add(m.grace)
	for _, p := range procs {
		if p == nil {
			continue
		}
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if err := process.Wait(ctx, p, remaining); err != nil {
			log.Warn().Err(err).Int("pid", p.PID()).Msg("Capture process still running after grace period")
		}
	}
}

// Subscribe returns a channel of session events and a function to
// unsubscribe. Slow subscribers miss events rather than block transitions.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, ch)
			m.subsMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) publish(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
			logger.WithComponent("session").Debug().Str("event", string(ev.Type)).Msg("Dropping event for slow subscriber")
		}
	}
}

func elapsedMs(start, end time.Time) int64 {
	if d := end.Sub(start).Milliseconds(); d > 0 {
		return d
	}
	return 0
}

func removeIfExists(path string, log *zerolog.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove cancelled recording")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
