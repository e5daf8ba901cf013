package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcess writes its output file on start and exits when signalled,
// unless hang is set. A stuck process ignores Kill as well.
type fakeProcess struct {
	pid   int
	path  string
	hang  bool
	stuck bool

	mu         sync.Mutex
	terminated int
	killed     int
	termErr    error
	done       chan struct{}
	once       sync.Once
}

func newFakeProcess(pid int, path string) *fakeProcess {
	return &fakeProcess{pid: pid, path: path, done: make(chan struct{})}
}

func (p *fakeProcess) PID() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated++
	p.mu.Unlock()
	if !p.hang {
		p.once.Do(func() { close(p.done) })
	}
	return p.termErr
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed++
	p.mu.Unlock()
	if !p.stuck {
		p.once.Do(func() { close(p.done) })
	}
	return nil
}

func (p *fakeProcess) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated, p.killed
}

type fakeLauncher struct {
	mu       sync.Mutex
	err      error
	hang     bool
	stuck    bool
	termErr  error
	launched []*fakeProcess
	targets  []capture.Target
	delay    time.Duration
}

func (l *fakeLauncher) Extension(cfg capture.RecordingConfig) string {
	return cfg.Codec.Extension()
}

func (l *fakeLauncher) Launch(_ context.Context, target capture.Target, path string, _ capture.RecordingConfig) (process.Process, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		return nil, err
	}
	p := newFakeProcess(1000+len(l.launched), path)
	p.hang = l.hang
	p.stuck = l.stuck
	p.termErr = l.termErr
	l.launched = append(l.launched, p)
	l.targets = append(l.targets, target)
	return p, nil
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched[len(l.launched)-1]
}

type fakeWebcam struct {
	err    error
	device string
	// noFile spawns a process that never writes its output
	noFile bool
	proc   *fakeProcess
}

func (w *fakeWebcam) Spawn(_ context.Context, path, device string) (process.Process, error) {
	w.device = device
	if w.err != nil {
		return nil, w.err
	}
	if !w.noFile {
		if err := os.WriteFile(path, []byte("cam"), 0644); err != nil {
			return nil, err
		}
	}
	w.proc = newFakeProcess(2000, path)
	return w.proc, nil
}

type tempPaths struct {
	dir string
	n   atomic.Int32
}

func (p *tempPaths) Recording(ext string) (string, string) {
	n := p.n.Add(1)
	return filepath.Join(p.dir, fmt.Sprintf("recording_%d.%s", n, ext)),
		filepath.Join(p.dir, fmt.Sprintf("webcam_%d.mp4", n))
}

type fixture struct {
	mgr      *Manager
	launcher *fakeLauncher
	webcam   *fakeWebcam
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		launcher: &fakeLauncher{},
		webcam:   &fakeWebcam{},
		clock:    &fakeClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	ids := 0
	mgr, err := NewManager(Options{
		Launcher:  f.launcher,
		Paths:     &tempPaths{dir: t.TempDir()},
		Webcam:    f.webcam,
		StopGrace: 100 * time.Millisecond,
		Clock:     f.clock.Now,
		NewID: func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		},
	})
	require.NoError(t, err)
	f.mgr = mgr
	return f
}

func mainDisplay() StartRequest {
	return StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig()}
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := NewManager(Options{Paths: &tempPaths{}})
	assert.Error(t, err)
	_, err = NewManager(Options{Launcher: &fakeLauncher{}})
	assert.Error(t, err)
}

func TestStart_PublishesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.mgr.IsRecording())
	assert.Equal(t, Idle, f.mgr.Status().Status)

	snap, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)

	assert.Equal(t, Recording, snap.Status)
	assert.Equal(t, "session-1", snap.ID)
	assert.Equal(t, 1000, snap.PID)
	assert.Equal(t, ".mp4", filepath.Ext(snap.Path))
	assert.Empty(t, snap.WebcamPath)
	assert.True(t, f.mgr.IsRecording())
	assert.Equal(t, "session-1", f.mgr.CurrentSessionID())
	assert.Equal(t, snap, f.mgr.Status())
}

func TestStart_TwiceIsRecordingInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)

	_, err = f.mgr.Start(ctx, mainDisplay())
	require.ErrorIs(t, err, capture.ErrRecordingInProgress)

	assert.Equal(t, first, f.mgr.Status())
	assert.Len(t, f.launcher.launched, 1)
}

func TestStart_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.launcher.delay = 10 * time.Millisecond

	var wg sync.WaitGroup
	var ok, busy atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.Start(context.Background(), mainDisplay())
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, capture.ErrRecordingInProgress):
				busy.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), busy.Load())
}

func TestStart_LaunchFailureLeavesIdle(t *testing.T) {
	f := newFixture(t)
	f.launcher.err = capture.ErrPlatformNotSupported

	_, err := f.mgr.Start(context.Background(), mainDisplay())
	require.ErrorIs(t, err, capture.ErrPlatformNotSupported)
	assert.False(t, f.mgr.IsRecording())
	assert.Equal(t, Idle, f.mgr.Status().Status)
	assert.Empty(t, f.mgr.CurrentSessionID())
}

func TestStop_ReturnsResultAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	f.clock.Advance(1500 * time.Millisecond)

	result, err := f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, result.SessionID)
	assert.Equal(t, snap.Path, result.Path)
	assert.Equal(t, int64(1500), result.DurationMs)
	assert.Equal(t, snap.StartedAt, result.StartedAt)
	assert.FileExists(t, result.Path)

	terminated, killed := f.launcher.last().counts()
	assert.Equal(t, 1, terminated)
	assert.Equal(t, 0, killed)

	assert.False(t, f.mgr.IsRecording())
	assert.Empty(t, f.mgr.CurrentSessionID())

	_, err = f.mgr.Stop(ctx)
	assert.ErrorIs(t, err, capture.ErrNoActiveRecording)
}

func TestStop_ImmediatelyAfterStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)

	result, err := f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
	assert.False(t, f.mgr.IsRecording())
}

func TestStop_ClockSkewClampsDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	f.clock.Advance(-time.Minute)

	result, err := f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.DurationMs)
}

func TestStop_BoundedByGrace(t *testing.T) {
	f := newFixture(t)
	f.launcher.hang = true
	ctx := context.Background()

	_, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)

	begin := time.Now()
	_, err = f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.False(t, f.mgr.IsRecording())
}

func TestStop_PrimaryFailureStillResets(t *testing.T) {
	f := newFixture(t)
	f.launcher.termErr = capture.ErrEncodingFailed
	ctx := context.Background()

	_, err := f.mgr.Start(ctx, StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig(), WithWebcam: true})
	require.NoError(t, err)

	result, err := f.mgr.Stop(ctx)
	require.ErrorIs(t, err, capture.ErrEncodingFailed)
	assert.NotEmpty(t, result.Path)

	terminated, _ := f.webcam.proc.counts()
	assert.Equal(t, 1, terminated, "webcam is stopped even when the primary fails")
	assert.False(t, f.mgr.IsRecording())
}

func TestWebcam_RecordedAlongside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.mgr.Start(ctx, StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig(), WithWebcam: true})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.WebcamPath)
	assert.Equal(t, 2000, snap.WebcamPID)

	result, err := f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.WebcamPath, result.WebcamPath)
	terminated, _ := f.webcam.proc.counts()
	assert.Equal(t, 1, terminated)
}

func TestWebcam_FailureDoesNotAffectPrimary(t *testing.T) {
	f := newFixture(t)
	f.webcam.err = errors.New("no camera")
	ctx := context.Background()

	snap, err := f.mgr.Start(ctx, StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig(), WithWebcam: true})
	require.NoError(t, err)
	assert.Empty(t, snap.WebcamPath)
	assert.Zero(t, snap.WebcamPID)

	result, err := f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.WebcamPath)
}

func TestWebcam_NotConfigured(t *testing.T) {
	mgr, err := NewManager(Options{Launcher: &fakeLauncher{}, Paths: &tempPaths{dir: t.TempDir()}})
	require.NoError(t, err)

	snap, err := mgr.Start(context.Background(), StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig(), WithWebcam: true})
	require.NoError(t, err)
	assert.Empty(t, snap.WebcamPath)
	_, err = mgr.Cancel(context.Background())
	require.NoError(t, err)
}

func TestCancel_KillsAndRemovesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.mgr.Start(ctx, StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig(), WithWebcam: true})
	require.NoError(t, err)
	require.FileExists(t, snap.Path)
	require.FileExists(t, snap.WebcamPath)

	id, err := f.mgr.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, id)

	assert.NoFileExists(t, snap.Path)
	assert.NoFileExists(t, snap.WebcamPath)
	_, killed := f.launcher.last().counts()
	assert.Equal(t, 1, killed)
	_, camKilled := f.webcam.proc.counts()
	assert.Equal(t, 1, camKilled)
	assert.False(t, f.mgr.IsRecording())
	assert.Equal(t, Idle, f.mgr.Status().Status)
}

func TestCancel_WhenIdle(t *testing.T) {
	f := newFixture(t)
	id, err := f.mgr.Cancel(context.Background())
	assert.ErrorIs(t, err, capture.ErrNoActiveRecording)
	assert.Empty(t, id)
}

func TestCancel_MissingFilesIsFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	require.NoError(t, os.Remove(snap.Path))

	_, err = f.mgr.Cancel(ctx)
	require.NoError(t, err)
	assert.False(t, f.mgr.IsRecording())
}

func TestCancel_DoesNotBlockStatus(t *testing.T) {
	launcher := &fakeLauncher{stuck: true}
	mgr, err := NewManager(Options{
		Launcher:  launcher,
		Paths:     &tempPaths{dir: t.TempDir()},
		StopGrace: 5 * time.Second,
	})
	require.NoError(t, err)
	ctx := context.Background()

	snap, err := mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)

	cancelled := make(chan string, 1)
	go func() {
		id, _ := mgr.Cancel(ctx)
		cancelled <- id
	}()

	require.Eventually(t, func() bool { return !mgr.IsRecording() }, time.Second, 5*time.Millisecond)

	queried := make(chan Snapshot, 1)
	go func() { queried <- mgr.Status() }()
	select {
	case got := <-queried:
		assert.Equal(t, Idle, got.Status)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Status blocked while Cancel waited for the process")
	}
	assert.Empty(t, mgr.CurrentSessionID())

	// Cancel itself is still waiting out the grace period
	select {
	case <-cancelled:
		t.Fatal("Cancel returned before the grace period")
	default:
	}
	assert.FileExists(t, snap.Path)

	proc := launcher.last()
	proc.once.Do(func() { close(proc.done) })
	select {
	case id := <-cancelled:
		assert.Equal(t, snap.ID, id)
	case <-time.After(time.Second):
		t.Fatal("Cancel did not return after the process exited")
	}
	assert.NoFileExists(t, snap.Path)
}

func TestWebcam_DevicePerRecording(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := mainDisplay()
	req.WithWebcam = true
	req.WebcamDevice = "/dev/video2"
	_, err := f.mgr.Start(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "/dev/video2", f.webcam.device)
	_, err = f.mgr.Stop(ctx)
	require.NoError(t, err)

	req.WebcamDevice = ""
	_, err = f.mgr.Start(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, f.webcam.device)
	_, err = f.mgr.Stop(ctx)
	require.NoError(t, err)
}

func TestStop_DropsMissingWebcamFile(t *testing.T) {
	f := newFixture(t)
	f.webcam.noFile = true
	ctx := context.Background()

	snap, err := f.mgr.Start(ctx, StartRequest{Target: capture.Target{Kind: capture.TargetMainDisplay}, Config: capture.DefaultRecordingConfig(), WithWebcam: true})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.WebcamPath)

	result, err := f.mgr.Stop(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.WebcamPath)
	assert.Equal(t, snap.Path, result.Path)
}

func TestRestartAfterStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	_, err = f.mgr.Stop(ctx)
	require.NoError(t, err)

	second, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Path, second.Path)
	require.NoError(t, f.mgr.Shutdown(ctx))
	assert.False(t, f.mgr.IsRecording())
	require.NoError(t, f.mgr.Shutdown(ctx))
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events, unsubscribe := f.mgr.Subscribe()
	defer unsubscribe()

	_, err := f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	_, err = f.mgr.Stop(ctx)
	require.NoError(t, err)
	_, err = f.mgr.Start(ctx, mainDisplay())
	require.NoError(t, err)
	_, err = f.mgr.Cancel(ctx)
	require.NoError(t, err)

	var got []EventType
	for i := 0; i < 5; i++ {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
			if ev.Type == EventStopped {
				require.NotNil(t, ev.Result)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out after %v", got)
		}
	}
	assert.Equal(t, []EventType{EventStarted, EventStopping, EventStopped, EventStarted, EventCancelled}, got)

	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}

func TestSnapshot_JSON(t *testing.T) {
	f := newFixture(t)
	snap, err := f.mgr.Start(context.Background(), mainDisplay())
	require.NoError(t, err)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"recording"`)
	assert.Contains(t, string(data), `"target":"main_display"`)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Recording, decoded.Status)
	assert.Equal(t, snap.ID, decoded.ID)

	idle, err := json.Marshal(Snapshot{Status: Idle})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"idle","elapsed_ms":0}`, string(idle))

	assert.Error(t, json.Unmarshal([]byte(`{"status":"paused"}`), &decoded))
}
