package capture

import (
	"sync"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// NativeEngine owns one native capture handle. It validates arguments,
// maps status codes to *Error and remembers the output path of the active
// recording. At most one recording runs per engine.
//
// NativeEngine must not be copied. Close releases the handle; an in-flight
// recording is cancelled first.
type NativeEngine struct {
	bridge Bridge

	mu     sync.Mutex
	handle Handle
	path   string
	closed bool

	closeOnce sync.Once
}

// NewNativeEngine acquires a handle from bridge. It fails with
// ErrEngineUnavailable when the platform API cannot be reached.
func NewNativeEngine(bridge Bridge) (*NativeEngine, error) {
	if bridge == nil {
		return nil, ErrEngineUnavailable
	}
	h, ok := bridge.NewHandle()
	if !ok || h == nil {
		return nil, ErrEngineUnavailable
	}
	return &NativeEngine{bridge: bridge, handle: h}, nil
}

func (e *NativeEngine) CheckPermission() bool {
	return e.bridge.CheckPermission()
}

func (e *NativeEngine) RequestPermission() {
	e.bridge.RequestPermission()
}

func (e *NativeEngine) ListWindows() ([]WindowDescriptor, error) {
	return decodeWindows(e.bridge.ListWindowsJSON()), nil
}

func (e *NativeEngine) ListDisplays() ([]DisplayDescriptor, error) {
	return decodeDisplays(e.bridge.ListDisplaysJSON()), nil
}

func (e *NativeEngine) StartWindowRecording(windowID uint32, outputPath string, cfg RecordingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.start(outputPath, windowID, 0, func(h Handle) int32 {
		return h.StartWindowRecording(windowID, outputPath, cfg)
	})
}

func (e *NativeEngine) StartDisplayRecording(displayID uint32, outputPath string, cfg RecordingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.start(outputPath, 0, displayID, func(h Handle) int32 {
		return h.StartDisplayRecording(displayID, outputPath, cfg)
	})
}

func (e *NativeEngine) StartRegionRecording(displayID uint32, region Bounds, outputPath string, cfg RecordingConfig) error {
	if region.Empty() {
		return InvalidConfig("region width and height must be positive")
	}
	if err := cfg.validateEncoding(); err != nil {
		return err
	}
	return e.start(outputPath, 0, displayID, func(h Handle) int32 {
		return h.StartRegionRecording(displayID, region, outputPath, cfg)
	})
}

func (e *NativeEngine) start(outputPath string, windowID, displayID uint32, call func(Handle) int32) error {
	if err := validOutputPath(outputPath); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errEngineClosed
	}
	if e.path != "" || e.handle.IsRecording() {
		return ErrRecordingInProgress
	}

	if err := mapCode(call(e.handle), windowID, displayID); err != nil {
		logger.WithComponent("capture-engine").Warn().
			Err(err).
			Uint32("window_id", windowID).
			Uint32("display_id", displayID).
			Msg("Native recording failed to start")
		return err
	}

	e.path = outputPath
	logger.WithComponent("capture-engine").Info().
		Str("path", outputPath).
		Uint32("window_id", windowID).
		Uint32("display_id", displayID).
		Msg("Native recording started")
	return nil
}

// StopRecording finalizes the file and returns its path.
func (e *NativeEngine) StopRecording() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", errEngineClosed
	}
	if e.path == "" {
		return "", ErrNoRecording
	}

	if err := FromCode(e.handle.Stop()); err != nil {
		// Keep the path while the native side still records so a cancel
		// can clean up; otherwise nothing is left to stop.
		if !e.handle.IsRecording() {
			e.path = ""
		}
		return "", err
	}

	path := e.path
	e.path = ""
	return path, nil
}

// CancelRecording aborts the recording; the native side discards the file.
func (e *NativeEngine) CancelRecording() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errEngineClosed
	}
	if e.path == "" && !e.handle.IsRecording() {
		return ErrNoRecording
	}

	code := e.handle.Cancel()
	e.path = ""
	return FromCode(code)
}

func (e *NativeEngine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	return e.handle.IsRecording()
}

// RecordingDurationMs is zero when idle or closed.
func (e *NativeEngine) RecordingDurationMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}
	if d := e.handle.DurationMs(); d > 0 {
		return d
	}
	return 0
}

func (e *NativeEngine) ScreenshotWindow(windowID uint32, outputPath string, cfg ScreenshotConfig) error {
	if err := e.screenshotPreflight(outputPath, cfg); err != nil {
		return err
	}
	return mapCode(e.bridge.ScreenshotWindow(windowID, outputPath, cfg), windowID, 0)
}

func (e *NativeEngine) ScreenshotDisplay(displayID uint32, outputPath string, cfg ScreenshotConfig) error {
	if err := e.screenshotPreflight(outputPath, cfg); err != nil {
		return err
	}
	return mapCode(e.bridge.ScreenshotDisplay(displayID, outputPath, cfg), 0, displayID)
}

func (e *NativeEngine) ScreenshotRegion(displayID uint32, region Bounds, outputPath string, cfg ScreenshotConfig) error {
	if region.Empty() {
		return InvalidConfig("region width and height must be positive")
	}
	if err := e.screenshotPreflight(outputPath, cfg); err != nil {
		return err
	}
	return mapCode(e.bridge.ScreenshotRegion(displayID, region, outputPath, cfg), 0, displayID)
}

func (e *NativeEngine) screenshotPreflight(outputPath string, cfg ScreenshotConfig) error {
	if err := validOutputPath(outputPath); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errEngineClosed
	}
	return nil
}

// Close cancels any active recording and destroys the handle. Safe to call
// more than once.
func (e *NativeEngine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.path != "" || e.handle.IsRecording() {
			logger.WithComponent("capture-engine").Warn().
				Str("path", e.path).
				Msg("Closing engine with an active recording, cancelling it")
			e.handle.Cancel()
			e.path = ""
		}
		e.handle.Destroy()
		e.handle = nil
		e.closed = true
	})
	return nil
}
