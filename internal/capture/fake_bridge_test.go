package capture

import "sync"

type fakeBridge struct {
	refuse       bool
	permission   bool
	requested    int
	windowsJSON  []byte
	displaysJSON []byte
	shotCode     int32
	shots        []string
	handle       *fakeHandle
}

func (b *fakeBridge) NewHandle() (Handle, bool) {
	if b.refuse {
		return nil, false
	}
	if b.handle == nil {
		b.handle = &fakeHandle{}
	}
	return b.handle, true
}

func (b *fakeBridge) CheckPermission() bool    { return b.permission }
func (b *fakeBridge) RequestPermission()       { b.requested++ }
func (b *fakeBridge) ListWindowsJSON() []byte  { return b.windowsJSON }
func (b *fakeBridge) ListDisplaysJSON() []byte { return b.displaysJSON }

func (b *fakeBridge) ScreenshotWindow(_ uint32, path string, _ ScreenshotConfig) int32 {
	b.shots = append(b.shots, path)
	return b.shotCode
}

func (b *fakeBridge) ScreenshotDisplay(_ uint32, path string, _ ScreenshotConfig) int32 {
	b.shots = append(b.shots, path)
	return b.shotCode
}

func (b *fakeBridge) ScreenshotRegion(_ uint32, _ Bounds, path string, _ ScreenshotConfig) int32 {
	b.shots = append(b.shots, path)
	return b.shotCode
}

// fakeHandle records like the real engine: start flips recording on, stop
// and cancel flip it off.
type fakeHandle struct {
	mu         sync.Mutex
	startCode  int32
	stopCode   int32
	recording  bool
	duration   int64
	lastPath   string
	lastConfig RecordingConfig
	lastRegion Bounds
	cancels    int
	destroys   int
}

func (h *fakeHandle) begin(path string, cfg RecordingConfig) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.startCode != 0 {
		return h.startCode
	}
	h.recording = true
	h.lastPath = path
	h.lastConfig = cfg
	return 0
}

func (h *fakeHandle) StartWindowRecording(_ uint32, path string, cfg RecordingConfig) int32 {
	return h.begin(path, cfg)
}

func (h *fakeHandle) StartDisplayRecording(_ uint32, path string, cfg RecordingConfig) int32 {
	return h.begin(path, cfg)
}

func (h *fakeHandle) StartRegionRecording(_ uint32, region Bounds, path string, cfg RecordingConfig) int32 {
	h.lastRegion = region
	return h.begin(path, cfg)
}

func (h *fakeHandle) Stop() int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopCode != 0 {
		return h.stopCode
	}
	h.recording = false
	return 0
}

func (h *fakeHandle) Cancel() int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancels++
	h.recording = false
	return 0
}

func (h *fakeHandle) IsRecording() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recording
}

func (h *fakeHandle) DurationMs() int64 { return h.duration }

func (h *fakeHandle) Destroy() { h.destroys++ }
