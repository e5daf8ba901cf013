package capture

// Bridge is the boundary to the native capture library. Every call returns
// the library's raw status code; mapping to errors happens in NativeEngine.
type Bridge interface {
	// NewHandle acquires an engine handle, ok=false when the library refuses
	NewHandle() (Handle, bool)

	CheckPermission() bool
	RequestPermission()

	// ListWindowsJSON and ListDisplaysJSON return the library's JSON payload,
	// nil when the library returned nothing
	ListWindowsJSON() []byte
	ListDisplaysJSON() []byte

	ScreenshotWindow(windowID uint32, outputPath string, cfg ScreenshotConfig) int32
	ScreenshotDisplay(displayID uint32, outputPath string, cfg ScreenshotConfig) int32
	ScreenshotRegion(displayID uint32, region Bounds, outputPath string, cfg ScreenshotConfig) int32
}

// Handle is one native engine instance. Destroy must be called exactly once
// and no method may be called after it.
type Handle interface {
	StartWindowRecording(windowID uint32, outputPath string, cfg RecordingConfig) int32
	StartDisplayRecording(displayID uint32, outputPath string, cfg RecordingConfig) int32
	StartRegionRecording(displayID uint32, region Bounds, outputPath string, cfg RecordingConfig) int32
	Stop() int32
	Cancel() int32
	IsRecording() bool
	DurationMs() int64
	Destroy()
}
