package capture

// Provider is the platform capture surface the session manager and the
// screenshot service talk to. Implementations are Native (backed by the
// platform capture API) and Fallback (no capture capability).
type Provider interface {
	// Name returns the provider name for logs (e.g., "native", "fallback")
	Name() string

	// Native reports whether recording primitives are backed by the
	// platform capture API
	Native() bool

	// CheckPermission reports whether screen capture is permitted. It never
	// blocks and is true where no permission model applies.
	CheckPermission() bool

	// RequestPermission asks the OS to prompt the user. Fire-and-forget.
	RequestPermission()

	// ListWindows returns capturable windows, empty when there are none
	ListWindows() ([]WindowDescriptor, error)

	// ListDisplays returns capturable displays, empty when there are none
	ListDisplays() ([]DisplayDescriptor, error)

	StartWindowRecording(windowID uint32, outputPath string, cfg RecordingConfig) error
	StartDisplayRecording(displayID uint32, outputPath string, cfg RecordingConfig) error
	StartRegionRecording(displayID uint32, region Bounds, outputPath string, cfg RecordingConfig) error

	// StopRecording finalizes the active recording and returns its path
	StopRecording() (string, error)

	// CancelRecording aborts the active recording
	CancelRecording() error

	IsRecording() bool
	RecordingDurationMs() int64

	ScreenshotWindow(windowID uint32, outputPath string, cfg ScreenshotConfig) error
	ScreenshotDisplay(displayID uint32, outputPath string, cfg ScreenshotConfig) error
	ScreenshotRegion(displayID uint32, region Bounds, outputPath string, cfg ScreenshotConfig) error

	// Close releases any native resources
	Close() error
}
