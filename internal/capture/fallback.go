package capture

// FallbackProvider is selected when no native capture engine is available.
// Enumeration reports nothing; every capture primitive is unsupported.
type FallbackProvider struct{}

func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{}
}

func (*FallbackProvider) Name() string { return "fallback" }
func (*FallbackProvider) Native() bool { return false }

// CheckPermission is true: there is no permission model to consult.
func (*FallbackProvider) CheckPermission() bool { return true }
func (*FallbackProvider) RequestPermission()    {}

func (*FallbackProvider) ListWindows() ([]WindowDescriptor, error) {
	return []WindowDescriptor{}, nil
}

func (*FallbackProvider) ListDisplays() ([]DisplayDescriptor, error) {
	return []DisplayDescriptor{}, nil
}

func (*FallbackProvider) StartWindowRecording(uint32, string, RecordingConfig) error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) StartDisplayRecording(uint32, string, RecordingConfig) error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) StartRegionRecording(uint32, Bounds, string, RecordingConfig) error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) StopRecording() (string, error) {
	return "", ErrPlatformNotSupported
}

func (*FallbackProvider) CancelRecording() error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) IsRecording() bool          { return false }
func (*FallbackProvider) RecordingDurationMs() int64 { return 0 }

func (*FallbackProvider) ScreenshotWindow(uint32, string, ScreenshotConfig) error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) ScreenshotDisplay(uint32, string, ScreenshotConfig) error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) ScreenshotRegion(uint32, Bounds, string, ScreenshotConfig) error {
	return ErrPlatformNotSupported
}

func (*FallbackProvider) Close() error { return nil }
