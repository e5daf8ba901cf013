//go:build !(darwin && cgo && nativecapture)

package capture

// PlatformBridge returns a bridge that never yields a handle, so provider
// selection settles on the fallback.
func PlatformBridge() Bridge {
	return unavailableBridge{}
}

type unavailableBridge struct{}

func (unavailableBridge) NewHandle() (Handle, bool) { return nil, false }
func (unavailableBridge) CheckPermission() bool     { return true }
func (unavailableBridge) RequestPermission()        {}
func (unavailableBridge) ListWindowsJSON() []byte   { return nil }
func (unavailableBridge) ListDisplaysJSON() []byte  { return nil }

func (unavailableBridge) ScreenshotWindow(uint32, string, ScreenshotConfig) int32 {
	return codeScreenshotFailed
}

func (unavailableBridge) ScreenshotDisplay(uint32, string, ScreenshotConfig) int32 {
	return codeScreenshotFailed
}

func (unavailableBridge) ScreenshotRegion(uint32, Bounds, string, ScreenshotConfig) int32 {
	return codeScreenshotFailed
}
