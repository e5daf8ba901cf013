package capture

import (
	"encoding/json"
	"strings"
)

// WindowDescriptor is a snapshot of a capturable window. It can go stale
// at any time; capturing a window that has since closed reports
// WindowNotFound.
type WindowDescriptor struct {
	ID                 uint32  `json:"window_id"`
	Title              string  `json:"title"`
	OwnerName          string  `json:"owner_name"`
	X                  int32   `json:"x"`
	Y                  int32   `json:"y"`
	Width              int32   `json:"width"`
	Height             int32   `json:"height"`
	BackingScaleFactor float32 `json:"backing_scale_factor"`
}

// DisplayDescriptor is a snapshot of a capturable display.
type DisplayDescriptor struct {
	ID                 uint32  `json:"display_id"`
	Name               string  `json:"name"`
	Width              int32   `json:"width"`
	Height             int32   `json:"height"`
	BackingScaleFactor float32 `json:"backing_scale_factor"`
	IsMain             bool    `json:"is_main"`
}

// MainDisplay picks the display flagged main, else the first one.
func MainDisplay(displays []DisplayDescriptor) (DisplayDescriptor, bool) {
	for _, d := range displays {
		if d.IsMain {
			return d, true
		}
	}
	if len(displays) > 0 {
		return displays[0], true
	}
	return DisplayDescriptor{}, false
}

// RecordingConfig holds encoder settings. Width and Height are logical;
// the native layer multiplies by ScaleFactor to address backing pixels.
type RecordingConfig struct {
	Width            uint32     `json:"width" yaml:"width"`
	Height           uint32     `json:"height" yaml:"height"`
	FPS              uint32     `json:"fps" yaml:"fps"`
	Bitrate          uint32     `json:"bitrate" yaml:"bitrate"`
	KeyframeInterval uint32     `json:"keyframe_interval" yaml:"keyframe_interval"`
	Codec            VideoCodec `json:"codec" yaml:"codec"`
	CaptureCursor    bool       `json:"capture_cursor" yaml:"capture_cursor"`
	CaptureAudio     bool       `json:"capture_audio" yaml:"capture_audio"`
	ScaleFactor      float32    `json:"scale_factor" yaml:"scale_factor"`
}

// DefaultRecordingConfig is 1080p60 HEVC at 20 Mbps with a one-second GOP,
// cursor on, audio off, retina scale.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{
		Width:            1920,
		Height:           1080,
		FPS:              60,
		Bitrate:          20_000_000,
		KeyframeInterval: 60,
		Codec:            CodecHEVC,
		CaptureCursor:    true,
		CaptureAudio:     false,
		ScaleFactor:      2.0,
	}
}

func (c RecordingConfig) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return InvalidConfig("width and height must be non-zero")
	}
	return c.validateEncoding()
}

// validateEncoding checks everything but the output dimensions, which
// region recordings take from the region itself.
func (c RecordingConfig) validateEncoding() error {
	switch {
	case c.FPS == 0:
		return InvalidConfig("fps must be non-zero")
	case c.ScaleFactor <= 0:
		return InvalidConfig("scale factor must be positive")
	case !c.Codec.Valid():
		return InvalidConfig("unknown codec")
	}
	return nil
}

// ScreenshotConfig holds still-capture settings.
type ScreenshotConfig struct {
	ScaleFactor   float32 `json:"scale_factor" yaml:"scale_factor"`
	CaptureCursor bool    `json:"capture_cursor" yaml:"capture_cursor"`
}

func DefaultScreenshotConfig() ScreenshotConfig {
	return ScreenshotConfig{ScaleFactor: 2.0}
}

func (c ScreenshotConfig) Validate() error {
	if c.ScaleFactor <= 0 {
		return InvalidConfig("scale factor must be positive")
	}
	return nil
}

// Bounds is a rectangle in logical display coordinates.
type Bounds struct {
	X      int32 `json:"x"`
	Y      int32 `json:"y"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Empty reports whether b cannot describe a capture region.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func validOutputPath(path string) error {
	if path == "" {
		return InvalidConfig("output path is empty")
	}
	if strings.ContainsRune(path, 0) {
		return InvalidConfig("output path contains a NUL byte")
	}
	return nil
}

// decodeWindows tolerates a nil or malformed payload by returning no windows.
func decodeWindows(payload []byte) []WindowDescriptor {
	windows := []WindowDescriptor{}
	if len(payload) == 0 {
		return windows
	}
	if err := json.Unmarshal(payload, &windows); err != nil || windows == nil {
		return []WindowDescriptor{}
	}
	return windows
}

func decodeDisplays(payload []byte) []DisplayDescriptor {
	displays := []DisplayDescriptor{}
	if len(payload) == 0 {
		return displays
	}
	if err := json.Unmarshal(payload, &displays); err != nil || displays == nil {
		return []DisplayDescriptor{}
	}
	return displays
}
