// Package tools records through external capture programs (screencapture,
// ffmpeg) when no native capture engine is available.
package tools

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
)

// StartFunc launches a named child process.
type StartFunc func(name, bin string, args ...string) (process.Process, error)

func startProcess(name, bin string, args ...string) (process.Process, error) {
	return process.Start(name, bin, args...)
}

// WindowLocator resolves a window id to its on-screen bounds.
type WindowLocator interface {
	WindowBounds(windowID uint32) (capture.Bounds, error)
}

// ScreenRecorder records the screen with screencapture on macOS and
// ffmpeg's x11grab on Linux.
type ScreenRecorder struct {
	// Platform is a GOOS value; empty means runtime.GOOS
	Platform string

	ScreencapturePath string
	FFmpegPath        string

	// X11Display is the x11grab input, $DISPLAY when empty
	X11Display string

	// Locator finds bounds for window targets, which these tools can only
	// record as rectangles. Optional.
	Locator WindowLocator

	Start StartFunc
}

func (r *ScreenRecorder) platform() string {
	if r.Platform != "" {
		return r.Platform
	}
	return runtime.GOOS
}

// Extension is mov for screencapture, which ignores the codec, and the
// codec's container otherwise.
func (r *ScreenRecorder) Extension(cfg capture.RecordingConfig) string {
	if r.platform() == "darwin" {
		return "mov"
	}
	return cfg.Codec.Extension()
}

// Launch starts the capture tool for target writing to outputPath.
func (r *ScreenRecorder) Launch(ctx context.Context, target capture.Target, outputPath string, cfg capture.RecordingConfig) (process.Process, error) {
	target = r.regionForWindow(target)

	bin, args, err := r.Command(target, outputPath, cfg)
	if err != nil {
		return nil, err
	}

	start := r.Start
	if start == nil {
		start = startProcess
	}
	p, err := start("screen-recorder", bin, args...)
	if err != nil {
		return nil, capture.RecordingFailed(err.Error())
	}
	return p, nil
}

// regionForWindow turns a window target into a region using the bounds
// hint or the locator. Without bounds the whole display is recorded.
func (r *ScreenRecorder) regionForWindow(target capture.Target) capture.Target {
	if target.Kind != capture.TargetWindow {
		return target
	}

	log := logger.WithComponent("screen-recorder")

	if !target.Region.Empty() {
		return capture.Target{Kind: capture.TargetRegion, Region: target.Region}
	}
	if r.Locator != nil {
		bounds, err := r.Locator.WindowBounds(target.WindowID)
		if err == nil && !bounds.Empty() {
			return capture.Target{Kind: capture.TargetRegion, Region: bounds}
		}
		log.Warn().Err(err).Uint32("window_id", target.WindowID).Msg("Could not locate window bounds")
	}

	log.Warn().Uint32("window_id", target.WindowID).Msg("Recording whole display instead of window")
	return capture.Target{Kind: capture.TargetMainDisplay}
}

// Command builds the tool invocation without running it.
func (r *ScreenRecorder) Command(target capture.Target, outputPath string, cfg capture.RecordingConfig) (string, []string, error) {
	switch r.platform() {
	case "darwin":
		return orDefault(r.ScreencapturePath, "screencapture"), screencaptureArgs(target, outputPath, cfg), nil
	case "linux":
		display := r.X11Display
		if display == "" {
			display = os.Getenv("DISPLAY")
		}
		if display == "" {
			display = ":0"
		}
		return orDefault(r.FFmpegPath, "ffmpeg"), x11grabArgs(display, target, outputPath, cfg), nil
	default:
		return "", nil, capture.ErrPlatformNotSupported
	}
}

func screencaptureArgs(target capture.Target, outputPath string, cfg capture.RecordingConfig) []string {
	args := []string{"-v"}
	if cfg.CaptureCursor {
		args = append(args, "-C")
	}
	if cfg.CaptureAudio {
		args = append(args, "-g")
	}

	switch target.Kind {
	case capture.TargetRegion:
		b := target.Region
		args = append(args, "-R", fmt.Sprintf("%d,%d,%d,%d", b.X, b.Y, b.Width, b.Height))
	case capture.TargetDisplay:
		args = append(args, "-D", strconv.FormatUint(uint64(target.DisplayID), 10))
	}

	return append(args, outputPath)
}

func x11grabArgs(display string, target capture.Target, outputPath string, cfg capture.RecordingConfig) []string {
	drawMouse := "0"
	if cfg.CaptureCursor {
		drawMouse = "1"
	}

	args := []string{
		"-y",
		"-f", "x11grab",
		"-framerate", strconv.FormatUint(uint64(cfg.FPS), 10),
		"-draw_mouse", drawMouse,
	}

	input := display
	if target.Kind == capture.TargetRegion {
		b := target.Region
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", b.Width, b.Height))
		input = fmt.Sprintf("%s+%d,%d", display, b.X, b.Y)
	}
	args = append(args, "-i", input)

	if cfg.CaptureAudio {
		args = append(args, "-f", "pulse", "-i", "default", "-c:a", "aac")
	}

	args = append(args, encoderArgs(cfg)...)
	return append(args, outputPath)
}

func encoderArgs(cfg capture.RecordingConfig) []string {
	var args []string
	switch cfg.Codec {
	case capture.CodecH264:
		args = []string{"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p"}
	case capture.CodecProRes422:
		args = []string{"-c:v", "prores_ks", "-profile:v", "2", "-pix_fmt", "yuv422p10le"}
	case capture.CodecProRes422HQ:
		args = []string{"-c:v", "prores_ks", "-profile:v", "3", "-pix_fmt", "yuv422p10le"}
	default:
		args = []string{"-c:v", "libx265", "-preset", "ultrafast", "-pix_fmt", "yuv420p", "-tag:v", "hvc1"}
	}

	if cfg.Bitrate > 0 && (cfg.Codec == capture.CodecH264 || cfg.Codec == capture.CodecHEVC) {
		args = append(args, "-b:v", strconv.FormatUint(uint64(cfg.Bitrate), 10))
	}
	if cfg.KeyframeInterval > 0 {
		args = append(args, "-g", strconv.FormatUint(uint64(cfg.KeyframeInterval), 10))
	}
	return args
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
