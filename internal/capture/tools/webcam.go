package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
)

// ErrNoCamera is returned by Webcam.Spawn when the camera probe reports no
// device.
var ErrNoCamera = errors.New("no camera available")

// CameraProbe reports whether a camera can be opened.
type CameraProbe interface {
	CameraPresent(ctx context.Context) (bool, error)
}

// Webcam records the default camera with ffmpeg into an mp4 alongside the
// screen recording.
type Webcam struct {
	Platform   string
	FFmpegPath string

	// Device is an avfoundation index on macOS, an index or /dev path on Linux
	Device string
	FPS    int
	Width  int
	Height int

	// Bitrate in bits per second, 0 leaves the encoder default
	Bitrate int

	// Probe is consulted before spawning. Optional.
	Probe CameraProbe

	Start StartFunc
}

func (w *Webcam) platform() string {
	if w.Platform != "" {
		return w.Platform
	}
	return runtime.GOOS
}

// Spawn starts recording the camera to outputPath. A non-empty device
// overrides the configured one for this recording.
func (w *Webcam) Spawn(ctx context.Context, outputPath, device string) (process.Process, error) {
	log := logger.WithComponent("webcam")

	if w.Probe != nil {
		present, err := w.Probe.CameraPresent(ctx)
		switch {
		case err != nil:
			log.Debug().Err(err).Msg("Camera probe failed, trying anyway")
		case !present:
			return nil, ErrNoCamera
		}
	}

	bin, args, err := w.Command(outputPath, device)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("device", deviceArg(args)).Msg("Opening camera")

	start := w.Start
	if start == nil {
		start = startProcess
	}
	return start("webcam", bin, args...)
}

// Command builds the ffmpeg invocation without running it. An empty device
// falls back to Webcam.Device, then to the first camera.
func (w *Webcam) Command(outputPath, device string) (string, []string, error) {
	fps := w.FPS
	if fps <= 0 {
		fps = 30
	}
	width, height := w.Width, w.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	if device == "" {
		device = w.Device
	}
	if device == "" {
		device = "0"
	}

	var input []string
	switch w.platform() {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", device + ":"}
	case "linux":
		if _, err := strconv.Atoi(device); err == nil {
			device = "/dev/video" + device
		}
		input = []string{"-f", "v4l2", "-i", device}
	default:
		return "", nil, fmt.Errorf("webcam capture not supported on %s", w.platform())
	}

	args := []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-video_size", fmt.Sprintf("%dx%d", width, height),
	}
	args = append(args, input...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
	)
	if w.Bitrate > 0 {
		args = append(args, "-b:v", strconv.Itoa(w.Bitrate))
	}
	args = append(args, outputPath)

	return orDefault(w.FFmpegPath, "ffmpeg"), args, nil
}

// deviceArg returns the ffmpeg -i value.
func deviceArg(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-i" {
			return args[i+1]
		}
	}
	return ""
}
