package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// DeviceKind separates cameras from audio inputs.
type DeviceKind string

const (
	VideoDevice DeviceKind = "video"
	AudioDevice DeviceKind = "audio"
)

// Device is a capture input. ID is what Webcam.Device accepts: an
// avfoundation index on macOS, a /dev/video path or ALSA card on Linux.
type Device struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind DeviceKind `json:"kind"`
}

// OutputFunc runs a command and returns its combined output.
type OutputFunc func(ctx context.Context, bin string, args ...string) ([]byte, error)

func combinedOutput(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).CombinedOutput()
}

// DeviceLister enumerates cameras and microphones. macOS asks ffmpeg's
// avfoundation input; Linux reads the v4l2 and ALSA nodes directly.
type DeviceLister struct {
	Platform   string
	FFmpegPath string

	// Root prefixes /dev, /sys and /proc lookups, empty for the real system
	Root string

	Output OutputFunc
}

func (l *DeviceLister) platform() string {
	if l.Platform != "" {
		return l.Platform
	}
	return runtime.GOOS
}

// Devices lists inputs of the given kind.
func (l *DeviceLister) Devices(ctx context.Context, kind DeviceKind) ([]Device, error) {
	if kind != VideoDevice && kind != AudioDevice {
		return nil, capture.InvalidConfig(fmt.Sprintf("unknown device kind %q", kind))
	}

	switch l.platform() {
	case "darwin":
		out, err := l.avfoundationListing(ctx)
		if err != nil {
			return nil, err
		}
		return parseAVFoundationDevices(out, kind), nil
	case "linux":
		if kind == VideoDevice {
			return l.v4l2Devices()
		}
		return l.alsaDevices()
	default:
		return nil, capture.ErrPlatformNotSupported
	}
}

// avfoundationListing runs ffmpeg's device listing. ffmpeg exits non-zero
// after listing since no input was opened, so only empty output is an error.
func (l *DeviceLister) avfoundationListing(ctx context.Context) ([]byte, error) {
	run := l.Output
	if run == nil {
		run = combinedOutput
	}
	out, err := run(ctx, orDefault(l.FFmpegPath, "ffmpeg"),
		"-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	if len(out) == 0 && err != nil {
		return nil, fmt.Errorf("failed to list avfoundation devices: %w", err)
	}
	if err != nil {
		logger.WithComponent("devices").Debug().Err(err).Msg("ffmpeg exited after listing devices")
	}
	return out, nil
}

var avfoundationDevice = regexp.MustCompile(`\]\s+\[(\d+)\]\s+(.+)$`)

// parseAVFoundationDevices reads ffmpeg's listing. Screens show up among
// the video devices and are skipped.
func parseAVFoundationDevices(out []byte, kind DeviceKind) []Device {
	devices := []Device{}
	var section DeviceKind

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			section = VideoDevice
			continue
		case strings.Contains(line, "AVFoundation audio devices"):
			section = AudioDevice
			continue
		}
		if section != kind {
			continue
		}
		m := avfoundationDevice.FindStringSubmatch(line)
		if m == nil || strings.HasPrefix(m[2], "Capture screen") {
			continue
		}
		devices = append(devices, Device{ID: m[1], Name: strings.TrimSpace(m[2]), Kind: kind})
	}
	return devices
}

func (l *DeviceLister) v4l2Devices() ([]Device, error) {
	nodes, err := filepath.Glob(filepath.Join(l.Root, "dev", "video*"))
	if err != nil {
		return nil, err
	}

	type node struct {
		index int
		base  string
	}
	var found []node
	for _, path := range nodes {
		base := filepath.Base(path)
		n, err := strconv.Atoi(strings.TrimPrefix(base, "video"))
		if err != nil {
			continue
		}
		found = append(found, node{index: n, base: base})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	devices := make([]Device, 0, len(found))
	for _, n := range found {
		name := n.base
		if data, err := os.ReadFile(filepath.Join(l.Root, "sys", "class", "video4linux", n.base, "name")); err == nil {
			if s := strings.TrimSpace(string(data)); s != "" {
				name = s
			}
		}
		devices = append(devices, Device{ID: "/dev/" + n.base, Name: name, Kind: VideoDevice})
	}
	return devices, nil
}

// alsaCard matches a /proc/asound/cards header line:
// " 0 [PCH            ]: HDA-Intel - HDA Intel PCH"
var alsaCard = regexp.MustCompile(`^\s*(\d+)\s+\[[^\]]*\]:\s+\S+\s+-\s+(.+)$`)

func (l *DeviceLister) alsaDevices() ([]Device, error) {
	data, err := os.ReadFile(filepath.Join(l.Root, "proc", "asound", "cards"))
	if os.IsNotExist(err) {
		return []Device{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ALSA cards: %w", err)
	}

	devices := []Device{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if m := alsaCard.FindStringSubmatch(scanner.Text()); m != nil {
			devices = append(devices, Device{ID: "hw:" + m[1], Name: strings.TrimSpace(m[2]), Kind: AudioDevice})
		}
	}
	return devices, nil
}
