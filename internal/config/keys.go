package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides: recording.fps is read
// from FOCUSRECORDER_RECORDING_FPS.
const EnvPrefix = "FOCUSRECORDER"

type field struct {
	get func(c *Config) any
	set func(c *Config, value string) error
}

var fields = map[string]field{
	"server_port": {
		get: func(c *Config) any { return c.ServerPort },
		set: func(c *Config, v string) error { return setPort(&c.ServerPort, v) },
	},
	"log_level": {
		get: func(c *Config) any { return c.LogLevel },
		set: func(c *Config, v string) error { return setLogLevel(&c.LogLevel, v) },
	},
	"data_dir": {
		get: func(c *Config) any { return c.DataDir },
		set: func(c *Config, v string) error { c.DataDir = v; return nil },
	},
	"recording.width": {
		get: func(c *Config) any { return c.Recording.Width },
		set: func(c *Config, v string) error { return setUint32(&c.Recording.Width, v) },
	},
	"recording.height": {
		get: func(c *Config) any { return c.Recording.Height },
		set: func(c *Config, v string) error { return setUint32(&c.Recording.Height, v) },
	},
	"recording.fps": {
		get: func(c *Config) any { return c.Recording.FPS },
		set: func(c *Config, v string) error { return setUint32(&c.Recording.FPS, v) },
	},
	"recording.bitrate": {
		get: func(c *Config) any { return c.Recording.Bitrate },
		set: func(c *Config, v string) error { return setUint32(&c.Recording.Bitrate, v) },
	},
	"recording.keyframe_interval": {
		get: func(c *Config) any { return c.Recording.KeyframeInterval },
		set: func(c *Config, v string) error { return setUint32(&c.Recording.KeyframeInterval, v) },
	},
	"recording.codec": {
		get: func(c *Config) any { return c.Recording.Codec.String() },
		set: func(c *Config, v string) error {
			codec, err := capture.ParseCodec(v)
			if err != nil {
				return err
			}
			c.Recording.Codec = codec
			return nil
		},
	},
	"recording.capture_cursor": {
		get: func(c *Config) any { return c.Recording.CaptureCursor },
		set: func(c *Config, v string) error { return setBool(&c.Recording.CaptureCursor, v) },
	},
	"recording.capture_audio": {
		get: func(c *Config) any { return c.Recording.CaptureAudio },
		set: func(c *Config, v string) error { return setBool(&c.Recording.CaptureAudio, v) },
	},
	"recording.scale_factor": {
		get: func(c *Config) any { return c.Recording.ScaleFactor },
		set: func(c *Config, v string) error { return setScale(&c.Recording.ScaleFactor, v) },
	},
	"recording.stop_grace": {
		get: func(c *Config) any { return c.Recording.StopGrace.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid duration: %s (e.g. 3s, 500ms)", v)
			}
			c.Recording.StopGrace = d
			return nil
		},
	},
	"screenshot.scale_factor": {
		get: func(c *Config) any { return c.Screenshot.ScaleFactor },
		set: func(c *Config, v string) error { return setScale(&c.Screenshot.ScaleFactor, v) },
	},
	"screenshot.capture_cursor": {
		get: func(c *Config) any { return c.Screenshot.CaptureCursor },
		set: func(c *Config, v string) error { return setBool(&c.Screenshot.CaptureCursor, v) },
	},
	"tools.screencapture_path": {
		get: func(c *Config) any { return c.Tools.ScreencapturePath },
		set: func(c *Config, v string) error { c.Tools.ScreencapturePath = v; return nil },
	},
	"tools.ffmpeg_path": {
		get: func(c *Config) any { return c.Tools.FFmpegPath },
		set: func(c *Config, v string) error { c.Tools.FFmpegPath = v; return nil },
	},
	"webcam.device": {
		get: func(c *Config) any { return c.Webcam.Device },
		set: func(c *Config, v string) error { c.Webcam.Device = v; return nil },
	},
	"webcam.fps": {
		get: func(c *Config) any { return c.Webcam.FPS },
		set: func(c *Config, v string) error { return setPositiveInt(&c.Webcam.FPS, v) },
	},
	"webcam.width": {
		get: func(c *Config) any { return c.Webcam.Width },
		set: func(c *Config, v string) error { return setPositiveInt(&c.Webcam.Width, v) },
	},
	"webcam.height": {
		get: func(c *Config) any { return c.Webcam.Height },
		set: func(c *Config, v string) error { return setPositiveInt(&c.Webcam.Height, v) },
	},
}

// Keys lists every settable configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the effective value of key.
func (m *Manager) Value(key string) (any, error) {
	f, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
	return f.get(m.Get()), nil
}

// Set parses value for key, stores it and saves the file.
func (m *Manager) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("configuration key not found: %s", key)
	}

	m.mu.Lock()
	if m.config == nil {
		m.config = Defaults()
	}
	cfg := *m.config
	if err := f.set(&cfg, value); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = &cfg
	m.mu.Unlock()

	return m.Save()
}

// BindFlag makes flag override key when it is set on the command line.
func (m *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if _, ok := fields[key]; !ok {
		return fmt.Errorf("configuration key not found: %s", key)
	}
	if flag == nil {
		return fmt.Errorf("no flag to bind to %s", key)
	}
	return m.overrides.BindPFlag(key, flag)
}

func newOverrides() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyOverrides copies set flags and environment variables over cfg.
// Values that fail to parse are ignored.
func (m *Manager) applyOverrides(cfg *Config) {
	for key, f := range fields {
		if !m.overrides.IsSet(key) {
			continue
		}
		_ = f.set(cfg, m.overrides.GetString(key))
	}
}

func setPort(dst *int, v string) error {
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port number: %s", v)
	}
	*dst = port
	return nil
}

func setLogLevel(dst *string, v string) error {
	switch v {
	case "debug", "info", "warn", "error":
		*dst = v
		return nil
	}
	return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", v)
}

func setUint32(dst *uint32, v string) error {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return fmt.Errorf("invalid number: %s", v)
	}
	*dst = uint32(n)
	return nil
}

func setPositiveInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid number: %s", v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid boolean: %s (use: true or false)", v)
	}
	*dst = b
	return nil
}

func setScale(dst *float32, v string) error {
	f, err := strconv.ParseFloat(v, 32)
	if err != nil || f <= 0 {
		return fmt.Errorf("invalid scale factor: %s", v)
	}
	*dst = float32(f)
	return nil
}
