package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)
	return m, path
}

func TestNewManager_CreatesDefaults(t *testing.T) {
	m, path := newTestManager(t)

	require.FileExists(t, path)
	assert.Equal(t, path, m.GetConfigPath())
	assert.Equal(t, filepath.Dir(path), m.GetConfigDir())

	cfg := m.Get()
	assert.Equal(t, DefaultPort, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, capture.DefaultRecordingConfig(), cfg.Recording.RecordingConfig)
	assert.Equal(t, 3*time.Second, cfg.Recording.StopGrace)
	assert.Equal(t, capture.DefaultScreenshotConfig(), cfg.Screenshot)
}

func TestManager_SetPersists(t *testing.T) {
	m, path := newTestManager(t)

	require.NoError(t, m.Set("server_port", "9090"))
	require.NoError(t, m.Set("recording.codec", "h.264"))
	require.NoError(t, m.Set("recording.stop_grace", "5s"))
	require.NoError(t, m.Set("webcam.device", "/dev/video2"))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	cfg := reloaded.Get()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, capture.CodecH264, cfg.Recording.Codec)
	assert.Equal(t, 5*time.Second, cfg.Recording.StopGrace)
	assert.Equal(t, "/dev/video2", cfg.Webcam.Device)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "codec: h264")
	assert.Contains(t, string(data), "stop_grace: 5s")
}

func TestManager_SetRejectsBadValues(t *testing.T) {
	m, _ := newTestManager(t)

	tests := []struct {
		key   string
		value string
	}{
		{"server_port", "http"},
		{"server_port", "70000"},
		{"log_level", "verbose"},
		{"recording.fps", "0"},
		{"recording.codec", "vp9"},
		{"recording.capture_cursor", "maybe"},
		{"recording.scale_factor", "-1"},
		{"recording.stop_grace", "soon"},
		{"webcam.width", "-5"},
		{"nope", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			assert.Error(t, m.Set(tt.key, tt.value))
		})
	}

	assert.Equal(t, Defaults().ServerPort, m.Get().ServerPort)
}

func TestManager_Value(t *testing.T) {
	m, _ := newTestManager(t)

	v, err := m.Value("recording.codec")
	require.NoError(t, err)
	assert.Equal(t, "hevc", v)

	v, err = m.Value("recording.fps")
	require.NoError(t, err)
	assert.Equal(t, uint32(60), v)

	_, err = m.Value("missing")
	assert.Error(t, err)
}

func TestManager_EnvironmentOverrides(t *testing.T) {
	m, _ := newTestManager(t)

	t.Setenv("FOCUSRECORDER_RECORDING_FPS", "30")
	t.Setenv("FOCUSRECORDER_LOG_LEVEL", "debug")

	cfg := m.Get()
	assert.Equal(t, uint32(30), cfg.Recording.FPS)
	assert.Equal(t, "debug", cfg.LogLevel)

	// overrides are never written back
	assert.Equal(t, uint32(60), m.Stored().Recording.FPS)
}

func TestManager_FlagOverrides(t *testing.T) {
	m, _ := newTestManager(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	require.NoError(t, m.BindFlag("server_port", fs.Lookup("port")))

	assert.Equal(t, DefaultPort, m.GetPort(), "unset flags do not override")

	require.NoError(t, fs.Parse([]string{"--port", "9999"}))
	assert.Equal(t, 9999, m.GetPort())

	assert.Error(t, m.BindFlag("missing", fs.Lookup("port")))
	assert.Error(t, m.BindFlag("server_port", fs.Lookup("missing")))
}

func TestManager_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: 1234\nrecording:\n  fps: 24\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)
	cfg := m.Get()
	assert.Equal(t, 1234, cfg.ServerPort)
	assert.Equal(t, uint32(24), cfg.Recording.FPS)
	assert.Equal(t, capture.CodecHEVC, cfg.Recording.Codec)
	assert.Equal(t, uint32(1920), cfg.Recording.Width)
}

func TestManager_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recording:\n  fps: 0\n"), 0644))

	_, err := NewManager(path)
	assert.ErrorIs(t, err, capture.ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte(":::"), 0644))
	_, err = NewManager(path)
	assert.Error(t, err)
}

func TestKeys_Sorted(t *testing.T) {
	keys := Keys()
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "recording.stop_grace")
	assert.Contains(t, keys, "tools.ffmpeg_path")
}
