package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the HTTP API port when none is configured
const DefaultPort = 8090

// Config represents the application configuration
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	// DataDir holds recordings, screenshots and the metadata database.
	// Empty means the platform default.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Recording  RecordingConfig          `json:"recording" yaml:"recording"`
	Screenshot capture.ScreenshotConfig `json:"screenshot" yaml:"screenshot"`
	Tools      ToolsConfig              `json:"tools" yaml:"tools"`
	Webcam     WebcamConfig             `json:"webcam" yaml:"webcam"`
}

// RecordingConfig is the default encoder setup for new sessions plus the
// session's stop grace interval.
type RecordingConfig struct {
	capture.RecordingConfig `yaml:",inline"`
	StopGrace               time.Duration `json:"stop_grace" yaml:"stop_grace"`
}

// ToolsConfig locates the external capture programs. Empty means $PATH.
type ToolsConfig struct {
	ScreencapturePath string `json:"screencapture_path" yaml:"screencapture_path"`
	FFmpegPath        string `json:"ffmpeg_path" yaml:"ffmpeg_path"`
}

// WebcamConfig represents webcam capture configuration
type WebcamConfig struct {
	Device string `json:"device" yaml:"device"`
	FPS    int    `json:"fps" yaml:"fps"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// Manager handles configuration. The YAML file is the persisted layer;
// flags and FOCUSRECORDER_* environment variables bound through viper
// override it in Get without being written back.
type Manager struct {
	configPath string
	config     *Config
	overrides  *viper.Viper
	mu         sync.RWMutex
}

// DefaultConfigPath is ~/.config/focusrecorder/config.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "focusrecorder", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when empty, creating it
// with defaults if it does not exist.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: path,
		overrides:  newOverrides(),
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: DefaultPort,
		LogLevel:   "info",
		Recording: RecordingConfig{
			RecordingConfig: capture.DefaultRecordingConfig(),
			StopGrace:       3 * time.Second,
		},
		Screenshot: capture.DefaultScreenshotConfig(),
		Webcam: WebcamConfig{
			FPS:    30,
			Width:  1280,
			Height: 720,
		},
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	// Unset keys keep their defaults
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Recording.Validate(); err != nil {
		return fmt.Errorf("invalid recording config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the configuration with flag and environment
// overrides applied.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	m.applyOverrides(&cfg)
	return &cfg
}

// Stored returns a copy of the configuration as persisted, without
// overrides.
func (m *Manager) Stored() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().Err(err).Str("config_dir", configDir).Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to write config")
		return err
	}

	log.Debug().Str("path", m.configPath).Msg("Config saved")
	return nil
}

// Update replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Recording.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetPort returns the server port, overrides applied
func (m *Manager) GetPort() int {
	return m.Get().ServerPort
}

// GetLogLevel returns the log level, overrides applied
func (m *Manager) GetLogLevel() string {
	return m.Get().LogLevel
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
