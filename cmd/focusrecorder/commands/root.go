package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/FocusRecorder/internal/config"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logFile   string
	logPretty bool
	logSink   *os.File

	rootCmd = &cobra.Command{
		Use:   "focusrecorder",
		Short: "FocusRecorder - Screen, window and webcam recording",
		Long: `FocusRecorder records a window, a display or a screen region, with an
optional webcam recording running alongside, and takes screenshots.

Features:
  • Native capture engine where the platform provides one
  • screencapture / ffmpeg fallback elsewhere
  • Window and display enumeration
  • Start, stop and cancel with guaranteed file finalization
  • Recording and screenshot history
  • REST API and WebSocket event stream`,
		SilenceUsage: true,
	}
)

func init() {
	// Assigned here rather than in the literal to avoid an initialization cycle
	// (initLogging -> loadConfig -> rootCmd).
	rootCmd.PersistentPreRunE = initLogging
	rootCmd.PersistentPostRunE = closeLogging

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/focusrecorder/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, fmt.Sprintf("server port (default is %d)", config.DefaultPort))
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for recordings, screenshots and history")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", true, "human-readable log output")
}

// flagBindings maps root flags onto configuration keys
var flagBindings = map[string]string{
	"server_port": "port",
	"log_level":   "log-level",
	"data_dir":    "data-dir",
}

// loadConfig opens the configuration with the root flags bound over it.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for key, flag := range flagBindings {
		if err := configMgr.BindFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	return configMgr, nil
}

func initLogging(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	level := configMgr.GetLogLevel()

	if logFile == "" {
		logger.Init(level, logPretty)
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logSink = f
	logger.InitWithWriter(level, logPretty, f)
	return nil
}

func closeLogging(cmd *cobra.Command, args []string) error {
	if logSink != nil {
		return logSink.Close()
	}
	return nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
