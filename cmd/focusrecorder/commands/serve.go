package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/FocusRecorder/internal/api"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FocusRecorder server",
	Long: `Start the FocusRecorder HTTP server.

The server exposes the recording lifecycle, screenshots, enumeration and
permissions as a REST API, and streams session events over a WebSocket.`,
	Example: `  # Start server on default port
  focusrecorder serve

  # Start server on custom port
  focusrecorder serve --port 9090

  # Start with specific config file
  focusrecorder serve --config /path/to/config.yaml

  # Start with debug logging
  focusrecorder serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	a, err := newApp(appOptions{sessions: true, store: true})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	opts := api.Options{
		Provider:    a.provider,
		Sessions:    a.sessions,
		Screenshots: a.screenshots,
		Paths:       a.paths,
		Config:      a.configMgr,
		Store:       a.store,
		Devices:     a.devices(),
	}
	if a.camera != nil {
		opts.Camera = a.camera
	}
	if a.x11 != nil {
		opts.X11 = a.x11
	}
	server := api.NewServer(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("config", a.configMgr.GetConfigPath()).
		Str("data_dir", a.paths.DataDir()).
		Str("provider", a.provider.Name()).
		Int("port", a.cfg.ServerPort).
		Msg("FocusRecorder is running, press Ctrl+C to stop")

	if err := server.Start(ctx, a.cfg.ServerPort); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Shutting down gracefully")
	return nil
}
