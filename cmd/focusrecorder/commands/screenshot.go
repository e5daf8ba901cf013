package commands

import (
	"fmt"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/screenshot"
	"github.com/bryanchriswhite/FocusRecorder/internal/store"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a window, display or region to a PNG",
	Long: `Capture a single frame. Without a target the main display is captured.

Screenshots written to the data directory get a thumbnail and an entry in
the history; with --output the file is written where asked and nothing is
recorded.`,
	Example: `  # Capture the main display
  focusrecorder screenshot

  # Capture a window to a given file
  focusrecorder screenshot --window 1234 -o window.png

  # Capture a region with the cursor
  focusrecorder screenshot --region 100,100,800,600 --cursor`,
	RunE: runScreenshot,
}

var (
	screenshotTarget targetFlags
	screenshotOutput string
	screenshotCursor bool
	screenshotScale  float32
	screenshotTitle  string
)

func init() {
	rootCmd.AddCommand(screenshotCmd)

	screenshotTarget.register(screenshotCmd.Flags())
	screenshotCmd.Flags().StringVarP(&screenshotOutput, "output", "o", "", "output file (default: the data directory)")
	screenshotCmd.Flags().BoolVar(&screenshotCursor, "cursor", false, "include the cursor")
	screenshotCmd.Flags().Float32Var(&screenshotScale, "scale", 0, "scale factor (default from config)")
	screenshotCmd.Flags().StringVar(&screenshotTitle, "title", "", "title for the screenshot history")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	target, err := screenshotTarget.resolve(cmd.Flags())
	if err != nil {
		return err
	}

	history := screenshotOutput == ""
	a, err := newApp(appOptions{store: history})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	cfg := a.cfg.Screenshot
	if cmd.Flags().Changed("cursor") {
		cfg.CaptureCursor = screenshotCursor
	}
	if cmd.Flags().Changed("scale") {
		cfg.ScaleFactor = screenshotScale
	}

	path := screenshotOutput
	if history {
		path = a.paths.Screenshot()
	}

	if err := a.screenshots.Capture(cmd.Context(), target, path, cfg); err != nil {
		return fmt.Errorf("failed to capture %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)

	if !history {
		return nil
	}

	log := logger.WithComponent("screenshot")
	thumb := a.paths.Thumbnail(path)
	if err := screenshot.Thumbnail(path, thumb, screenshot.DefaultThumbnailWidth); err != nil {
		log.Warn().Err(err).Msg("Failed to create thumbnail")
		thumb = ""
	}

	title := screenshotTitle
	if title == "" {
		title = "Screenshot " + time.Now().Format("2006-01-02 15:04:05")
	}
	if _, err := a.store.CreateScreenshot(store.NewScreenshot{
		Title:         title,
		ImagePath:     path,
		ThumbnailPath: thumb,
		Target:        target.String(),
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to store screenshot")
	}
	return nil
}
