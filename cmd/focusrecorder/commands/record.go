package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/session"
	"github.com/bryanchriswhite/FocusRecorder/internal/store"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a window, display or region",
	Long: `Record until interrupted or until --duration elapses, then stop and
finalize the file. A second interrupt while stopping gives up waiting for
the capture to finish writing.

Without a target the main display is recorded.`,
	Example: `  # Record the main display until Ctrl+C
  focusrecorder record

  # Record a window for 30 seconds with the webcam
  focusrecorder record --window 1234 --webcam --duration 30s

  # Record with a specific camera
  focusrecorder record --webcam --webcam-device /dev/video2

  # Record a region of display 2 as ProRes
  focusrecorder record --display 2 --region 0,0,1280,720 --codec prores`,
	RunE: runRecord,
}

var (
	recordTarget   targetFlags
	recordWebcam   bool
	recordCamera   string
	recordDuration time.Duration
	recordName     string
	recordCodec    string
	recordFPS      uint32
	recordAudio    bool
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordTarget.register(recordCmd.Flags())
	recordCmd.Flags().BoolVar(&recordWebcam, "webcam", false, "also record the webcam")
	recordCmd.Flags().StringVar(&recordCamera, "webcam-device", "", "camera to record with --webcam (see 'devices video')")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long (default: until interrupted)")
	recordCmd.Flags().StringVar(&recordName, "name", "", "name for the recording history")
	recordCmd.Flags().StringVar(&recordCodec, "codec", "", "video codec (h264, hevc, prores, prores422hq)")
	recordCmd.Flags().Uint32Var(&recordFPS, "fps", 0, "frames per second")
	recordCmd.Flags().BoolVar(&recordAudio, "audio", false, "capture system audio")
}

func runRecord(cmd *cobra.Command, args []string) error {
	target, err := recordTarget.resolve(cmd.Flags())
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{sessions: true, store: true})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	cfg, err := recordConfig(cmd, a.cfg.Recording.RecordingConfig)
	if err != nil {
		return err
	}

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	snap, err := a.sessions.Start(cmd.Context(), session.StartRequest{
		Target:       target,
		Config:       cfg,
		WithWebcam:   recordWebcam,
		WebcamDevice: recordCamera,
	})
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	historyID := storeStarted(a.store, recordName, target, snap)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recording %s to %s\n", snap.Target, snap.Path)
	if snap.WebcamPath != "" {
		fmt.Fprintf(out, "Webcam to %s\n", snap.WebcamPath)
	}
	if recordDuration > 0 {
		fmt.Fprintf(out, "Stopping after %v, press Ctrl+C to stop early\n", recordDuration)
	} else {
		fmt.Fprintln(out, "Press Ctrl+C to stop")
	}

	waitForStop(signals, recordDuration)

	// A second signal cancels the wait for finalization
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-signals:
			fmt.Fprintln(os.Stderr, "Not waiting for the capture to finish")
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(out, "Stopping...")
	result, stopErr := a.sessions.Stop(ctx)
	if result.SessionID != "" {
		storeStopped(a.store, historyID, result)
		printResult(out, result)
	}
	if stopErr != nil {
		return stopErr
	}
	return nil
}

// recordConfig applies the command's encoder flags over defaults.
func recordConfig(cmd *cobra.Command, cfg capture.RecordingConfig) (capture.RecordingConfig, error) {
	fs := cmd.Flags()
	if fs.Changed("codec") {
		codec, err := capture.ParseCodec(recordCodec)
		if err != nil {
			return cfg, err
		}
		cfg.Codec = codec
	}
	if fs.Changed("fps") {
		cfg.FPS = recordFPS
	}
	if fs.Changed("audio") {
		cfg.CaptureAudio = recordAudio
	}
	return cfg, cfg.Validate()
}

// waitForStop returns on the first signal or once d has elapsed.
func waitForStop(signals <-chan os.Signal, d time.Duration) {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-signals:
	case <-timeout:
	}
}

func printResult(out io.Writer, r session.Result) {
	fmt.Fprintf(out, "Saved %s (%s)\n", r.Path, (time.Duration(r.DurationMs) * time.Millisecond).Round(100*time.Millisecond))
	if r.WebcamPath != "" {
		fmt.Fprintf(out, "Saved %s\n", r.WebcamPath)
	}
}

// storeStarted records the new session in the history, returning the
// record id or "" when the history is unavailable.
func storeStarted(st *store.Store, name string, target capture.Target, snap session.Snapshot) string {
	if st == nil {
		return ""
	}
	log := logger.WithSession("record", snap.ID)

	if name == "" {
		name = "Recording " + snap.StartedAt.Format("2006-01-02 15:04:05")
	}
	rec, err := st.CreateRecording(store.NewRecording{Name: name, Target: target.String()})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to store recording")
		return ""
	}

	update := store.UpdateRecording{SessionID: &snap.ID, RecordingPath: &snap.Path}
	if snap.WebcamPath != "" {
		update.WebcamPath = &snap.WebcamPath
	}
	if _, err := st.UpdateRecording(rec.ID, update); err != nil {
		log.Warn().Err(err).Msg("Failed to store recording paths")
	}
	return rec.ID
}

func storeStopped(st *store.Store, id string, result session.Result) {
	if st == nil || id == "" {
		return
	}
	status := store.StatusCompleted
	if _, err := st.UpdateRecording(id, store.UpdateRecording{Status: &status, DurationMs: &result.DurationMs}); err != nil {
		logger.WithSession("record", result.SessionID).Warn().Err(err).Msg("Failed to update stored recording")
	}
}
