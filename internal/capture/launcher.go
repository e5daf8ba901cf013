package capture

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/process"
)

// NativeLauncher starts recordings on a Provider and exposes each one as a
// process.Process: Terminate stops and finalizes, Kill cancels.
type NativeLauncher struct {
	Provider Provider
}

func (l NativeLauncher) Extension(cfg RecordingConfig) string {
	return cfg.Codec.Extension()
}

func (l NativeLauncher) Launch(ctx context.Context, target Target, outputPath string, cfg RecordingConfig) (process.Process, error) {
	p := l.Provider
	log := logger.WithComponent("native-launcher")

	var err error
	switch target.Kind {
	case TargetWindow:
		if w, ok := l.findWindow(target.WindowID); ok && w.Width > 0 && w.Height > 0 {
			cfg.Width, cfg.Height = uint32(w.Width), uint32(w.Height)
		}
		err = p.StartWindowRecording(target.WindowID, outputPath, cfg)

	case TargetDisplay:
		if d, ok := l.findDisplay(target.DisplayID); ok {
			cfg.Width, cfg.Height = displaySize(d, cfg)
		}
		err = p.StartDisplayRecording(target.DisplayID, outputPath, cfg)

	case TargetRegion:
		displayID := target.DisplayID
		if displayID == 0 {
			main, mainErr := l.mainDisplay()
			if mainErr != nil {
				return nil, mainErr
			}
			displayID = main.ID
		}
		err = p.StartRegionRecording(displayID, target.Region, outputPath, cfg)

	default:
		main, mainErr := l.mainDisplay()
		if mainErr != nil {
			return nil, mainErr
		}
		cfg.Width, cfg.Height = displaySize(main, cfg)
		err = p.StartDisplayRecording(main.ID, outputPath, cfg)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Str("target", target.String()).Str("path", outputPath).Msg("Native recording launched")
	return &nativeRecording{provider: p, done: make(chan struct{})}, nil
}

func (l NativeLauncher) findWindow(id uint32) (WindowDescriptor, bool) {
	windows, err := l.Provider.ListWindows()
	if err != nil {
		return WindowDescriptor{}, false
	}
	for _, w := range windows {
		if w.ID == id {
			return w, true
		}
	}
	return WindowDescriptor{}, false
}

func (l NativeLauncher) findDisplay(id uint32) (DisplayDescriptor, bool) {
	displays, err := l.Provider.ListDisplays()
	if err != nil {
		return DisplayDescriptor{}, false
	}
	for _, d := range displays {
		if d.ID == id {
			return d, true
		}
	}
	return DisplayDescriptor{}, false
}

func (l NativeLauncher) mainDisplay() (DisplayDescriptor, error) {
	displays, err := l.Provider.ListDisplays()
	if err != nil {
		return DisplayDescriptor{}, err
	}
	main, ok := MainDisplay(displays)
	if !ok {
		return DisplayDescriptor{}, RecordingFailed("no displays found")
	}
	return main, nil
}

func displaySize(d DisplayDescriptor, cfg RecordingConfig) (uint32, uint32) {
	if d.Width <= 0 || d.Height <= 0 {
		return cfg.Width, cfg.Height
	}
	return uint32(d.Width), uint32(d.Height)
}

// nativeRecording runs inside this process, so PID is our own.
type nativeRecording struct {
	provider Provider
	done     chan struct{}
	once     sync.Once
}

func (r *nativeRecording) PID() int {
	return os.Getpid()
}

func (r *nativeRecording) Done() <-chan struct{} {
	return r.done
}

// Terminate finalizes the file. If the native side refuses, the recording
// is cancelled so the engine is free for the next session.
func (r *nativeRecording) Terminate() error {
	_, err := r.provider.StopRecording()
	if err != nil {
		if cancelErr := r.provider.CancelRecording(); cancelErr != nil && !errors.Is(cancelErr, ErrNoRecording) {
			logger.WithComponent("native-launcher").Warn().Err(cancelErr).Msg("Cancel after failed stop also failed")
		}
	}
	r.once.Do(func() { close(r.done) })
	return err
}

func (r *nativeRecording) Kill() error {
	err := r.provider.CancelRecording()
	r.once.Do(func() { close(r.done) })
	if errors.Is(err, ErrNoRecording) {
		return nil
	}
	return err
}
