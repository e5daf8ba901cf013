package commands

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/capture/tools"
	"github.com/bryanchriswhite/FocusRecorder/internal/config"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/paths"
	"github.com/bryanchriswhite/FocusRecorder/internal/portal"
	"github.com/bryanchriswhite/FocusRecorder/internal/screenshot"
	"github.com/bryanchriswhite/FocusRecorder/internal/session"
	"github.com/bryanchriswhite/FocusRecorder/internal/store"
	"github.com/bryanchriswhite/FocusRecorder/internal/window"
)

const databaseName = "focusrecorder.db"

// app holds the components a command needs. Optional platform
// integrations are nil when unavailable.
type app struct {
	configMgr *config.Manager
	cfg       *config.Config

	provider    capture.Provider
	paths       *paths.Resolver
	store       *store.Store
	screenshots *screenshot.Service
	sessions    *session.Manager

	x11    *window.X11Locator
	camera *portal.Camera
}

type appOptions struct {
	sessions bool
	store    bool

	// camera connects the desktop portal; implied by sessions
	camera bool
}

func newApp(opts appOptions) (*app, error) {
	log := logger.WithComponent("app")

	configMgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := configMgr.Get()

	a := &app{
		configMgr: configMgr,
		cfg:       cfg,
		provider:  capture.SelectPlatform(),
	}

	if a.paths, err = paths.NewResolver(cfg.DataDir); err != nil {
		a.Close()
		return nil, err
	}

	if runtime.GOOS == "linux" {
		if x11, err := window.NewX11Locator(); err != nil {
			log.Debug().Err(err).Msg("X11 not available")
		} else {
			a.x11 = x11
		}
	}
	a.screenshots = screenshot.NewService(a.screenshotProvider())

	if opts.store {
		if a.store, err = store.Open(filepath.Join(a.paths.DataDir(), databaseName)); err != nil {
			a.Close()
			return nil, err
		}
	}

	if (opts.camera || opts.sessions) && runtime.GOOS == "linux" {
		if camera, err := portal.NewCamera(); err != nil {
			log.Debug().Err(err).Msg("Camera portal not available")
		} else {
			a.camera = camera
		}
	}

	if opts.sessions {
		a.sessions, err = session.NewManager(session.Options{
			Launcher:  a.launcher(),
			Paths:     a.paths,
			Webcam:    a.webcam(),
			StopGrace: cfg.Recording.StopGrace,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	log.Debug().
		Str("provider", a.provider.Name()).
		Str("data_dir", a.paths.DataDir()).
		Bool("x11", a.x11 != nil).
		Msg("Components initialized")

	return a, nil
}

// launcher records through the native engine when present, otherwise
// through the platform's capture tool.
func (a *app) launcher() session.Launcher {
	if a.provider.Native() {
		return capture.NativeLauncher{Provider: a.provider}
	}
	rec := &tools.ScreenRecorder{
		ScreencapturePath: a.cfg.Tools.ScreencapturePath,
		FFmpegPath:        a.cfg.Tools.FFmpegPath,
	}
	if a.x11 != nil {
		rec.Locator = a.x11
	}
	return rec
}

// screenshotProvider reads from the X server when there is no native engine.
func (a *app) screenshotProvider() capture.Provider {
	if a.provider.Native() || a.x11 == nil {
		return a.provider
	}
	return window.NewX11Screenshots(a.provider, a.x11)
}

func (a *app) webcam() session.WebcamSpawner {
	cam := &tools.Webcam{
		FFmpegPath: a.cfg.Tools.FFmpegPath,
		Device:     a.cfg.Webcam.Device,
		FPS:        a.cfg.Webcam.FPS,
		Width:      a.cfg.Webcam.Width,
		Height:     a.cfg.Webcam.Height,
	}
	if a.camera != nil {
		cam.Probe = a.camera
	}
	return cam
}

func (a *app) devices() *tools.DeviceLister {
	return &tools.DeviceLister{FFmpegPath: a.cfg.Tools.FFmpegPath}
}

// windowLister returns the source for `windows --source`.
func (a *app) windowLister(source string) (interface {
	ListWindows() ([]capture.WindowDescriptor, error)
}, error) {
	switch source {
	case "", "native":
		return a.provider, nil
	case "x11":
		if a.x11 == nil {
			return nil, capture.ErrPlatformNotSupported
		}
		return a.x11, nil
	default:
		return nil, capture.InvalidConfig("unknown window source: " + source)
	}
}

// Close stops any active recording and releases everything the app opened.
func (a *app) Close() {
	log := logger.WithComponent("app")

	if a.sessions != nil {
		if err := a.sessions.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to stop recording on shutdown")
		}
	}
	if a.provider != nil {
		a.provider.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.x11 != nil {
		a.x11.Close()
	}
	if a.camera != nil {
		a.camera.Close()
	}
}
