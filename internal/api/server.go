package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/capture/tools"
	"github.com/bryanchriswhite/FocusRecorder/internal/config"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/session"
	"github.com/bryanchriswhite/FocusRecorder/internal/store"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Sessions is the recording lifecycle the API drives.
type Sessions interface {
	Start(ctx context.Context, req session.StartRequest) (session.Snapshot, error)
	Stop(ctx context.Context) (session.Result, error)
	// Cancel returns the id of the session it cancelled
	Cancel(ctx context.Context) (string, error)
	Status() session.Snapshot
	Subscribe() (<-chan session.Event, func())
}

// Screenshots captures single frames.
type Screenshots interface {
	Capture(ctx context.Context, target capture.Target, path string, cfg capture.ScreenshotConfig) error
}

// Camera reports and requests camera access.
type Camera interface {
	CameraPresent(ctx context.Context) (bool, error)
	RequestAccess(ctx context.Context) (bool, error)
}

// Devices enumerates cameras and audio inputs.
type Devices interface {
	Devices(ctx context.Context, kind tools.DeviceKind) ([]tools.Device, error)
}

// WindowLister enumerates windows from a source other than the provider.
type WindowLister interface {
	ListWindows() ([]capture.WindowDescriptor, error)
}

// ScreenshotPaths names screenshot files.
type ScreenshotPaths interface {
	Screenshot() string
	Thumbnail(mediaPath string) string
}

// Metadata records recording and screenshot outcomes.
type Metadata interface {
	CreateRecording(n store.NewRecording) (store.Recording, error)
	UpdateRecording(id string, u store.UpdateRecording) (store.Recording, error)
	DeleteRecording(id string) error
	FindRecordingBySession(sessionID string) (store.Recording, error)
	ListRecordings() ([]store.Recording, error)
	CreateScreenshot(n store.NewScreenshot) (store.Screenshot, error)
	ListScreenshots() ([]store.Screenshot, error)
}

// Options wires a Server. Provider, Sessions and Config are required; the
// rest are optional and their endpoints degrade when absent.
type Options struct {
	Provider    capture.Provider
	Sessions    Sessions
	Screenshots Screenshots
	Paths       ScreenshotPaths
	Config      *config.Manager
	Store       Metadata
	Camera      Camera
	Devices     Devices
	X11         WindowLister
}

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Permissions
	api.HandleFunc("/permission", s.handlePermission).Methods("GET")
	api.HandleFunc("/permission/request", s.handleRequestPermission).Methods("POST")
	api.HandleFunc("/permission/camera", s.handleCameraPermission).Methods("GET")
	api.HandleFunc("/permission/camera/request", s.handleRequestCameraPermission).Methods("POST")

	// Enumeration
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")
	api.HandleFunc("/displays", s.handleListDisplays).Methods("GET")
	api.HandleFunc("/devices/{kind:video|audio}", s.handleListDevices).Methods("GET")

	// Recording lifecycle
	api.HandleFunc("/recordings", s.handleListRecordings).Methods("GET")
	api.HandleFunc("/recordings/start", s.handleStartRecording).Methods("POST")
	api.HandleFunc("/recordings/stop", s.handleStopRecording).Methods("POST")
	api.HandleFunc("/recordings/cancel", s.handleCancelRecording).Methods("POST")
	api.HandleFunc("/recordings/status", s.handleRecordingStatus).Methods("GET")
	api.HandleFunc("/recordings/events", s.handleRecordingEvents)

	// Screenshots
	api.HandleFunc("/screenshots", s.handleListScreenshots).Methods("GET")
	api.HandleFunc("/screenshots", s.handleTakeScreenshot).Methods("POST")
}

// Handler returns the router wrapped with CORS headers.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves the API on port until ctx is done, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	log := logger.WithComponent("api")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://localhost"+srv.Addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   Version,
		"provider":  s.opts.Provider.Name(),
		"native":    s.opts.Provider.Native(),
		"recording": s.opts.Sessions.Status().Status != session.Idle,
	})
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"granted":  s.opts.Provider.CheckPermission(),
		"provider": s.opts.Provider.Name(),
	})
}

func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	s.opts.Provider.RequestPermission()
	s.handlePermission(w, r)
}

func (s *Server) handleCameraPermission(w http.ResponseWriter, r *http.Request) {
	if s.opts.Camera == nil {
		writeJSON(w, http.StatusOK, map[string]any{"available": false, "present": false})
		return
	}
	present, err := s.opts.Camera.CameraPresent(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "present": present})
}

func (s *Server) handleRequestCameraPermission(w http.ResponseWriter, r *http.Request) {
	if s.opts.Camera == nil {
		writeError(w, capture.ErrPlatformNotSupported)
		return
	}
	granted, err := s.opts.Camera.RequestAccess(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"granted": granted})
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	lister := WindowLister(s.opts.Provider)
	if r.URL.Query().Get("source") == "x11" {
		if s.opts.X11 == nil {
			writeError(w, capture.ErrPlatformNotSupported)
			return
		}
		lister = s.opts.X11
	}

	windows, err := lister.ListWindows()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleListDisplays(w http.ResponseWriter, r *http.Request) {
	displays, err := s.opts.Provider.ListDisplays()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, displays)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.opts.Devices == nil {
		writeJSON(w, http.StatusOK, []tools.Device{})
		return
	}
	kind := tools.DeviceKind(mux.Vars(r)["kind"])
	devices, err := s.opts.Devices.Devices(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

type errorBody struct {
	Error  string          `json:"error"`
	Kind   string          `json:"kind"`
	Result *session.Result `json:"result,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Kind: kindFor(err)})
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: capture.KindInvalidConfig.String()})
}

// statusFor maps capture errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, capture.ErrRecordingInProgress), errors.Is(err, capture.ErrNoActiveRecording):
		return http.StatusConflict
	case errors.Is(err, capture.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, capture.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrWindowNotFound), errors.Is(err, capture.ErrDisplayNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrPlatformNotSupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func kindFor(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return "not_found"
	}
	return capture.KindOf(err).String()
}
