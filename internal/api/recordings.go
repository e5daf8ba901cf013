package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/screenshot"
	"github.com/bryanchriswhite/FocusRecorder/internal/session"
	"github.com/bryanchriswhite/FocusRecorder/internal/store"
	"github.com/gorilla/websocket"
)

// targetRequest selects what to capture. Precedence: window, bounds,
// display, main display.
type targetRequest struct {
	WindowID  *uint32         `json:"window_id"`
	DisplayID *uint32         `json:"display_id"`
	Bounds    *capture.Bounds `json:"bounds"`
}

func (t targetRequest) target() capture.Target {
	return capture.ResolveTarget(t.WindowID, t.DisplayID, t.Bounds)
}

type startRequest struct {
	targetRequest

	// Config overrides individual fields of the configured defaults
	Config       json.RawMessage `json:"config"`
	WithWebcam   bool            `json:"with_webcam"`
	WebcamDevice string          `json:"webcam_device"`
	Name         string          `json:"name"`
}

type startResponse struct {
	Session   session.Snapshot `json:"session"`
	Recording *store.Recording `json:"recording,omitempty"`
}

type stopResponse struct {
	Result    session.Result   `json:"result"`
	Recording *store.Recording `json:"recording,omitempty"`
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}

	cfg := s.opts.Config.Get().Recording.RecordingConfig
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			badRequest(w, err)
			return
		}
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, err)
		return
	}

	target := req.target()
	snap, err := s.opts.Sessions.Start(r.Context(), session.StartRequest{
		Target:       target,
		Config:       cfg,
		WithWebcam:   req.WithWebcam,
		WebcamDevice: req.WebcamDevice,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := startResponse{Session: snap}
	if rec, ok := s.recordStart(req.Name, target, snap); ok {
		resp.Recording = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordStart stores metadata for a started session. Store failures are
// logged; the recording itself is already running.
func (s *Server) recordStart(name string, target capture.Target, snap session.Snapshot) (store.Recording, bool) {
	if s.opts.Store == nil {
		return store.Recording{}, false
	}
	log := logger.WithSession("api", snap.ID)

	if name == "" {
		name = "Recording " + snap.StartedAt.Format("2006-01-02 15:04:05")
	}
	rec, err := s.opts.Store.CreateRecording(store.NewRecording{Name: name, Target: target.String()})
	if err != nil {
		log.Error().Err(err).Msg("Failed to store recording")
		return store.Recording{}, false
	}

	update := store.UpdateRecording{
		SessionID:     &snap.ID,
		RecordingPath: &snap.Path,
	}
	if snap.WebcamPath != "" {
		update.WebcamPath = &snap.WebcamPath
	}
	rec, err = s.opts.Store.UpdateRecording(rec.ID, update)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store recording paths")
		return store.Recording{}, false
	}
	return rec, true
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	result, err := s.opts.Sessions.Stop(r.Context())
	if err != nil && result.SessionID == "" {
		writeError(w, err)
		return
	}

	rec, stored := s.recordStop(result)

	if err != nil {
		// The session ended but the primary capture did not stop cleanly
		writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Kind: kindFor(err), Result: &result})
		return
	}

	resp := stopResponse{Result: result}
	if stored {
		resp.Recording = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordStop(result session.Result) (store.Recording, bool) {
	if s.opts.Store == nil {
		return store.Recording{}, false
	}
	log := logger.WithSession("api", result.SessionID)

	rec, err := s.opts.Store.FindRecordingBySession(result.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("No stored recording for session")
		return store.Recording{}, false
	}

	status := store.StatusCompleted
	rec, err = s.opts.Store.UpdateRecording(rec.ID, store.UpdateRecording{
		Status:     &status,
		DurationMs: &result.DurationMs,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to update stored recording")
		return store.Recording{}, false
	}
	return rec, true
}

func (s *Server) handleCancelRecording(w http.ResponseWriter, r *http.Request) {
	id, err := s.opts.Sessions.Cancel(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if s.opts.Store != nil && id != "" {
		log := logger.WithSession("api", id)
		if rec, err := s.opts.Store.FindRecordingBySession(id); err == nil {
			if err := s.opts.Store.DeleteRecording(rec.ID); err != nil {
				log.Error().Err(err).Msg("Failed to delete stored recording")
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("Failed to look up stored recording")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "session_id": id})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Sessions.Status())
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeJSON(w, http.StatusOK, []store.Recording{})
		return
	}
	recs, err := s.opts.Store.ListRecordings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleRecordingEvents streams session events over a websocket, starting
// with the current status.
func (s *Server) handleRecordingEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.opts.Sessions.Subscribe()
	defer unsubscribe()

	// The client never sends; reading detects when it goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	initial := session.Event{Type: session.EventStatus, Session: s.opts.Sessions.Status()}
	if err := conn.WriteJSON(initial); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			return
		}
	}
}

type screenshotRequest struct {
	targetRequest
	Title         string   `json:"title"`
	ScaleFactor   *float32 `json:"scale_factor"`
	CaptureCursor *bool    `json:"capture_cursor"`
}

type screenshotResponse struct {
	Path          string            `json:"path"`
	ThumbnailPath string            `json:"thumbnail_path,omitempty"`
	Screenshot    *store.Screenshot `json:"screenshot,omitempty"`
}

func (s *Server) handleTakeScreenshot(w http.ResponseWriter, r *http.Request) {
	if s.opts.Screenshots == nil || s.opts.Paths == nil {
		writeError(w, capture.ErrPlatformNotSupported)
		return
	}

	var req screenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}

	cfg := s.opts.Config.Get().Screenshot
	if req.ScaleFactor != nil {
		cfg.ScaleFactor = *req.ScaleFactor
	}
	if req.CaptureCursor != nil {
		cfg.CaptureCursor = *req.CaptureCursor
	}

	target := req.target()
	path := s.opts.Paths.Screenshot()
	if err := s.opts.Screenshots.Capture(r.Context(), target, path, cfg); err != nil {
		writeError(w, err)
		return
	}

	log := logger.WithComponent("api")
	resp := screenshotResponse{Path: path}

	thumb := s.opts.Paths.Thumbnail(path)
	if err := screenshot.Thumbnail(path, thumb, screenshot.DefaultThumbnailWidth); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to create thumbnail")
	} else {
		resp.ThumbnailPath = thumb
	}

	if s.opts.Store != nil {
		title := req.Title
		if title == "" {
			title = "Screenshot " + time.Now().Format("2006-01-02 15:04:05")
		}
		shot, err := s.opts.Store.CreateScreenshot(store.NewScreenshot{
			Title:         title,
			ImagePath:     path,
			ThumbnailPath: resp.ThumbnailPath,
			Target:        target.String(),
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to store screenshot")
		} else {
			resp.Screenshot = &shot
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeJSON(w, http.StatusOK, []store.Screenshot{})
		return
	}
	shots, err := s.opts.Store.ListScreenshots()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shots)
}
