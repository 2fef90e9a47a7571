// Package api serves the local loopback status API. It is a read-mostly
// surface for dashboards and the CLI's status command, plus a couple of
// control endpoints that funnel into the daemon loop.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// AlertPrefs carries a partial update of the alert appearance settings; nil
// fields are left unchanged.
type AlertPrefs struct {
	CustomText  *string `json:"customText,omitempty"`
	CustomImage *string `json:"customImage,omitempty"`
	ToggleDim   bool    `json:"toggleDim,omitempty"`
}

// TimerUpdate reconfigures one engine's phase durations.
type TimerUpdate struct {
	WorkDurationSec int `json:"workDurationSec"`
	RestDurationSec int `json:"restDurationSec"`
}

// Backend is what the API needs from the daemon. Calls may come from any
// HTTP goroutine; the daemon serializes them onto its own loop.
type Backend interface {
	Session() domain.SessionSnapshot
	Timers() []domain.TimerSnapshot
	Usage() []domain.AppUsage
	ToggleFocus() domain.SessionSnapshot
	TestPopup()

	AddWhitelist(app string) domain.SessionSnapshot
	RemoveWhitelist(app string) (domain.SessionSnapshot, error)
	UpdateAlertPrefs(prefs AlertPrefs) domain.SessionSnapshot
	TimerCommand(kind domain.TimerKind, action string) ([]domain.TimerSnapshot, error)
	UpdateTimer(kind domain.TimerKind, upd TimerUpdate) ([]domain.TimerSnapshot, error)
	SetReminder(kind string, enabled bool) error
}

// Server is the loopback HTTP server.
type Server struct {
	backend Backend
	logger  *zap.Logger
	http    *http.Server
}

func NewServer(addr string, backend Backend, logger *zap.Logger) *Server {
	s := &Server{backend: backend, logger: logger}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/session", s.handleSession)
		r.Get("/timers", s.handleTimers)
		r.Get("/usage", s.handleUsage)
		r.Post("/focus/toggle", s.handleToggleFocus)
		r.Post("/popup/test", s.handleTestPopup)

		r.Post("/whitelist", s.handleAddWhitelist)
		r.Delete("/whitelist/{app}", s.handleRemoveWhitelist)
		r.Put("/alert", s.handleAlertPrefs)
		r.Post("/timers/{kind}/{action}", s.handleTimerCommand)
		r.Put("/timers/{kind}", s.handleTimerUpdate)
		r.Put("/reminders/{kind}", s.handleReminder)
	})
	return r
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is canceled. A closed listener is a clean exit.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("status api listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type statusResponse struct {
	Product string                 `json:"product"`
	Session domain.SessionSnapshot `json:"session"`
	Timers  []domain.TimerSnapshot `json:"timers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, statusResponse{
		Product: domain.ProductName,
		Session: s.backend.Session(),
		Timers:  s.backend.Timers(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.backend.Session())
}

func (s *Server) handleTimers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.backend.Timers())
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.backend.Usage())
}

func (s *Server) handleToggleFocus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.backend.ToggleFocus())
}

func (s *Server) handleTestPopup(w http.ResponseWriter, r *http.Request) {
	s.backend.TestPopup()
	w.WriteHeader(http.StatusNoContent)
}

type whitelistRequest struct {
	App string `json:"app"`
}

func (s *Server) handleAddWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.App == "" {
		s.writeError(w, http.StatusBadRequest, "body must carry a non-empty app name")
		return
	}
	s.writeJSON(w, s.backend.AddWhitelist(req.App))
}

func (s *Server) handleRemoveWhitelist(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	snap, err := s.backend.RemoveWhitelist(app)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) handleAlertPrefs(w http.ResponseWriter, r *http.Request) {
	var prefs AlertPrefs
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed alert preferences")
		return
	}
	s.writeJSON(w, s.backend.UpdateAlertPrefs(prefs))
}

func (s *Server) handleTimerCommand(w http.ResponseWriter, r *http.Request) {
	kind := domain.TimerKind(chi.URLParam(r, "kind"))
	action := chi.URLParam(r, "action")

	snaps, err := s.backend.TimerCommand(kind, action)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, snaps)
}

func (s *Server) handleTimerUpdate(w http.ResponseWriter, r *http.Request) {
	kind := domain.TimerKind(chi.URLParam(r, "kind"))
	var upd TimerUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed timer update")
		return
	}

	snaps, err := s.backend.UpdateTimer(kind, upd)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, snaps)
}

type reminderRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed reminder update")
		return
	}
	if err := s.backend.SetReminder(chi.URLParam(r, "kind"), req.Enabled); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("status api encode failed", zap.Error(err))
	}
}
