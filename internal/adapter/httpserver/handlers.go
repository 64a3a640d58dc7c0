package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/configstore"
	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/hintsession"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-code-mentor/internal/usecase"
)

// Server holds handler dependencies.
type Server struct {
	dispatcher *usecase.Dispatcher
	limiter    *ratelimiter.SlidingWindow
	sessions   *hintsession.Manager
	settings   *configstore.Memory
	maxBody    int64
}

// NewServer constructs the HTTP server adapter.
func NewServer(d *usecase.Dispatcher, l *ratelimiter.SlidingWindow, s *hintsession.Manager, cs *configstore.Memory, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Server{dispatcher: d, limiter: l, sessions: s, settings: cs, maxBody: maxBody}
}

// DispatchHandler accepts the request envelope and returns the result or
// error envelope.
func (s *Server) DispatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

		var env domain.Envelope
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
		if err := dec.Decode(&env); err != nil {
			writeError(w, fmt.Errorf("%w: body is not a JSON object", domain.ErrMalformedRequest))
			return
		}

		// Header values fill envelope fields the surface left empty; the
		// browser-set Origin header is the trustworthy one.
		if env.Origin == "" {
			env.Origin = r.Header.Get("Origin")
		}
		env.Origin = SanitizeString(env.Origin)
		if env.TabID == "" {
			env.TabID = r.Header.Get("X-Tab-Id")
		}
		env.TabID = SanitizeTabID(env.TabID)

		res, err := s.dispatcher.Dispatch(r.Context(), env)
		if err != nil {
			LoggerFrom(r).Warn("dispatch failed",
				slog.String("type", env.Type),
				slog.String("tab_id", env.TabID),
				slog.Any("error", err))
			writeError(w, err)
			return
		}
		observability.HintSessionsActive.Set(float64(s.sessions.ActiveSessions()))
		writeResult(w, res)
	}
}

// TabCloseHandler drops all per-tab state: rate windows, hint sessions and
// saved settings.
func (s *Server) TabCloseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID := SanitizeTabID(chi.URLParam(r, "id"))
		if tabID == "" {
			writeError(w, fmt.Errorf("%w: missing tab id", domain.ErrInvalidPayload))
			return
		}
		s.limiter.CleanupTab(tabID)
		s.sessions.DropTab(tabID)
		s.settings.Drop(tabID)
		LoggerFrom(r).Info("tab state dropped", slog.String("tab_id", tabID))
		writeResult(w, map[string]bool{"closed": true})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// ReadyzHandler reports readiness. All state is in-process, so readiness
// follows liveness.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
