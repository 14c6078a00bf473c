package viewserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/werewolf/go/internal/action"
	"github.com/mcdev12/werewolf/go/internal/connection"
	"github.com/mcdev12/werewolf/go/internal/ledger"
	"github.com/mcdev12/werewolf/go/internal/models"
	"github.com/mcdev12/werewolf/go/internal/phaseclock"
	"github.com/mcdev12/werewolf/go/internal/statesync"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// ViewSource provides the latest merged view
type ViewSource interface {
	Latest() statesync.View
}

// ActionSource provides what the player can currently do
type ActionSource interface {
	State() action.State
	Ledger() ledger.Ledger
}

// ClockSource provides the current phase countdown
type ClockSource interface {
	Reading() phaseclock.Reading
}

// ViewResponse is the body of GET /api/view
type ViewResponse struct {
	statesync.View
	Clock            phaseclock.Reading `json:"clock"`
	Action           action.State       `json:"action"`
	Ledger           []ledger.Entry     `json:"ledger"`
	PackVotes        []models.PackVote  `json:"pack_votes,omitempty"`
	Chat             []models.ChatLine  `json:"chat"`
	Outcome          *models.Outcome    `json:"outcome,omitempty"`
	SinceLastSuccess string             `json:"since_last_success"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status           connection.Status `json:"status"`
	LastSuccess      *time.Time        `json:"last_success,omitempty"`
	SinceLastSuccess string            `json:"since_last_success"`
	Error            string            `json:"error,omitempty"`
}

// Server exposes the latest view read-only over HTTP for local tools
type Server struct {
	views   ViewSource
	actions ActionSource
	phase   ClockSource
	clock   clockwork.Clock
}

func New(views ViewSource, actions ActionSource, phase ClockSource, clock clockwork.Clock) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		views:   views,
		actions: actions,
		phase:   phase,
		clock:   clock,
	}
}

// Handler returns the routes wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/view", s.HandleGetView)
	mux.HandleFunc("/health", s.HandleHealth)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// HandleGetView handles GET /api/view
func (s *Server) HandleGetView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := s.views.Latest()
	resp := ViewResponse{
		View:             view,
		Chat:             view.Game.ChatLines(),
		PackVotes:        models.PackVotes(view.Game, view.Player),
		SinceLastSuccess: connection.FormatSince(view.Connection.LastSuccess, s.clock.Now()),
	}
	if s.phase != nil {
		resp.Clock = s.phase.Reading()
	}
	if s.actions != nil {
		resp.Action = s.actions.State()
		resp.Ledger = s.actions.Ledger().Entries()
	}
	if outcome, ok := models.GameOutcome(view.Game, view.Player); ok {
		resp.Outcome = &outcome
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /health. It answers 503 while disconnected.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.views.Latest().Connection

	resp := HealthResponse{
		Status:           state.Status,
		SinceLastSuccess: connection.FormatSince(state.LastSuccess, s.clock.Now()),
		Error:            state.Error,
	}
	if !state.LastSuccess.IsZero() {
		last := state.LastSuccess
		resp.LastSuccess = &last
	}

	code := http.StatusOK
	if state.Status == connection.StatusDisconnected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("view server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("view server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
