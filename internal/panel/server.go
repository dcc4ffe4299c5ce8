// Package panel serves the team panel: a small local web page with the same
// content as the tree view, plus a JSON API the page talks to.
//
// ROUTES:
//
//	GET  /              → panel page (HTML, nonce-guarded inline script)
//	GET  /api/state     → current presence state (JSON)
//	POST /api/messages  → page message, validated and turned into a command
//	GET  /metrics       → Prometheus metrics
//
// The panel is a presence.Renderer: every render replaces the state it
// serves. It never changes presence state itself; messages become commands
// on the channel the app loop dispatches from.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/middleware"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/presence"
	"github.com/sakif/teamsync/internal/ui"
)

// maxMessageBytes bounds a posted message body.
const maxMessageBytes = 16 << 10

// State is the JSON the page renders from. Absent values are null, as the
// page script expects.
type State struct {
	Version         uint64                     `json:"version"`
	Title           string                     `json:"title"`
	IsLoggedIn      bool                       `json:"isLoggedIn"`
	Username        *string                    `json:"username"`
	AvatarURL       *string                    `json:"avatarUrl"`
	TeamName        *string                    `json:"teamName"`
	InviteCode      *string                    `json:"inviteCode"`
	CurrentMemberID *string                    `json:"currentMemberId"`
	Members         []model.MemberWithActivity `json:"members"`
	Context         ui.ContextKeys             `json:"context"`
}

// Panel is the HTTP surface.
type Panel struct {
	router   *chi.Mux
	commands chan<- presence.Command
	logger   *slog.Logger
	page     *template.Template

	mu       sync.RWMutex
	snapshot presence.Snapshot
	version  uint64
}

// New builds the router. Accepted messages are sent to commands.
func New(commands chan<- presence.Command, logger *slog.Logger) *Panel {
	p := &Panel{
		router:   chi.NewRouter(),
		commands: commands,
		logger:   logger,
		page:     template.Must(template.New("panel").Parse(pageHTML)),
	}

	p.router.Use(chimiddleware.RequestID)
	p.router.Use(chimiddleware.Recoverer)
	p.router.Use(middleware.Logger(logger))

	p.router.With(WithNonce).Get("/", p.handlePage)
	p.router.Route("/api", func(r chi.Router) {
		r.Get("/state", p.handleState)
		r.Post("/messages", p.handleMessage)
	})
	p.router.Handle("/metrics", promhttp.Handler())
	return p
}

func (p *Panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

// Render implements presence.Renderer.
func (p *Panel) Render(s presence.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = s
	p.version++
}

// State returns the payload for the last rendered snapshot.
func (p *Panel) State() State {
	p.mu.RLock()
	s, version := p.snapshot, p.version
	p.mu.RUnlock()

	members := s.Members
	if members == nil {
		members = []model.MemberWithActivity{}
	}
	return State{
		Version:         version,
		Title:           ui.Title(s),
		IsLoggedIn:      s.LoggedIn,
		Username:        nullable(s.Username),
		AvatarURL:       nullable(s.AvatarURL),
		TeamName:        nullable(s.TeamName),
		InviteCode:      nullable(s.InviteCode),
		CurrentMemberID: nullable(s.MemberID),
		Members:         members,
		Context:         ui.KeysFor(s),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (p *Panel) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.State())
}

// handleMessage validates a page message before anything reaches the
// coordinator. "ready" is answered with the current state.
//
// HTTP: POST /api/messages
// REQUEST BODY: {"type": "saveStatus", "status": "reviewing the parser"}
func (p *Panel) handleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		p.logger.Warn("invalid panel message", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	cmd, ok, err := msg.ToCommand()
	if err != nil {
		p.logger.Debug("panel message rejected",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, p.State())
		return
	}

	select {
	case p.commands <- cmd:
		writeJSON(w, http.StatusAccepted, map[string]string{"accepted": string(cmd.Kind)})
	case <-r.Context().Done():
		p.logger.Warn("panel message dropped", slog.String("type", msg.Type))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "request cancelled"})
	}
}

func (p *Panel) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Nonce string }{Nonce: NonceFromContext(r.Context())}
	if err := p.page.Execute(w, data); err != nil {
		p.logger.Error("failed to render panel page", slog.String("error", err.Error()))
	}
}

// ListenAndServe serves the panel on addr until ctx is done, then shuts the
// server down, giving in-flight requests five seconds to finish.
func (p *Panel) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      p,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		p.logger.Info("panel listening", slog.String("url", fmt.Sprintf("http://%s", addr)))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("panel server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("panel shutdown: %w", err)
		}
		return nil
	}
}
