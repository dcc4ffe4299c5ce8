package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teamsync/internal/apperror"
)

const (
	// DefaultCallbackPort is the fixed local port registered as the OAuth
	// App's callback URL.
	DefaultCallbackPort = 54321

	// DefaultLoginTimeout bounds how long a sign-in waits for the redirect.
	DefaultLoginTimeout = 120 * time.Second
)

// CallbackParams is what the browser handed back: either an authorization
// code or, for token-in-fragment redirects, an access token.
type CallbackParams struct {
	Code        string
	AccessToken string
}

// CallbackFunc completes a sign-in from the callback parameters. Its error is
// shown on the browser page and returned from Await.
type CallbackFunc func(ctx context.Context, params CallbackParams) error

// CallbackServer is a one-shot local HTTP listener for the OAuth redirect.
//
// ROUTES:
//   - GET  /callback?code=...&state=...  → code flow
//   - GET  /callback                     → serves a page that re-posts the URL fragment
//   - POST /callback/token               → fragment flow (form: access_token, state)
type CallbackServer struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCallbackServer creates a CallbackServer listening on addr when Await runs.
// A non-positive timeout selects DefaultLoginTimeout.
func NewCallbackServer(addr string, timeout time.Duration, logger *slog.Logger) *CallbackServer {
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}
	return &CallbackServer{addr: addr, timeout: timeout, logger: logger}
}

// Await listens for one successful callback carrying state.
//
// ready is called once the listener is up, with the base URL it serves on;
// callers open the browser from there. complete runs for the first request
// with a matching state; later ones are turned away without running it. Await returns complete's result, an
// apperror.ErrTimeout when nothing arrives in time, or ctx's error. The
// listener is shut down on every path.
func (s *CallbackServer) Await(ctx context.Context, state string, ready func(baseURL string) error, complete CallbackFunc) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return apperror.Remote("could not start the sign-in listener", err)
	}

	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) {
		once.Do(func() { done <- err })
	}

	var claimed atomic.Bool
	claim := func() bool { return claimed.CompareAndSwap(false, true) }

	srv := &http.Server{
		Handler:           s.routes(ctx, state, claim, complete, finish),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			finish(apperror.Remote("sign-in listener stopped", err))
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("callback listener shutdown", slog.String("error", err.Error()))
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	if err := ready(fmt.Sprintf("http://localhost:%d", port)); err != nil {
		return err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return apperror.Timeout("sign-in timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CallbackServer) routes(ctx context.Context, state string, claim func() bool, complete CallbackFunc, finish func(error)) http.Handler {
	r := chi.NewRouter()

	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if errParam := q.Get("error"); errParam != "" {
			if q.Get("state") != state {
				http.Error(w, "invalid OAuth state", http.StatusBadRequest)
				return
			}
			s.logger.Info("sign-in denied", slog.String("error", errParam))
			finish(apperror.Remote("sign-in was cancelled", errors.New(errParam)))
			writePage(w, http.StatusOK, "Sign-in was cancelled. You can close this tab.")
			return
		}

		code := q.Get("code")
		if code == "" {
			// The token, if any, is in the URL fragment, which never reaches us.
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(fragmentPage))
			return
		}

		if q.Get("state") != state {
			s.logger.Warn("sign-in callback: state mismatch")
			http.Error(w, "invalid OAuth state", http.StatusBadRequest)
			return
		}

		s.settle(ctx, w, CallbackParams{Code: code}, claim, complete, finish)
	})

	r.Post("/callback/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("state") != state {
			s.logger.Warn("sign-in token post: state mismatch")
			http.Error(w, "invalid OAuth state", http.StatusBadRequest)
			return
		}
		token := r.PostForm.Get("access_token")
		if token == "" {
			http.Error(w, "missing access token", http.StatusBadRequest)
			return
		}

		s.settle(ctx, w, CallbackParams{AccessToken: token}, claim, complete, finish)
	})

	return r
}

// settle runs complete for the first valid callback and reports the outcome
// to both the browser and Await.
func (s *CallbackServer) settle(ctx context.Context, w http.ResponseWriter, params CallbackParams, claim func() bool, complete CallbackFunc, finish func(error)) {
	if !claim() {
		s.logger.Info("sign-in callback repeated; ignoring")
		writePage(w, http.StatusConflict, "This sign-in was already handled. You can close this tab.")
		return
	}
	err := complete(ctx, params)
	finish(err)
	if err != nil {
		s.logger.Error("sign-in callback failed", slog.String("error", err.Error()))
		writePage(w, http.StatusInternalServerError, "Sign-in failed. Return to teamsync and try again.")
		return
	}
	writePage(w, http.StatusOK, "Signed in to teamsync. You can close this tab.")
}

func writePage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

const fragmentPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>teamsync</title></head>
<body><p>Completing sign-in&hellip;</p>
<script>
const p = new URLSearchParams(window.location.hash.slice(1));
fetch("/callback/token", {
  method: "POST",
  body: new URLSearchParams({access_token: p.get("access_token") || "", state: p.get("state") || ""})
}).then(r => r.text()).then(t => { document.body.innerText = t; });
</script>
</body></html>`
