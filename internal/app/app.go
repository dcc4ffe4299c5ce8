// Package app is the composition root: it builds every teamsync component
// from a Config and runs the command loop.
//
// WIRING:
//
//	config → changefeed (Redis or in-process) → sqlite store
//	       → services (auth, team, activity) → identity adapter
//	       → coordinator ← console, panel (commands)
//	                     → terminal tree, panel (renders)
//	                     ← watcher ← console "open" (file focus)
//
// Every dependency is created here and passed down explicitly; nothing
// below this package reaches for a global.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sakif/teamsync/internal/auth"
	"github.com/sakif/teamsync/internal/changefeed"
	"github.com/sakif/teamsync/internal/changefeed/redisfeed"
	"github.com/sakif/teamsync/internal/config"
	"github.com/sakif/teamsync/internal/console"
	"github.com/sakif/teamsync/internal/identity"
	"github.com/sakif/teamsync/internal/panel"
	"github.com/sakif/teamsync/internal/presence"
	sqliteRepo "github.com/sakif/teamsync/internal/repository/sqlite"
	"github.com/sakif/teamsync/internal/service"
	"github.com/sakif/teamsync/internal/ui"
	"github.com/sakif/teamsync/internal/watcher"
)

// commandQueue bounds commands waiting while a slow one (sign-in) runs.
const commandQueue = 16

// App owns every long-lived component. Close releases them.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	db      *sqliteRepo.DB
	redis   *redisfeed.Feed // nil without Redis
	coord   *presence.Coordinator
	focus   *watcher.Signal
	watcher *watcher.Watcher
	console *console.Console
	panel   *panel.Panel // nil when the panel is disabled

	commands chan presence.Command
}

// New builds the application. The console reads commands from in and
// writes the tree and notices to out.
func New(cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) (*App, error) {
	// A terminal keeps its *os.File so lipgloss can detect colors; every
	// writer prints a line or a whole tree in a single Write.
	if _, isFile := out.(*os.File); !isFile {
		out = &lockedWriter{w: out}
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		commands: make(chan presence.Command, commandQueue),
	}

	feed, err := a.openFeed()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.closeFeed()
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path, feed)
	if err != nil {
		a.closeFeed()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db

	secret, err := a.sessionSecret()
	if err != nil {
		a.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenService(secret, cfg.Session.TTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	if cfg.GitHub.ClientID == "" {
		logger.Warn("github.client_id is not set; sign-in will fail until it is configured")
	}
	ident := identity.NewGitHub(
		auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL()),
		auth.NewCallbackServer(cfg.GitHub.CallbackAddr(), cfg.GitHub.LoginTimeout, logger),
		service.NewAuthService(db, tokens, logger),
		identity.NewSessionStore(cfg.Session.File),
		nil,
		logger,
	)

	a.focus = watcher.NewSignal()
	a.watcher = watcher.New(cfg.Workspace, logger)
	a.console = console.New(in, out, ui.DefaultTheme, a.focus, logger)

	renderers := presence.Renderers{ui.NewTerminalRenderer(out, ui.DefaultTheme)}
	if cfg.Panel.Port > 0 {
		a.panel = panel.New(a.commands, logger)
		renderers = append(renderers, a.panel)
	}

	a.coord = presence.NewCoordinator(presence.NewState(), presence.Deps{
		Identity:   ident,
		Teams:      service.NewTeamService(db, db, logger),
		Activities: service.NewActivityService(db, db, logger),
		Feed:       db,
		Renderer:   renderers,
		Notifier:   a.console,
		Confirmer:  a.console,
		Clipboard:  a.console,
		Logger:     logger,
	})
	return a, nil
}

func (a *App) openFeed() (sqliteRepo.Feed, error) {
	if !a.cfg.Redis.Enabled() {
		return changefeed.NewHub(), nil
	}
	feed, err := redisfeed.New(redisfeed.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Prefix:   a.cfg.Redis.Prefix,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connecting changefeed: %w", err)
	}
	a.redis = feed
	return feed, nil
}

// sessionSecret returns the configured signing secret, or the one kept in
// the secret file, generated on the first run.
func (a *App) sessionSecret() (string, error) {
	if a.cfg.Session.Secret != "" {
		return a.cfg.Session.Secret, nil
	}
	path := a.cfg.Session.SecretFile()
	secret, created, err := identity.LoadOrCreateSecret(path)
	if err != nil {
		return "", err
	}
	if created {
		a.logger.Info("generated session signing secret", slog.String("path", path))
	}
	return secret, nil
}

// Coordinator exposes the coordinator for callers that drive it directly.
func (a *App) Coordinator() *presence.Coordinator {
	return a.coord
}

// Run restores the saved session and dispatches commands until the console
// input ends, "quit" is entered, ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.coord.Restore(ctx); err != nil {
		a.logger.Warn("continuing without a restored session", slog.String("error", err.Error()))
	}

	go a.watcher.Run(ctx, a.focus, a.coord)

	panelErrors := make(chan error, 1)
	if a.panel != nil {
		go func() { panelErrors <- a.panel.ListenAndServe(ctx, a.cfg.Panel.Addr()) }()
	}

	consoleDone := make(chan error, 1)
	go func() { consoleDone <- a.console.Run(ctx, a.commands) }()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return nil

		case cmd := <-a.commands:
			a.dispatch(ctx, cmd)

		case err := <-consoleDone:
			// Commands the console queued before it stopped still run.
			for len(a.commands) > 0 {
				a.dispatch(ctx, <-a.commands)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("console: %w", err)
			}
			return nil

		case err := <-panelErrors:
			if err != nil {
				return err
			}
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd presence.Command) {
	if err := a.coord.Dispatch(ctx, cmd); err != nil {
		a.logger.Debug("command finished with error",
			slog.String("command", string(cmd.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops the roster subscription and releases the store and the
// changefeed.
func (a *App) Close() error {
	if a.coord != nil {
		a.coord.Close()
	}
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	errs = append(errs, a.closeFeed())
	return errors.Join(errs...)
}

func (a *App) closeFeed() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

// lockedWriter serializes writes from the tree renderer, the console and the
// roster subscription goroutine when they share a plain io.Writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
