package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// Sink receives normalized active-file paths. *presence.Coordinator
// implements it.
type Sink interface {
	FileFocused(ctx context.Context, path string)
}

// Source is anything that reports active-file changes.
type Source interface {
	OnActiveFileChanged(cb func(path string)) (unsubscribe func())
}

// queueSize bounds how many focus events may wait for the sink.
const queueSize = 64

// Watcher forwards focus events from a Source to a Sink on its own goroutine,
// in the order they were emitted, with paths made workspace-relative.
type Watcher struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Watcher {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Watcher{root: filepath.Clean(root), logger: logger}
}

// NormalizePath returns path relative to the workspace root with forward
// slashes, which is the form activity rows store. Paths outside the workspace
// are kept absolute.
func (w *Watcher) NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Run forwards events until ctx is done. Events that arrive while the queue
// is full are dropped with a warning; the next focus change supersedes them.
func (w *Watcher) Run(ctx context.Context, src Source, sink Sink) {
	events := make(chan string, queueSize)
	unsubscribe := src.OnActiveFileChanged(func(path string) {
		select {
		case events <- path:
		default:
			w.logger.Warn("dropping focus event, sink is behind", slog.String("path", path))
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-events:
			normalized := w.NormalizePath(path)
			if normalized == "" {
				continue
			}
			w.logger.Debug("active file changed", slog.String("path", normalized))
			sink.FileFocused(ctx, normalized)
		}
	}
}
