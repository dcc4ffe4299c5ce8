// Package changefeed provides the in-process table change notifier.
//
// The SQLite store calls Notify after each committed write; roster
// subscriptions register through SubscribeTable. Callbacks run synchronously on
// the writer's goroutine, so they must not block (the presence subscription only
// does a non-blocking channel send).
package changefeed

import (
	"sync"

	"github.com/sakif/teamsync/internal/repository"
)

var (
	_ repository.Changefeed = (*Hub)(nil)
	_ repository.Notifier   = (*Hub)(nil)
)

// Hub fans table notifications out to every subscriber of that table.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func())}
}

// SubscribeTable registers onChange for table.
func (h *Hub) SubscribeTable(table string, onChange func()) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[table] == nil {
		h.subs[table] = make(map[int]func())
	}
	h.subs[table][id] = onChange
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[table], id)
			h.mu.Unlock()
		})
	}
}

// Notify invokes every callback subscribed to table.
func (h *Hub) Notify(table string) {
	h.mu.RLock()
	callbacks := make([]func(), 0, len(h.subs[table]))
	for _, cb := range h.subs[table] {
		callbacks = append(callbacks, cb)
	}
	h.mu.RUnlock()

	for _, cb := range callbacks {
		cb()
	}
}

// Subscribers reports how many callbacks are registered for table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
