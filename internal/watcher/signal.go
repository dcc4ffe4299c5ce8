// Package watcher turns "the active file changed" events into presence
// activity updates.
package watcher

import "sync"

// Signal is an in-process source of active-file events. Editor integrations
// (here, the console's "open" command) call Emit; listeners register with
// OnActiveFileChanged.
type Signal struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(path string)
}

func NewSignal() *Signal {
	return &Signal{subs: make(map[int]func(string))}
}

// OnActiveFileChanged registers cb. The returned function unregisters it and
// is safe to call more than once.
func (s *Signal) OnActiveFileChanged(cb func(path string)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = cb
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Emit delivers path to every listener. Listeners must not block.
func (s *Signal) Emit(path string) {
	s.mu.RLock()
	cbs := make([]func(string), 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.mu.RUnlock()

	for _, cb := range cbs {
		cb(path)
	}
}
