package storefront

import (
	"sync"
	"time"
)

type registryEntry struct {
	screen   *Screen
	lastSeen time.Time
}

// Registry keeps one Screen per session id.
type Registry struct {
	api  API
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	screens map[string]*registryEntry
}

// NewRegistry builds an empty registry whose screens call api.
func NewRegistry(api API, opts Options) *Registry {
	return &Registry{
		api:     api,
		opts:    opts,
		now:     time.Now,
		screens: make(map[string]*registryEntry),
	}
}

// Screen returns the session's screen and whether it was just created.
func (r *Registry) Screen(sessionID string) (*Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.screens[sessionID]; ok {
		e.lastSeen = r.now()
		return e.screen, false
	}
	s := NewScreen(r.api, r.opts)
	r.screens[sessionID] = &registryEntry{screen: s, lastSeen: r.now()}
	return s, true
}

// Drop discards the session's screen. It is subscribed to logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	e, ok := r.screens[sessionID]
	delete(r.screens, sessionID)
	r.mu.Unlock()
	if ok {
		e.screen.Close()
	}
}

// Sweep drops screens not used for maxIdle and returns how many went.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var stale []*Screen
	r.mu.Lock()
	for id, e := range r.screens {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.screen)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// Len reports how many screens are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}
