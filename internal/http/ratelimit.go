package http

import (
	"sync"
	"time"
)

// FixedWindowStore counts requests per identifier in fixed windows. A
// client's window starts with its first request and resets once it elapses.
// It implements echo's middleware.RateLimiterStore.
type FixedWindowStore struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	clients   map[string]*fixedWindow
	lastSweep time.Time
	now       func() time.Time
}

type fixedWindow struct {
	start time.Time
	count int
}

// NewFixedWindowStore allows max requests per window for each identifier.
func NewFixedWindowStore(window time.Duration, max int) *FixedWindowStore {
	return &FixedWindowStore{
		window:  window,
		max:     max,
		clients: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

// Allow records a request from identifier and reports whether it is within
// the limit.
func (s *FixedWindowStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w, ok := s.clients[identifier]
	if !ok || now.Sub(w.start) >= s.window {
		w = &fixedWindow{start: now}
		s.clients[identifier] = w
	}
	if w.count >= s.max {
		return false, nil
	}
	w.count++
	return true, nil
}

// Remaining returns how many requests identifier may still make in its
// current window.
func (s *FixedWindowStore) Remaining(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.clients[identifier]
	if !ok || s.now().Sub(w.start) >= s.window {
		return s.max
	}
	return s.max - w.count
}

// sweep drops expired windows at most once per window. Callers hold mu.
func (s *FixedWindowStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.window {
		return
	}
	for id, w := range s.clients {
		if now.Sub(w.start) >= s.window {
			delete(s.clients, id)
		}
	}
	s.lastSweep = now
}
