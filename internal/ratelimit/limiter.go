// Package ratelimit implements an in-memory sliding-window rate limiter.
// State lives in the process; counters reset on restart and are not shared
// across replicas, which is acceptable for its job of slowing credential
// guessing rather than enforcing exact global quotas.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// window holds the retained timestamps for one key together with the window
// length that key was last checked against. Storing the length per key keeps
// RetryAfter exact for every policy instead of assuming one global window.
type window struct {
	stamps []time.Time
	length time.Duration
}

// Limiter is a mutex-protected sliding-window limiter. The zero value is not
// usable; construct with New.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	// now is injectable for tests.
	now func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether another attempt is admitted for key under a policy of
// max attempts per windowLen. An admitted attempt is recorded; a rejected one
// is not, so hammering a limited endpoint does not extend the lockout.
func (l *Limiter) Allow(key string, max int, windowLen time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	w.length = windowLen

	w.stamps = prune(w.stamps, now.Add(-windowLen))

	if len(w.stamps) >= max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// RetryAfter returns how long until the next attempt on key could succeed:
// the moment the oldest retained attempt slides out of the key's window.
// Zero means an attempt would be admitted now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || len(w.stamps) == 0 {
		return 0
	}

	wait := w.stamps[0].Add(w.length).Sub(l.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// Reset forgets all recorded attempts for key. Called after a successful
// authentication so a legitimate user is not penalized for earlier typos.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Cleanup drops keys whose every recorded attempt has aged out of its window
// and returns the number of keys removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		w.stamps = prune(w.stamps, now.Add(-w.length))
		if len(w.stamps) == 0 {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup on a ticker until the context is cancelled.
func (l *Limiter) StartCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Cleanup(); n > 0 {
					logger.Debug("rate limiter cleanup", "keys_removed", n)
				}
			}
		}
	}()
}

// prune returns stamps at or after cutoff. Stamps are appended in time order,
// so the survivors are always a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
