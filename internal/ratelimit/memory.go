package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a sliding-log limiter held in process memory.
// Each key has its own mutex so concurrent requests from one client never undercount.
type MemoryLimiter struct {
	policies Policies
	clock    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	mu   sync.Mutex
	hits []time.Time
	// retired is set under mu when Sweep drops the window from the map.
	retired bool
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(p Policies) *MemoryLimiter {
	return &MemoryLimiter{policies: p, clock: time.Now, windows: make(map[string]*window)}
}

// WithClock overrides the time source (tests).
func (l *MemoryLimiter) WithClock(fn func() time.Time) *MemoryLimiter {
	l.clock = fn
	return l
}

func (l *MemoryLimiter) Admit(ctx context.Context, clientKey string, class Class) (Decision, error) {
	pol, err := l.policies.For(class)
	if err != nil {
		return Decision{}, err
	}
	now := l.clock()
	key := storageKey(class, clientKey)
	w := l.window(key)
	w.mu.Lock()
	// Sweep may have dropped w between the lookup and the lock.
	for w.retired {
		w.mu.Unlock()
		w = l.window(key)
		w.mu.Lock()
	}
	defer w.mu.Unlock()

	w.hits = prune(w.hits, now.Add(-pol.Window))
	if len(w.hits) >= pol.Limit {
		return Decision{
			Allowed:    false,
			Limit:      pol.Limit,
			Remaining:  0,
			RetryAfter: w.hits[0].Add(pol.Window).Sub(now),
		}, nil
	}
	w.hits = append(w.hits, now)
	return Decision{Allowed: true, Limit: pol.Limit, Remaining: pol.Limit - len(w.hits)}, nil
}

func (l *MemoryLimiter) window(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	return w
}

// Sweep drops keys whose hits have all aged out of the longest window.
func (l *MemoryLimiter) Sweep() int {
	longest := l.policies.General.Window
	if l.policies.Auth.Window > longest {
		longest = l.policies.Auth.Window
	}
	cutoff := l.clock().Add(-longest)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, w := range l.windows {
		w.mu.Lock()
		w.hits = prune(w.hits, cutoff)
		if len(w.hits) == 0 {
			w.retired = true
			delete(l.windows, key)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (l *MemoryLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// prune drops hits at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
