package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0).UTC()} }

func TestMemoryLimiter_AuthBudgetRejectsEleventh(t *testing.T) {
	clk := newClock()
	l := NewMemoryLimiter(DefaultPolicies()).WithClock(clk.Now)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := l.Admit(ctx, "10.0.0.1", ClassAuth)
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: expected allowed, got %+v (%v)", i, d, err)
		}
		if d.Remaining != 10-i {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i, 10-i, d.Remaining)
		}
		clk.Advance(time.Second)
	}
	d, err := l.Admit(ctx, "10.0.0.1", ClassAuth)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if d.Allowed {
		t.Fatalf("expected 11th attempt rejected")
	}
	// First hit was at t0, now is t0+10s: it leaves the window at t0+15m.
	if want := 15*time.Minute - 10*time.Second; d.RetryAfter != want {
		t.Fatalf("expected retry after %s, got %s", want, d.RetryAfter)
	}
}

func TestMemoryLimiter_ClassesAndClientsAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(Policies{
		General: Policy{Limit: 2, Window: time.Minute},
		Auth:    Policy{Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if d, _ := l.Admit(ctx, "a", ClassAuth); !d.Allowed {
		t.Fatalf("expected auth allowed")
	}
	if d, _ := l.Admit(ctx, "a", ClassAuth); d.Allowed {
		t.Fatalf("expected auth rejected")
	}
	if d, _ := l.Admit(ctx, "a", ClassGeneral); !d.Allowed {
		t.Fatalf("general budget must be independent of auth budget")
	}
	if d, _ := l.Admit(ctx, "b", ClassAuth); !d.Allowed {
		t.Fatalf("other client must have its own budget")
	}
}

func TestMemoryLimiter_SlidingWindowHasNoBoundaryBurst(t *testing.T) {
	clk := newClock()
	l := NewMemoryLimiter(Policies{
		General: Policy{Limit: 3, Window: time.Minute},
		Auth:    Policy{Limit: 1, Window: time.Minute},
	}).WithClock(clk.Now)
	ctx := context.Background()

	// Three hits late in the first minute.
	clk.Advance(50 * time.Second)
	for i := 0; i < 3; i++ {
		if d, _ := l.Admit(ctx, "c", ClassGeneral); !d.Allowed {
			t.Fatalf("hit %d: expected allowed", i)
		}
	}
	// Just past a fixed-window boundary: a fixed window would reset here.
	clk.Advance(15 * time.Second)
	if d, _ := l.Admit(ctx, "c", ClassGeneral); d.Allowed {
		t.Fatalf("sliding window must still count the hits from 15s ago")
	}
	// Once the first hits are a full window old, budget frees up.
	clk.Advance(45 * time.Second)
	if d, _ := l.Admit(ctx, "c", ClassGeneral); !d.Allowed {
		t.Fatalf("expected budget to recover after a full window")
	}
}

func TestMemoryLimiter_ConcurrentAdmitsNeverOvercommit(t *testing.T) {
	l := NewMemoryLimiter(DefaultPolicies())
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Admit(ctx, "same-client", ClassGeneral)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := allowed.Load(); got != 100 {
		t.Fatalf("expected exactly 100 admitted, got %d", got)
	}
}

func TestMemoryLimiter_SweepDropsIdleKeys(t *testing.T) {
	clk := newClock()
	l := NewMemoryLimiter(DefaultPolicies()).WithClock(clk.Now)
	ctx := context.Background()

	_, _ = l.Admit(ctx, "x", ClassGeneral)
	_, _ = l.Admit(ctx, "y", ClassAuth)
	if n := l.Sweep(); n != 0 {
		t.Fatalf("expected nothing swept, got %d", n)
	}
	clk.Advance(16 * time.Minute)
	if n := l.Sweep(); n != 2 {
		t.Fatalf("expected 2 swept, got %d", n)
	}
}

func TestMemoryLimiter_AdmitAfterSweepCountsInLiveWindow(t *testing.T) {
	l := NewMemoryLimiter(DefaultPolicies())
	key := storageKey(ClassAuth, "z")

	// A lookup that loses the race with Sweep holds a retired window.
	stale := l.window(key)
	if n := l.Sweep(); n != 1 {
		t.Fatalf("expected the empty window swept, got %d", n)
	}
	if !stale.retired {
		t.Fatalf("swept window must be marked retired")
	}
	if _, err := l.Admit(context.Background(), "z", ClassAuth); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if live := l.window(key); live == stale || len(live.hits) != 1 {
		t.Fatalf("hit must land in the live window")
	}
}

func TestMemoryLimiter_ConcurrentSweepNeverDropsHits(t *testing.T) {
	l := NewMemoryLimiter(DefaultPolicies())
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		client := fmt.Sprintf("client-%d", i)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.Admit(ctx, client, ClassGeneral)
		}()
		go func() {
			defer wg.Done()
			l.Sweep()
		}()
		wg.Wait()

		l.mu.Lock()
		w, ok := l.windows[storageKey(ClassGeneral, client)]
		l.mu.Unlock()
		if !ok || len(w.hits) != 1 {
			t.Fatalf("%s: hit lost to a concurrent sweep", client)
		}
	}
}

func TestMemoryLimiter_UnknownClass(t *testing.T) {
	l := NewMemoryLimiter(DefaultPolicies())
	if _, err := l.Admit(context.Background(), "x", Class("bogus")); !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
}
