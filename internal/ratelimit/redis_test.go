package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, p Policies) (*RedisLimiter, *fakeClock) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clk := newClock()
	return NewRedisLimiter(rdb, p).WithClock(clk.Now), clk
}

func TestRedisLimiter_AuthBudgetRejectsEleventh(t *testing.T) {
	l, clk := newRedisLimiter(t, DefaultPolicies())
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := l.Admit(ctx, "10.0.0.1", ClassAuth)
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: expected allowed, got %+v (%v)", i, d, err)
		}
		clk.Advance(time.Second)
	}
	d, err := l.Admit(ctx, "10.0.0.1", ClassAuth)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected rejection, got %+v", d)
	}
	if want := 15*time.Minute - 10*time.Second; d.RetryAfter != want {
		t.Fatalf("expected retry after %s, got %s", want, d.RetryAfter)
	}
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	l, clk := newRedisLimiter(t, Policies{
		General: Policy{Limit: 2, Window: time.Minute},
		Auth:    Policy{Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, err := l.Admit(ctx, "c", ClassGeneral); err != nil || !d.Allowed {
			t.Fatalf("hit %d: expected allowed (%v)", i, err)
		}
	}
	if d, _ := l.Admit(ctx, "c", ClassGeneral); d.Allowed {
		t.Fatalf("expected rejection at limit")
	}
	clk.Advance(time.Minute + time.Millisecond)
	if d, err := l.Admit(ctx, "c", ClassGeneral); err != nil || !d.Allowed {
		t.Fatalf("expected budget recovered after window (%v)", err)
	}
}

func TestRedisLimiter_ClassesAreIndependent(t *testing.T) {
	l, _ := newRedisLimiter(t, Policies{
		General: Policy{Limit: 5, Window: time.Minute},
		Auth:    Policy{Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	_, _ = l.Admit(ctx, "c", ClassAuth)
	if d, _ := l.Admit(ctx, "c", ClassAuth); d.Allowed {
		t.Fatalf("expected auth rejection")
	}
	if d, _ := l.Admit(ctx, "c", ClassGeneral); !d.Allowed || d.Remaining != 4 {
		t.Fatalf("expected independent general budget, got %+v", d)
	}
}

func TestRedisLimiter_BackendDownReturnsError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	l := NewRedisLimiter(rdb, DefaultPolicies())
	if _, err := l.Admit(context.Background(), "c", ClassGeneral); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
