// Package ratelimit admits or rejects requests per (client, endpoint class)
// using sliding-window budgets.
//
// Two implementations exist: MemoryLimiter keeps counters in-process, so a
// multi-process deployment gets per-process budgets; RedisLimiter keeps them in
// Redis and is shared by every process pointing at the same instance.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class selects which budget a request draws from.
type Class string

const (
	ClassGeneral Class = "general"
	ClassAuth    Class = "auth"
)

// Policy is a budget of Limit requests per rolling Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Policies holds one budget per class.
type Policies struct {
	General Policy
	Auth    Policy
}

// DefaultPolicies: 100 req / 15 min general, 10 req / 15 min on login and register.
func DefaultPolicies() Policies {
	return Policies{
		General: Policy{Limit: 100, Window: 15 * time.Minute},
		Auth:    Policy{Limit: 10, Window: 15 * time.Minute},
	}
}

var ErrUnknownClass = errors.New("ratelimit: unknown class")

func (p Policies) For(class Class) (Policy, error) {
	var pol Policy
	switch class {
	case ClassGeneral:
		pol = p.General
	case ClassAuth:
		pol = p.Auth
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	if pol.Limit <= 0 || pol.Window <= 0 {
		return Policy{}, fmt.Errorf("ratelimit: class %q has no budget configured", class)
	}
	return pol, nil
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is set on rejection: time until the oldest counted request leaves the window.
	RetryAfter time.Duration
}

// Limiter counts one request for clientKey in class and decides whether to admit it.
// Rejected requests are not counted.
type Limiter interface {
	Admit(ctx context.Context, clientKey string, class Class) (Decision, error)
}

func storageKey(class Class, clientKey string) string {
	return "ratelimit:" + string(class) + ":" + clientKey
}
