package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inspection-backoffice/internal/audit"
	"inspection-backoffice/internal/config"
	"inspection-backoffice/internal/identity"
)

// kindOf returns the Kind of err, or "" when err is not an *Error.
func kindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *stepClock { return &stepClock{t: time.Unix(1700000000, 0).UTC()} }

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *stepClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *countingObserver) AuthAttempt(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) count(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:   "0123456789abcdef0123456789abcdef",
		JWTIssuer:   "inspection-backoffice",
		JWTAudience: "backoffice-ui",
		TokenTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

// fixture wires every auth component over in-memory collaborators sharing one clock.
type fixture struct {
	clock     *stepClock
	store     *identity.MemoryRepo
	tokens    *Manager
	auditRepo *audit.MemoryRepo
	observer  *countingObserver
	validator *Validator
	creds     *Credentials
	accounts  *Accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := newClock()
	store := identity.NewMemoryRepo().WithClock(clk.now)
	tokens := testManager(t)
	auditRepo := audit.NewMemoryRepo()
	sink := audit.NewService(auditRepo)
	obs := &countingObserver{}

	creds := NewCredentials(store, tokens, sink)
	creds.clock = clk.now

	return &fixture{
		clock:     clk,
		store:     store,
		tokens:    tokens,
		auditRepo: auditRepo,
		observer:  obs,
		validator: NewValidator(tokens, store,
			WithAudit(sink),
			WithObserver(obs),
			WithValidatorClock(clk.now),
			WithStoreTimeout(50*time.Millisecond),
		),
		creds:    creds,
		accounts: NewAccounts(store, sink),
	}
}

func (f *fixture) createUser(t *testing.T, email, password string, role identity.Role) identity.Identity {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := f.store.Create(context.Background(), identity.NewIdentity{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func (f *fixture) issue(t *testing.T, u identity.Identity) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(f.clock.now(), u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (f *fixture) authenticate(tok string) (Principal, error) {
	return f.validator.Authenticate(context.Background(), "Bearer "+tok, RequestInfo{Method: "GET", Path: "/api/properties", IP: "10.0.0.1"})
}

func ptr[T any](v T) *T { return &v }
