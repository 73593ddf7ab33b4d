package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"inspection-backoffice/internal/audit"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/pkg/logger"
)

// Session is what every credential flow hands back to the client.
type Session struct {
	Token                  string            `json:"token"`
	ExpiresAt              time.Time         `json:"expiresAt"`
	User                   identity.Identity `json:"user"`
	RequiresPasswordChange bool              `json:"requiresPasswordChange"`
}

// Credentials implements login, registration and the password rotation flows.
type Credentials struct {
	store  identity.Store
	tokens *Manager
	audit  AuditSink
	clock  func() time.Time
}

func NewCredentials(store identity.Store, tokens *Manager, sink AuditSink) *Credentials {
	return &Credentials{store: store, tokens: tokens, audit: sink, clock: time.Now}
}

// dummyHash is compared against when the email is unknown so the response
// time does not reveal whether an account exists.
var dummyHash = sync.OnceValue(func() string {
	h, _ := identity.HashPassword("not-a-real-password")
	return h
})

func (s *Credentials) Login(ctx context.Context, email, password string, req RequestInfo) (Session, error) {
	u, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		_ = identity.VerifyPassword(dummyHash(), password)
		s.record(ctx, audit.EventTypeLogin, "", "", req, "invalid_credentials")
		return Session{}, ErrInvalidCredentials
	case err != nil:
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if identity.VerifyPassword(u.PasswordHash, password) != nil || !u.Active {
		outcome := "invalid_credentials"
		if !u.Active {
			outcome = string(KindDeactivated)
		}
		s.record(ctx, audit.EventTypeLogin, u.ID, string(u.Role), req, outcome)
		return Session{}, ErrInvalidCredentials
	}

	now := s.clock()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		// bookkeeping only; the login itself stands
		logger.From(ctx).Warn("touch login failed", "user_id", u.ID, "err", err)
	}

	sess, err := s.session(now, u)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeLogin, u.ID, string(u.Role), req, audit.OutcomeSuccess)
	return sess, nil
}

// checkNewPassword bounds a chosen password. bcrypt cannot hash past 72 bytes.
func checkNewPassword(pw string) error {
	switch {
	case len(pw) < identity.MinPasswordLength:
		return ErrWeakPassword
	case len(pw) > identity.MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates a self-service USER account and signs it in.
func (s *Credentials) Register(ctx context.Context, in RegisterInput, req RequestInfo) (Session, error) {
	if err := checkNewPassword(in.Password); err != nil {
		return Session{}, err
	}
	if identity.NormalizeEmail(in.Email) == "" {
		return Session{}, fmt.Errorf("%w: email is required", identity.ErrInvalidInput)
	}
	hash, err := identity.HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.Create(ctx, identity.NewIdentity{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         identity.RoleUser,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return Session{}, err
	}

	sess, err := s.session(s.clock(), u)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeLogin, u.ID, string(u.Role), req, "registered")
	return sess, nil
}

// ChangePassword rotates the caller's password. Every token issued before the
// change, including the one used for this request, stops working.
func (s *Credentials) ChangePassword(ctx context.Context, p Principal, current, next string, req RequestInfo) (Session, error) {
	u, err := s.verifyCurrent(ctx, p, current)
	if err != nil {
		return Session{}, err
	}
	if err := checkNewPassword(next); err != nil {
		return Session{}, err
	}
	hash, err := identity.HashPassword(next)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err = s.store.Update(ctx, u.ID, identity.Changes{PasswordHash: &hash})
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeCredentialRotation, u.ID, string(u.Role), req, "password_changed")
	return s.session(s.clock(), u)
}

// FirstLoginInput completes a provisioned account. Nil profile fields are kept.
type FirstLoginInput struct {
	CurrentPassword string
	NewPassword     string
	FirstName       *string
	LastName        *string
	Phone           *string
}

// CompleteFirstLogin is the only PENDING -> NORMAL transition.
func (s *Credentials) CompleteFirstLogin(ctx context.Context, p Principal, in FirstLoginInput, req RequestInfo) (Session, error) {
	u, err := s.verifyCurrent(ctx, p, in.CurrentPassword)
	if err != nil {
		return Session{}, err
	}
	if !u.FirstLoginPending {
		return Session{}, ErrFirstLoginCompleted
	}
	if err := checkNewPassword(in.NewPassword); err != nil {
		return Session{}, err
	}
	hash, err := identity.HashPassword(in.NewPassword)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	done := false
	u, err = s.store.Update(ctx, u.ID, identity.Changes{
		PasswordHash:      &hash,
		FirstLoginPending: &done,
		FirstName:         trimmed(in.FirstName),
		LastName:          trimmed(in.LastName),
		Phone:             trimmed(in.Phone),
	})
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeCredentialRotation, u.ID, string(u.Role), req, "first_login_completed")
	return s.session(s.clock(), u)
}

// Me re-reads the caller so the response reflects the store, not the token.
func (s *Credentials) Me(ctx context.Context, p Principal) (identity.Identity, error) {
	return s.store.FindByID(ctx, p.ID)
}

func (s *Credentials) verifyCurrent(ctx context.Context, p Principal, current string) (identity.Identity, error) {
	u, err := s.store.FindByID(ctx, p.ID)
	if err != nil {
		return identity.Identity{}, err
	}
	if identity.VerifyPassword(u.PasswordHash, current) != nil {
		return identity.Identity{}, ErrIncorrectPassword
	}
	return u, nil
}

func (s *Credentials) session(now time.Time, u identity.Identity) (Session, error) {
	tok, claims, err := s.tokens.Issue(now, u)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:                  tok,
		ExpiresAt:              claims.ExpiresAt.Time,
		User:                   u,
		RequiresPasswordChange: u.FirstLoginPending,
	}, nil
}

func (s *Credentials) record(ctx context.Context, typ audit.EventType, userID, role string, req RequestInfo, outcome string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Event{
		Type:        typ,
		ActorUserID: userID,
		ActorRole:   role,
		IPAddress:   req.IP,
		Method:      req.Method,
		Path:        req.Path,
		Outcome:     outcome,
	})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
