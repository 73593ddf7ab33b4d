package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"inspection-backoffice/internal/audit"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/pkg/logger"
)

const bearerPrefix = "Bearer "

// AuditSink receives one event per authentication attempt.
type AuditSink interface {
	Record(ctx context.Context, e audit.Event)
}

// Observer is told the outcome of every attempt ("success" or a Kind).
type Observer interface {
	AuthAttempt(outcome string)
}

// RequestInfo is the slice of the HTTP request that goes into the audit trail.
type RequestInfo struct {
	Method string
	Path   string
	IP     string
}

// Validator turns an Authorization header into a Principal.
//
// Checks run in a fixed order and stop at the first failure:
// credential present, token valid, subject exists, subject active,
// token issued strictly after the subject's last credential change.
type Validator struct {
	tokens       *Manager
	store        identity.Store
	audit        AuditSink
	observer     Observer
	clock        func() time.Time
	storeTimeout time.Duration
}

type ValidatorOption func(*Validator)

func WithAudit(a AuditSink) ValidatorOption { return func(v *Validator) { v.audit = a } }

func WithObserver(o Observer) ValidatorOption { return func(v *Validator) { v.observer = o } }

func WithStoreTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.storeTimeout = d }
}

func WithValidatorClock(fn func() time.Time) ValidatorOption {
	return func(v *Validator) { v.clock = fn }
}

func NewValidator(tokens *Manager, store identity.Store, opts ...ValidatorOption) *Validator {
	v := &Validator{
		tokens:       tokens,
		store:        store,
		clock:        time.Now,
		storeTimeout: 3 * time.Second,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Authenticate validates authorization (the raw header value) and returns the
// caller. Failures are *Error values; the store is consulted on every call.
func (v *Validator) Authenticate(ctx context.Context, authorization string, req RequestInfo) (Principal, error) {
	p, claimedSub, err := v.authenticate(ctx, authorization)
	v.report(ctx, req, p, claimedSub, err)
	return p, err
}

func (v *Validator) authenticate(ctx context.Context, authorization string) (Principal, string, error) {
	raw := strings.TrimSpace(authorization)
	if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
		return Principal{}, "", unauthorized(KindNoCredential, "", nil)
	}
	tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	if tok == "" {
		return Principal{}, "", unauthorized(KindNoCredential, "", nil)
	}

	claims, err := v.tokens.Verify(tok, v.clock())
	if err != nil {
		reason := ReasonMalformed
		var te *TokenError
		if errors.As(err, &te) {
			reason = te.Reason
		}
		return Principal{}, "", unauthorized(KindInvalidToken, reason, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.storeTimeout)
	defer cancel()
	u, err := v.store.FindByID(lookupCtx, claims.Subject)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return Principal{}, claims.Subject, unauthorized(KindUnknownSubject, "", nil)
	case err != nil:
		return Principal{}, claims.Subject, storeUnavailable(err)
	}

	if !u.Active {
		return Principal{}, u.ID, unauthorized(KindDeactivated, "", nil)
	}
	if claims.IssuedAtMs <= u.LastModifiedAt.UnixMilli() {
		return Principal{}, u.ID, unauthorized(KindStaleToken, "", nil)
	}

	return Principal{
		ID:                u.ID,
		Email:             u.Email,
		Role:              u.Role,
		FirstLoginPending: u.FirstLoginPending,
	}, u.ID, nil
}

func (v *Validator) report(ctx context.Context, req RequestInfo, p Principal, claimedSub string, err error) {
	outcome := audit.OutcomeSuccess
	var ae *Error
	if errors.As(err, &ae) {
		outcome = string(ae.Kind)
		attrs := []any{"kind", string(ae.Kind), "path", req.Path, "client_ip", req.IP}
		if ae.Reason != "" {
			attrs = append(attrs, "reason", ae.Reason)
		}
		if ae.Err != nil {
			attrs = append(attrs, "err", ae.Err)
		}
		logger.From(ctx).Warn("authentication rejected", attrs...)
	}

	if v.observer != nil {
		v.observer.AuthAttempt(outcome)
	}
	if v.audit == nil {
		return
	}

	e := audit.Event{
		Type:        audit.EventTypeAuthAttempt,
		ActorUserID: claimedSub,
		ActorRole:   string(p.Role),
		IPAddress:   req.IP,
		Method:      req.Method,
		Path:        req.Path,
		Outcome:     outcome,
	}
	if ae != nil && ae.Reason != "" {
		e.Metadata = `{"reason":"` + ae.Reason + `"}`
	}
	v.audit.Record(ctx, e)
}
