package auth

import (
	"errors"
	"fmt"
	"time"

	"inspection-backoffice/internal/config"
	"inspection-backoffice/internal/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token reason codes. They go to logs and audit metadata, never to clients.
const (
	ReasonMalformed    = "MALFORMED"
	ReasonExpired      = "EXPIRED"
	ReasonBadSignature = "BAD_SIGNATURE"
)

// TokenError is returned by Verify for any token that must not be trusted.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string { return "token " + e.Reason + ": " + e.Err.Error() }
func (e *TokenError) Unwrap() error { return e.Err }

const clockSkew = 30 * time.Second

type Manager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      ttl,
	}, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }

/* ===================== ISSUE ===================== */

// Issue signs a session token for u.
//
// The issue instant is forced strictly after u.LastModifiedAt (millisecond
// resolution) so a token handed out right after a credential change is never
// judged stale against that same change.
func (m *Manager) Issue(now time.Time, u identity.Identity) (string, Claims, error) {
	issuedAt := now.UTC().Truncate(time.Millisecond)
	if floor := u.LastModifiedAt.UTC().Truncate(time.Millisecond).Add(time.Millisecond); issuedAt.Before(floor) {
		issuedAt = floor
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    m.issuer,
			Audience:  audienceOrNil(m.audience),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		Email:      u.Email,
		Role:       string(u.Role),
		IssuedAtMs: issuedAt.UnixMilli(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

/* ===================== VERIFY ===================== */

// Verify checks signature, algorithm, issuer/audience, and expiry at now.
// Every failure is a *TokenError carrying one of the Reason* codes.
func (m *Manager) Verify(tokenString string, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, &TokenError{Reason: reasonFor(err), Err: err}
	}

	if claims.Subject == "" {
		return Claims{}, &TokenError{Reason: ReasonMalformed, Err: errors.New("sub missing")}
	}
	if claims.IssuedAtMs <= 0 {
		return Claims{}, &TokenError{Reason: ReasonMalformed, Err: errors.New("iat_ms missing")}
	}
	if !identity.Role(claims.Role).Valid() {
		return Claims{}, &TokenError{Reason: ReasonMalformed, Err: fmt.Errorf("unknown role %q", claims.Role)}
	}
	return claims, nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
