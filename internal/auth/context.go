package auth

import (
	"context"
	"errors"

	"inspection-backoffice/internal/identity"
)

// Principal is the authenticated caller for the lifetime of one request.
// Role and FirstLoginPending come from the store, not from the token.
type Principal struct {
	ID                string        `json:"id"`
	Email             string        `json:"email"`
	Role              identity.Role `json:"role"`
	FirstLoginPending bool          `json:"-"`
}

type ctxKey int

const ctxPrincipal ctxKey = iota

var ErrNoPrincipal = errors.New("principal not in context")

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

func PrincipalFrom(ctx context.Context) (Principal, error) {
	if p, ok := ctx.Value(ctxPrincipal).(Principal); ok && p.ID != "" {
		return p, nil
	}
	return Principal{}, ErrNoPrincipal
}
