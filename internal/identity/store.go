package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("identity: not found")
	ErrEmailTaken      = errors.New("identity: email already registered")
	ErrEmployeeIDTaken = errors.New("identity: employee id already in use")
	ErrInvalidInput    = errors.New("identity: invalid input")
)

// Store is the credential store contract the auth core depends on.
//
// Update MUST bump LastModifiedAt whenever at least one field actually changes.
// TouchLogin records login bookkeeping and MUST NOT bump LastModifiedAt.
type Store interface {
	FindByID(ctx context.Context, id string) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	Update(ctx context.Context, id string, ch Changes) (Identity, error)
	Create(ctx context.Context, in NewIdentity) (Identity, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	List(ctx context.Context) ([]Identity, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}
