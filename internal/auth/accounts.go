package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"inspection-backoffice/internal/identity"
)

// AdminAuditor records an administrator acting on another account.
type AdminAuditor interface {
	LogAdminAction(ctx context.Context, actorUserID, actorRole, ip, targetUserID, message, metadata string)
}

// Accounts is user administration. Route-level role checks happen in rbac;
// this layer enforces the rules that depend on who is acting on whom.
type Accounts struct {
	store identity.Store
	audit AdminAuditor
}

func NewAccounts(store identity.Store, a AdminAuditor) *Accounts {
	return &Accounts{store: store, audit: a}
}

type CreateUserInput struct {
	Email string
	Role  identity.Role
	// Password is used only when GeneratePassword is false.
	Password         string
	GeneratePassword bool
	EmployeeID       string
	FirstName        string
	LastName         string
	Phone            string
}

// CreateUser provisions an account. With GeneratePassword the account starts in
// first-login-pending and the temporary password is returned exactly once.
func (a *Accounts) CreateUser(ctx context.Context, actor Principal, ip string, in CreateUserInput) (identity.Identity, string, error) {
	if !in.Role.Valid() {
		return identity.Identity{}, "", fmt.Errorf("%w: unknown role %q", identity.ErrInvalidInput, in.Role)
	}

	password := in.Password
	temp := ""
	if in.GeneratePassword {
		p, err := identity.GeneratePassword()
		if err != nil {
			return identity.Identity{}, "", err
		}
		password, temp = p, p
	} else if err := checkNewPassword(password); err != nil {
		return identity.Identity{}, "", err
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return identity.Identity{}, "", fmt.Errorf("hash password: %w", err)
	}
	u, err := a.store.Create(ctx, identity.NewIdentity{
		Email:             in.Email,
		PasswordHash:      hash,
		Role:              in.Role,
		EmployeeID:        strings.TrimSpace(in.EmployeeID),
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Phone:             strings.TrimSpace(in.Phone),
		FirstLoginPending: in.GeneratePassword,
	})
	if err != nil {
		return identity.Identity{}, "", err
	}

	a.log(ctx, actor, ip, u.ID, "user created", map[string]any{
		"role":             u.Role,
		"generatePassword": in.GeneratePassword,
	})
	return u, temp, nil
}

// UpdateUserInput is a partial update. Nil fields are left untouched.
type UpdateUserInput struct {
	Email      *string
	Role       *identity.Role
	Active     *bool
	EmployeeID *string
	FirstName  *string
	LastName   *string
	Phone      *string
}

func (a *Accounts) UpdateUser(ctx context.Context, actor Principal, ip, targetID string, in UpdateUserInput) (identity.Identity, error) {
	if in.Role != nil && !in.Role.Valid() {
		return identity.Identity{}, fmt.Errorf("%w: unknown role %q", identity.ErrInvalidInput, *in.Role)
	}
	if targetID == actor.ID {
		if (in.Active != nil && !*in.Active) || (in.Role != nil && *in.Role != actor.Role) {
			return identity.Identity{}, ErrSelfLockout
		}
	}

	u, err := a.store.Update(ctx, targetID, identity.Changes{
		Email:      in.Email,
		Role:       in.Role,
		Active:     in.Active,
		EmployeeID: in.EmployeeID,
		FirstName:  trimmed(in.FirstName),
		LastName:   trimmed(in.LastName),
		Phone:      trimmed(in.Phone),
	})
	if err != nil {
		return identity.Identity{}, err
	}

	meta := map[string]any{}
	if in.Role != nil {
		meta["role"] = *in.Role
	}
	if in.Active != nil {
		meta["active"] = *in.Active
	}
	a.log(ctx, actor, ip, u.ID, "user updated", meta)
	return u, nil
}

// Reprovision issues a fresh generated password and forces first login again.
// It is the only way back into first-login-pending.
func (a *Accounts) Reprovision(ctx context.Context, actor Principal, ip, targetID string) (identity.Identity, string, error) {
	temp, err := identity.GeneratePassword()
	if err != nil {
		return identity.Identity{}, "", err
	}
	hash, err := identity.HashPassword(temp)
	if err != nil {
		return identity.Identity{}, "", fmt.Errorf("hash password: %w", err)
	}
	pending := true
	u, err := a.store.Update(ctx, targetID, identity.Changes{PasswordHash: &hash, FirstLoginPending: &pending})
	if err != nil {
		return identity.Identity{}, "", err
	}
	a.log(ctx, actor, ip, u.ID, "user reprovisioned", nil)
	return u, temp, nil
}

func (a *Accounts) List(ctx context.Context) ([]identity.Identity, error) {
	return a.store.List(ctx)
}

func (a *Accounts) Get(ctx context.Context, id string) (identity.Identity, error) {
	return a.store.FindByID(ctx, id)
}

func (a *Accounts) log(ctx context.Context, actor Principal, ip, targetID, message string, meta map[string]any) {
	if a.audit == nil {
		return
	}
	raw := ""
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			raw = string(b)
		}
	}
	a.audit.LogAdminAction(ctx, actor.ID, string(actor.Role), ip, targetID, message, raw)
}
