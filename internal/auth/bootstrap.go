package auth

import (
	"context"
	"errors"
	"fmt"

	"inspection-backoffice/internal/audit"
	"inspection-backoffice/internal/config"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/pkg/logger"
)

// EnsureAdmin guarantees at least one ADMIN exists. It is safe to run on every
// start: when any ADMIN exists it does nothing.
//
// The created account holds the configured well-known password and starts in
// first-login-pending. If the bootstrap email already belongs to a non-admin
// account, that account is promoted and reset instead of failing startup.
// Any store error is returned and must abort the process.
func EnsureAdmin(ctx context.Context, store identity.Store, cfg config.BootstrapConfig, sink AuditSink) (bool, error) {
	n, err := store.CountByRole(ctx, identity.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("bootstrap: count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	hash, err := identity.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("bootstrap: hash password: %w", err)
	}

	u, err := store.Create(ctx, identity.NewIdentity{
		Email:             cfg.AdminEmail,
		PasswordHash:      hash,
		Role:              identity.RoleAdmin,
		FirstName:         "System",
		LastName:          "Administrator",
		FirstLoginPending: true,
	})
	if errors.Is(err, identity.ErrEmailTaken) {
		u, err = promote(ctx, store, cfg.AdminEmail, hash)
		if u.ID == "" && err == nil {
			// another process won the race
			return false, nil
		}
	}
	if err != nil {
		return false, fmt.Errorf("bootstrap: create admin: %w", err)
	}

	logger.From(ctx).Warn("bootstrap admin account created; change this password on first login",
		"email", u.Email,
		"password", cfg.AdminPassword,
	)
	if sink != nil {
		sink.Record(ctx, audit.Event{
			Type:         audit.EventTypeBootstrap,
			TargetUserID: u.ID,
			ActorRole:    string(identity.RoleAdmin),
			Outcome:      audit.OutcomeSuccess,
			Message:      "bootstrap admin ensured",
		})
	}
	return true, nil
}

func promote(ctx context.Context, store identity.Store, email, hash string) (identity.Identity, error) {
	if n, err := store.CountByRole(ctx, identity.RoleAdmin); err != nil {
		return identity.Identity{}, err
	} else if n > 0 {
		return identity.Identity{}, nil
	}
	existing, err := store.FindByEmail(ctx, email)
	if err != nil {
		return identity.Identity{}, err
	}
	role := identity.RoleAdmin
	active, pending := true, true
	return store.Update(ctx, existing.ID, identity.Changes{
		Role:              &role,
		Active:            &active,
		PasswordHash:      &hash,
		FirstLoginPending: &pending,
	})
}
