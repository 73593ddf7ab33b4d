package identity

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role is one of exactly four values. There is no ordering between roles;
// permission checks always name the allowed set explicitly.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleManager   Role = "MANAGER"
	RoleInspector Role = "INSPECTOR"
	RoleUser      Role = "USER"
)

// AllRoles lists every role, in display order.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleInspector, RoleUser}

func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// ParseRole accepts any casing ("inspector", "INSPECTOR").
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q, want one of %v", ErrInvalidInput, s, AllRoles)
	}
	return r, nil
}

// Identity is a durable user record.
//
// LastModifiedAt is the staleness anchor for session tokens: it moves on every
// change that must invalidate outstanding tokens (password, role, active flag,
// first-login completion) and never on bookkeeping like LastLoginAt.
type Identity struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              Role       `json:"role"`
	Active            bool       `json:"active"`
	EmployeeID        *string    `json:"employeeId,omitempty"`
	FirstName         string     `json:"firstName,omitempty"`
	LastName          string     `json:"lastName,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	FirstLoginPending bool       `json:"firstLoginPending"`
	LastModifiedAt    time.Time  `json:"lastModifiedAt"`
	LastLoginAt       *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Email             *string
	PasswordHash      *string
	Role              *Role
	Active            *bool
	EmployeeID        *string
	FirstName         *string
	LastName          *string
	Phone             *string
	FirstLoginPending *bool
}

// Apply writes the non-nil fields onto id and reports whether anything changed.
func (c Changes) Apply(id *Identity) bool {
	changed := false
	if c.Email != nil {
		if e := NormalizeEmail(*c.Email); e != id.Email {
			id.Email = e
			changed = true
		}
	}
	if c.PasswordHash != nil && *c.PasswordHash != id.PasswordHash {
		id.PasswordHash = *c.PasswordHash
		changed = true
	}
	if c.Role != nil && *c.Role != id.Role {
		id.Role = *c.Role
		changed = true
	}
	if c.Active != nil && *c.Active != id.Active {
		id.Active = *c.Active
		changed = true
	}
	if c.EmployeeID != nil {
		next := strings.TrimSpace(*c.EmployeeID)
		cur := ""
		if id.EmployeeID != nil {
			cur = *id.EmployeeID
		}
		if next != cur {
			if next == "" {
				id.EmployeeID = nil
			} else {
				id.EmployeeID = &next
			}
			changed = true
		}
	}
	if c.FirstName != nil && *c.FirstName != id.FirstName {
		id.FirstName = *c.FirstName
		changed = true
	}
	if c.LastName != nil && *c.LastName != id.LastName {
		id.LastName = *c.LastName
		changed = true
	}
	if c.Phone != nil && *c.Phone != id.Phone {
		id.Phone = *c.Phone
		changed = true
	}
	if c.FirstLoginPending != nil && *c.FirstLoginPending != id.FirstLoginPending {
		id.FirstLoginPending = *c.FirstLoginPending
		changed = true
	}
	return changed
}

// NewIdentity is the input to Store.Create.
type NewIdentity struct {
	Email             string
	PasswordHash      string
	Role              Role
	EmployeeID        string
	FirstName         string
	LastName          string
	Phone             string
	FirstLoginPending bool
}

// NextModification returns the LastModifiedAt to store for a change made at
// now. It is always at least one millisecond after prev, so a token issued
// strictly after prev can never tie with or outlive a later change.
func NextModification(prev, now time.Time) time.Time {
	now = now.UTC()
	if floor := prev.UTC().Truncate(time.Millisecond).Add(time.Millisecond); now.Before(floor) {
		return floor
	}
	return now
}
