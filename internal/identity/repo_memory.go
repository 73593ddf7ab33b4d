package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Store useful for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]Identity
	clock func() time.Time
}

var _ Store = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Identity), clock: time.Now}
}

// WithClock overrides the time source used for LastModifiedAt/CreatedAt.
func (r *MemoryRepo) WithClock(fn func() time.Time) *MemoryRepo {
	r.clock = fn
	return r
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = NormalizeEmail(email)
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (r *MemoryRepo) Create(ctx context.Context, in NewIdentity) (Identity, error) {
	if !in.Role.Valid() {
		return Identity{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(in.Email)
	if email == "" {
		return Identity{}, ErrInvalidInput
	}
	if err := r.checkUniqueLocked("", email, strings.TrimSpace(in.EmployeeID)); err != nil {
		return Identity{}, err
	}

	now := r.clock().UTC()
	u := Identity{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      in.PasswordHash,
		Role:              in.Role,
		Active:            true,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Phone:             in.Phone,
		FirstLoginPending: in.FirstLoginPending,
		LastModifiedAt:    now,
		CreatedAt:         now,
	}
	if e := strings.TrimSpace(in.EmployeeID); e != "" {
		u.EmployeeID = &e
	}
	r.byID[u.ID] = u
	return u, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, ch Changes) (Identity, error) {
	if ch.Role != nil && !ch.Role.Valid() {
		return Identity{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if !ch.Apply(&u) {
		return u, nil
	}
	emp := ""
	if u.EmployeeID != nil {
		emp = *u.EmployeeID
	}
	if err := r.checkUniqueLocked(id, u.Email, emp); err != nil {
		return Identity{}, err
	}
	u.LastModifiedAt = NextModification(u.LastModifiedAt, r.clock())
	r.byID[id] = u
	return u, nil
}

func (r *MemoryRepo) CountByRole(ctx context.Context, role Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Identity, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	u.LastLoginAt = &at
	r.byID[id] = u
	return nil
}

func (r *MemoryRepo) checkUniqueLocked(selfID, email, employeeID string) error {
	for id, u := range r.byID {
		if id == selfID {
			continue
		}
		if u.Email == email {
			return ErrEmailTaken
		}
		if employeeID != "" && u.EmployeeID != nil && *u.EmployeeID == employeeID {
			return ErrEmployeeIDTaken
		}
	}
	return nil
}
