package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"inspection-backoffice/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the users table. Applied at startup by utils.EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
  id                  uuid PRIMARY KEY,
  email               text NOT NULL UNIQUE,
  password_hash       text NOT NULL,
  role                text NOT NULL CHECK (role IN ('ADMIN','MANAGER','INSPECTOR','USER')),
  active              boolean NOT NULL DEFAULT true,
  employee_id         text UNIQUE,
  first_name          text NOT NULL DEFAULT '',
  last_name           text NOT NULL DEFAULT '',
  phone               text NOT NULL DEFAULT '',
  first_login_pending boolean NOT NULL DEFAULT false,
  last_modified_at    timestamptz NOT NULL,
  last_login_at       timestamptz,
  created_at          timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS users_role_idx ON users (role);
`

const (
	pgUniqueViolation = "23505"
	pgInvalidText     = "22P02"
)

const userColumns = `id, email, password_hash, role, active, employee_id, first_name, last_name, phone,
       first_login_pending, last_modified_at, last_login_at, created_at`

// PGStore implements Store on Postgres via database/sql (pgx stdlib driver).
type PGStore struct {
	db    *sql.DB
	clock func() time.Time
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, clock: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (Identity, error) {
	var (
		u         Identity
		role      string
		employee  sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.Active,
		&employee,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.FirstLoginPending,
		&u.LastModifiedAt,
		&lastLogin,
		&u.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, sql.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == pgInvalidText) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	u.Role = Role(role)
	if employee.Valid {
		e := employee.String
		u.EmployeeID = &e
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (Identity, error) {
	if uuid.Validate(id) != nil {
		return Identity{}, ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanIdentity(s.db.QueryRowContext(ctx, q, id))
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (Identity, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanIdentity(s.db.QueryRowContext(ctx, q, NormalizeEmail(email)))
}

func (s *PGStore) Create(ctx context.Context, in NewIdentity) (Identity, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || !in.Role.Valid() {
		return Identity{}, ErrInvalidInput
	}
	now := s.clock().UTC()
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

	const q = `
INSERT INTO users (
  id, email, password_hash, role, active, employee_id, first_name, last_name, phone,
  first_login_pending, last_modified_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := s.db.ExecContext(ctx, q,
		u.ID,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.Active,
		nullableString(u.EmployeeID),
		u.FirstName,
		u.LastName,
		u.Phone,
		u.FirstLoginPending,
		u.LastModifiedAt,
		u.CreatedAt,
	)
	if err != nil {
		return Identity{}, mapUniqueViolation(err)
	}
	return u, nil
}

// Update locks the row, applies ch, and writes back only when something changed.
// last_modified_at is bumped in the same statement as the field change.
func (s *PGStore) Update(ctx context.Context, id string, ch Changes) (Identity, error) {
	if uuid.Validate(id) != nil {
		return Identity{}, ErrNotFound
	}
	if ch.Role != nil && !ch.Role.Valid() {
		return Identity{}, ErrInvalidInput
	}

	var out Identity
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
		u, err := scanIdentity(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			return err
		}
		if !ch.Apply(&u) {
			out = u
			return nil
		}
		u.LastModifiedAt = NextModification(u.LastModifiedAt, s.clock())

		const upd = `
UPDATE users SET
  email = $2, password_hash = $3, role = $4, active = $5, employee_id = $6,
  first_name = $7, last_name = $8, phone = $9, first_login_pending = $10,
  last_modified_at = $11
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			u.ID,
			u.Email,
			u.PasswordHash,
			string(u.Role),
			u.Active,
			nullableString(u.EmployeeID),
			u.FirstName,
			u.LastName,
			u.Phone,
			u.FirstLoginPending,
			u.LastModifiedAt,
		); err != nil {
			return mapUniqueViolation(err)
		}
		out = u
		return nil
	})
	if err != nil {
		return Identity{}, err
	}
	return out, nil
}

func (s *PGStore) CountByRole(ctx context.Context, role Role) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	return n, err
}

func (s *PGStore) List(ctx context.Context) ([]Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		u, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// TouchLogin only sets last_login_at; last_modified_at stays put so live sessions survive.
func (s *PGStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "employee") {
		return ErrEmployeeIDTaken
	}
	return ErrEmailTaken
}
