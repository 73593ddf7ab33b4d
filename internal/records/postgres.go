package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inspection-backoffice/internal/rbac"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the record tables. Applied after identity.Schema (users).
const Schema = `
CREATE TABLE IF NOT EXISTS properties (
  id            uuid PRIMARY KEY,
  address       text NOT NULL,
  city          text NOT NULL DEFAULT '',
  state         text NOT NULL DEFAULT '',
  zip_code      text NOT NULL DEFAULT '',
  property_type text NOT NULL DEFAULT '',
  notes         text NOT NULL DEFAULT '',
  created_by_id uuid NOT NULL REFERENCES users (id),
  created_at    timestamptz NOT NULL,
  updated_at    timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS inspections (
  id            uuid PRIMARY KEY,
  property_id   uuid NOT NULL REFERENCES properties (id) ON DELETE CASCADE,
  inspector_id  uuid NOT NULL REFERENCES users (id),
  status        text NOT NULL,
  scheduled_at  timestamptz,
  findings      text NOT NULL DEFAULT '',
  created_by_id uuid NOT NULL REFERENCES users (id),
  created_at    timestamptz NOT NULL,
  updated_at    timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS inspections_property_inspector_idx ON inspections (property_id, inspector_id);
CREATE INDEX IF NOT EXISTS inspections_inspector_idx ON inspections (inspector_id);
CREATE TABLE IF NOT EXISTS calls (
  id            uuid PRIMARY KEY,
  property_id   uuid NOT NULL REFERENCES properties (id) ON DELETE CASCADE,
  inspection_id uuid REFERENCES inspections (id) ON DELETE SET NULL,
  made_by_id    uuid NOT NULL REFERENCES users (id),
  outcome       text NOT NULL DEFAULT '',
  notes         text NOT NULL DEFAULT '',
  called_at     timestamptz NOT NULL,
  created_at    timestamptz NOT NULL,
  updated_at    timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_made_by_idx ON calls (made_by_id);
CREATE TABLE IF NOT EXISTS contacts (
  id            uuid PRIMARY KEY,
  property_id   uuid NOT NULL REFERENCES properties (id) ON DELETE CASCADE,
  name          text NOT NULL,
  phone         text NOT NULL DEFAULT '',
  email         text NOT NULL DEFAULT '',
  relationship  text NOT NULL DEFAULT '',
  created_by_id uuid NOT NULL REFERENCES users (id),
  created_at    timestamptz NOT NULL,
  updated_at    timestamptz NOT NULL
);
`

const (
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

const (
	propertyColumns   = `p.id, p.address, p.city, p.state, p.zip_code, p.property_type, p.notes, p.created_by_id, p.created_at, p.updated_at`
	inspectionColumns = `i.id, i.property_id, i.inspector_id, i.status, i.scheduled_at, i.findings, i.created_by_id, i.created_at, i.updated_at`
	callColumns       = `c.id, c.property_id, c.inspection_id, c.made_by_id, c.outcome, c.notes, c.called_at, c.created_at, c.updated_at`
	contactColumns    = `ct.id, ct.property_id, ct.name, ct.phone, ct.email, ct.relationship, ct.created_by_id, ct.created_at, ct.updated_at`
)

// PGStore implements Store on Postgres via database/sql (pgx stdlib driver).
type PGStore struct {
	db    *sql.DB
	clock func() time.Time
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, clock: time.Now}
}

// scopeColumns is the allowlist of column names a Predicate may reference.
var scopeColumns = map[string]bool{
	rbac.FieldID:          true,
	rbac.FieldPropertyID:  true,
	rbac.FieldInspectorID: true,
	rbac.FieldMadeByID:    true,
}

// scopeClause renders pred as a SQL boolean over table alias, appending its
// bind values to args. Placeholders continue from len(args).
func scopeClause(pred rbac.Predicate, alias string, args []any) (string, []any, error) {
	switch pred.Kind {
	case rbac.MatchAll:
		return "TRUE", args, nil
	case rbac.MatchNone:
		return "FALSE", args, nil
	case rbac.FieldEquals:
		if !scopeColumns[pred.Field] {
			return "", nil, fmt.Errorf("scope: unknown column %q", pred.Field)
		}
		args = append(args, pred.Value)
		return fmt.Sprintf("%s.%s = $%d", alias, pred.Field, len(args)), args, nil
	case rbac.PropertyInspectedBy:
		if !scopeColumns[pred.Via] {
			return "", nil, fmt.Errorf("scope: unknown column %q", pred.Via)
		}
		args = append(args, pred.Value)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM inspections si WHERE si.property_id = %s.%s AND si.inspector_id = $%d)",
			alias, pred.Via, len(args)), args, nil
	default:
		return "", nil, fmt.Errorf("scope: unknown predicate kind %d", pred.Kind)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// validID reports whether id can name a row. Anything else cannot exist.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || pgCode(err) == pgInvalidText {
		return ErrNotFound
	}
	return err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInvalidInput, pgErr.ConstraintName)
	case pgInvalidText:
		return fmt.Errorf("%w: malformed id", ErrInvalidInput)
	}
	return err
}

func (s *PGStore) deleteByID(ctx context.Context, table, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
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

/* ===================== PROPERTIES ===================== */

func scanProperty(row rowScanner) (Property, error) {
	var p Property
	err := row.Scan(&p.ID, &p.Address, &p.City, &p.State, &p.ZipCode, &p.PropertyType, &p.Notes, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

func (s *PGStore) ListProperties(ctx context.Context, scope rbac.Predicate) ([]Property, error) {
	where, args, err := scopeClause(scope, "p", nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties p WHERE `+where+` ORDER BY p.created_at DESC, p.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) GetProperty(ctx context.Context, id string, scope rbac.Predicate) (Property, error) {
	if !validID(id) {
		return Property{}, ErrNotFound
	}
	where, args, err := scopeClause(scope, "p", []any{id})
	if err != nil {
		return Property{}, err
	}
	return scanProperty(s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties p WHERE p.id = $1 AND `+where, args...))
}

func (s *PGStore) CreateProperty(ctx context.Context, p Property) (Property, error) {
	if strings.TrimSpace(p.Address) == "" {
		return Property{}, ErrInvalidInput
	}
	now := s.clock().UTC()
	p.ID, p.CreatedAt, p.UpdatedAt = uuid.NewString(), now, now

	const q = `
INSERT INTO properties (id, address, city, state, zip_code, property_type, notes, created_by_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	if _, err := s.db.ExecContext(ctx, q, p.ID, p.Address, p.City, p.State, p.ZipCode, p.PropertyType, p.Notes, p.CreatedByID, p.CreatedAt, p.UpdatedAt); err != nil {
		return Property{}, mapWriteErr(err)
	}
	return p, nil
}

func (s *PGStore) UpdateProperty(ctx context.Context, p Property) (Property, error) {
	const q = `
UPDATE properties p SET address = $2, city = $3, state = $4, zip_code = $5, property_type = $6, notes = $7, updated_at = $8
WHERE p.id = $1
RETURNING ` + propertyColumns
	return scanProperty(s.db.QueryRowContext(ctx, q, p.ID, p.Address, p.City, p.State, p.ZipCode, p.PropertyType, p.Notes, s.clock().UTC()))
}

func (s *PGStore) DeleteProperty(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "properties", id)
}

/* ===================== INSPECTIONS ===================== */

func scanInspection(row rowScanner) (Inspection, error) {
	var in Inspection
	err := row.Scan(&in.ID, &in.PropertyID, &in.InspectorID, &in.Status, &in.ScheduledAt, &in.Findings, &in.CreatedByID, &in.CreatedAt, &in.UpdatedAt)
	return in, notFound(err)
}

func (s *PGStore) ListInspections(ctx context.Context, f Filter, scope rbac.Predicate) ([]Inspection, error) {
	var args []any
	conds := []string{}
	if f.PropertyID != "" {
		args = append(args, f.PropertyID)
		conds = append(conds, fmt.Sprintf("i.property_id = $%d", len(args)))
	}
	where, args, err := scopeClause(scope, "i", args)
	if err != nil {
		return nil, err
	}
	conds = append(conds, where)

	rows, err := s.db.QueryContext(ctx, `SELECT `+inspectionColumns+` FROM inspections i WHERE `+strings.Join(conds, " AND ")+` ORDER BY i.created_at DESC, i.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Inspection{}
	for rows.Next() {
		in, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *PGStore) GetInspection(ctx context.Context, id string, scope rbac.Predicate) (Inspection, error) {
	if !validID(id) {
		return Inspection{}, ErrNotFound
	}
	where, args, err := scopeClause(scope, "i", []any{id})
	if err != nil {
		return Inspection{}, err
	}
	return scanInspection(s.db.QueryRowContext(ctx, `SELECT `+inspectionColumns+` FROM inspections i WHERE i.id = $1 AND `+where, args...))
}

func (s *PGStore) CreateInspection(ctx context.Context, in Inspection) (Inspection, error) {
	if in.PropertyID == "" || !validID(in.InspectorID) {
		return Inspection{}, ErrInvalidInput
	}
	now := s.clock().UTC()
	in.ID, in.CreatedAt, in.UpdatedAt = uuid.NewString(), now, now

	const q = `
INSERT INTO inspections (id, property_id, inspector_id, status, scheduled_at, findings, created_by_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	if _, err := s.db.ExecContext(ctx, q, in.ID, in.PropertyID, in.InspectorID, string(in.Status), in.ScheduledAt, in.Findings, in.CreatedByID, in.CreatedAt, in.UpdatedAt); err != nil {
		return Inspection{}, mapWriteErr(err)
	}
	return in, nil
}

func (s *PGStore) UpdateInspection(ctx context.Context, in Inspection) (Inspection, error) {
	if !validID(in.InspectorID) {
		return Inspection{}, fmt.Errorf("%w: inspector id", ErrInvalidInput)
	}
	const q = `
UPDATE inspections i SET inspector_id = $2, status = $3, scheduled_at = $4, findings = $5, updated_at = $6
WHERE i.id = $1
RETURNING ` + inspectionColumns
	out, err := scanInspection(s.db.QueryRowContext(ctx, q, in.ID, in.InspectorID, string(in.Status), in.ScheduledAt, in.Findings, s.clock().UTC()))
	if err != nil {
		return Inspection{}, mapWriteErr(err)
	}
	return out, nil
}

func (s *PGStore) DeleteInspection(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "inspections", id)
}

/* ===================== CALLS ===================== */

func scanCall(row rowScanner) (Call, error) {
	var c Call
	err := row.Scan(&c.ID, &c.PropertyID, &c.InspectionID, &c.MadeByID, &c.Outcome, &c.Notes, &c.CalledAt, &c.CreatedAt, &c.UpdatedAt)
	return c, notFound(err)
}

func (s *PGStore) ListCalls(ctx context.Context, f Filter, scope rbac.Predicate) ([]Call, error) {
	var args []any
	conds := []string{}
	if f.PropertyID != "" {
		args = append(args, f.PropertyID)
		conds = append(conds, fmt.Sprintf("c.property_id = $%d", len(args)))
	}
	if f.InspectionID != "" {
		args = append(args, f.InspectionID)
		conds = append(conds, fmt.Sprintf("c.inspection_id = $%d", len(args)))
	}
	where, args, err := scopeClause(scope, "c", args)
	if err != nil {
		return nil, err
	}
	conds = append(conds, where)

	rows, err := s.db.QueryContext(ctx, `SELECT `+callColumns+` FROM calls c WHERE `+strings.Join(conds, " AND ")+` ORDER BY c.called_at DESC, c.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) GetCall(ctx context.Context, id string, scope rbac.Predicate) (Call, error) {
	if !validID(id) {
		return Call{}, ErrNotFound
	}
	where, args, err := scopeClause(scope, "c", []any{id})
	if err != nil {
		return Call{}, err
	}
	return scanCall(s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls c WHERE c.id = $1 AND `+where, args...))
}

// CreateCall rejects an inspection id that belongs to a different property.
func (s *PGStore) CreateCall(ctx context.Context, c Call) (Call, error) {
	if c.PropertyID == "" || c.MadeByID == "" {
		return Call{}, ErrInvalidInput
	}
	now := s.clock().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = uuid.NewString(), now, now
	if c.CalledAt.IsZero() {
		c.CalledAt = now
	}

	const q = `
INSERT INTO calls (id, property_id, inspection_id, made_by_id, outcome, notes, called_at, created_at, updated_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
WHERE $3::uuid IS NULL OR EXISTS (SELECT 1 FROM inspections WHERE id = $3::uuid AND property_id = $2::uuid)
`
	res, err := s.db.ExecContext(ctx, q, c.ID, c.PropertyID, c.InspectionID, c.MadeByID, c.Outcome, c.Notes, c.CalledAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return Call{}, mapWriteErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Call{}, fmt.Errorf("%w: inspection does not belong to property", ErrInvalidInput)
	}
	return c, nil
}

func (s *PGStore) UpdateCall(ctx context.Context, c Call) (Call, error) {
	const q = `
UPDATE calls c SET outcome = $2, notes = $3, called_at = $4, updated_at = $5
WHERE c.id = $1
RETURNING ` + callColumns
	return scanCall(s.db.QueryRowContext(ctx, q, c.ID, c.Outcome, c.Notes, c.CalledAt, s.clock().UTC()))
}

func (s *PGStore) DeleteCall(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "calls", id)
}

/* ===================== CONTACTS ===================== */

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.PropertyID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
	return c, notFound(err)
}

func (s *PGStore) ListContacts(ctx context.Context, f Filter, scope rbac.Predicate) ([]Contact, error) {
	var args []any
	conds := []string{}
	if f.PropertyID != "" {
		args = append(args, f.PropertyID)
		conds = append(conds, fmt.Sprintf("ct.property_id = $%d", len(args)))
	}
	where, args, err := scopeClause(scope, "ct", args)
	if err != nil {
		return nil, err
	}
	conds = append(conds, where)

	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ct WHERE `+strings.Join(conds, " AND ")+` ORDER BY ct.created_at DESC, ct.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) GetContact(ctx context.Context, id string, scope rbac.Predicate) (Contact, error) {
	if !validID(id) {
		return Contact{}, ErrNotFound
	}
	where, args, err := scopeClause(scope, "ct", []any{id})
	if err != nil {
		return Contact{}, err
	}
	return scanContact(s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts ct WHERE ct.id = $1 AND `+where, args...))
}

func (s *PGStore) CreateContact(ctx context.Context, c Contact) (Contact, error) {
	if c.PropertyID == "" || strings.TrimSpace(c.Name) == "" {
		return Contact{}, ErrInvalidInput
	}
	now := s.clock().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = uuid.NewString(), now, now

	const q = `
INSERT INTO contacts (id, property_id, name, phone, email, relationship, created_by_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	if _, err := s.db.ExecContext(ctx, q, c.ID, c.PropertyID, c.Name, c.Phone, c.Email, c.Relationship, c.CreatedByID, c.CreatedAt, c.UpdatedAt); err != nil {
		return Contact{}, mapWriteErr(err)
	}
	return c, nil
}

func (s *PGStore) UpdateContact(ctx context.Context, c Contact) (Contact, error) {
	const q = `
UPDATE contacts ct SET name = $2, phone = $3, email = $4, relationship = $5, updated_at = $6
WHERE ct.id = $1
RETURNING ` + contactColumns
	return scanContact(s.db.QueryRowContext(ctx, q, c.ID, c.Name, c.Phone, c.Email, c.Relationship, s.clock().UTC()))
}

func (s *PGStore) DeleteContact(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "contacts", id)
}
