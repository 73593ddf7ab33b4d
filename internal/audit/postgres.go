package audit

import (
	"context"
	"database/sql"
)

// Schema is the DDL for the audit table. INSERT-only in practice; a trigger
// rejecting UPDATE/DELETE can be layered on at deploy time.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
  id uuid PRIMARY KEY,
  type text NOT NULL,
  actor_user_id text NOT NULL DEFAULT '',
  actor_role text NOT NULL DEFAULT '',
  ip_address text NOT NULL DEFAULT '',
  method text NOT NULL DEFAULT '',
  path text NOT NULL DEFAULT '',
  outcome text NOT NULL,
  target_user_id text NOT NULL DEFAULT '',
  message text NOT NULL DEFAULT '',
  metadata text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL
)`

// PGRepo appends audit events to Postgres.
type PGRepo struct {
	db *sql.DB
}

var _ Repository = (*PGRepo)(nil)

func NewPGRepo(db *sql.DB) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, actor_role, ip_address, method, path, outcome,
  target_user_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.Method,
		e.Path,
		e.Outcome,
		e.TargetUserID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
