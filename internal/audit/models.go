package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Every authentication attempt produces exactly one event, success or failure.
// - Recording is best-effort; a failed write never fails the request that caused it.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// Actor is the authenticated (or claimed) identity. Empty when no token was presented.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	Method    string `json:"method,omitempty" db:"method"`
	Path      string `json:"path,omitempty" db:"path"`

	// Outcome is "success" or the failure kind (e.g. STALE_TOKEN).
	Outcome string `json:"outcome" db:"outcome"`

	// TargetUserID is set for admin actions on another account.
	TargetUserID string `json:"target_user_id,omitempty" db:"target_user_id"`

	Message  string `json:"message,omitempty" db:"message"`
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAuthAttempt        EventType = "auth_attempt"
	EventTypeLogin              EventType = "login"
	EventTypeCredentialRotation EventType = "credential_rotation"
	EventTypeAdminAction        EventType = "admin_action"
	EventTypeBootstrap          EventType = "bootstrap"
)

const OutcomeSuccess = "success"
