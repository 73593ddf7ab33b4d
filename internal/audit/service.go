package audit

import (
	"context"
	"errors"
	"time"

	"inspection-backoffice/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// There are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records audit events to a repository and mirrors each one as a log line.
//
// Record never returns an error: audit is fire-and-forget from the caller's point of view.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Append validates and stores e, returning any repository error.
func (s *Service) Append(ctx context.Context, e Event) (Event, error) {
	if e.Type == "" || e.Outcome == "" {
		return Event{}, ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if s.repo == nil {
		return e, nil
	}
	return e, s.repo.Append(ctx, e)
}

// Record is Append with failures logged and swallowed.
func (s *Service) Record(ctx context.Context, e Event) {
	log := logger.From(ctx)
	stored, err := s.Append(ctx, e)
	if err != nil {
		log.Warn("audit write failed", "type", string(e.Type), "outcome", e.Outcome, "err", err)
		stored = e
	}
	log.Info("audit",
		"type", string(stored.Type),
		"subject_id", stored.ActorUserID,
		"role", stored.ActorRole,
		"method", stored.Method,
		"path", stored.Path,
		"ip", stored.IPAddress,
		"outcome", stored.Outcome,
		"target_user_id", stored.TargetUserID,
	)
}

// LogAdminAction records an administrator acting on another account.
func (s *Service) LogAdminAction(ctx context.Context, actorUserID, actorRole, ip, targetUserID, message, metadata string) {
	s.Record(ctx, Event{
		Type:         EventTypeAdminAction,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		TargetUserID: targetUserID,
		Outcome:      OutcomeSuccess,
		Message:      message,
		Metadata:     metadata,
	})
}
