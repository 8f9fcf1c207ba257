package lockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// DefaultRetentionDays is applied when ClearOlderThan receives no cutoff.
const DefaultRetentionDays = 30

// Service drives the per-identifier lockout state machine: Unlocked, then
// Threshold failures within Window lock the identifier until an explicit
// admin unlock or window expiry.
type Service struct {
	repo   Repository
	audit  *audit.Service
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a lockout service.
func NewService(repo Repository, auditSvc *audit.Service, cfg Config, logger *slog.Logger) *Service {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: auditSvc, cfg: cfg, logger: logger, now: time.Now}
}

// RecordFailure stores one authentication failure.
func (s *Service) RecordFailure(ctx context.Context, identifier, ip string) error {
	identifier = normalize(identifier)
	if identifier == "" {
		return errors.New("lockout: identifier required")
	}
	return s.repo.Insert(ctx, FailedLogin{
		Identifier: identifier,
		IP:         ip,
		OccurredAt: s.now().UTC(),
	})
}

// IsLocked reports whether the identifier has reached the failure threshold
// within the window. Callers must check this before any credential
// comparison so a locked account leaks no timing signal about credential
// validity.
func (s *Service) IsLocked(ctx context.Context, identifier string) (bool, error) {
	identifier = normalize(identifier)
	since := s.now().UTC().Add(-s.cfg.Window)
	count, err := s.repo.CountSince(ctx, identifier, since)
	if err != nil {
		return false, err
	}
	return count >= s.cfg.Threshold, nil
}

// Unlock clears the failure state for an identifier. It is a privileged
// mutation: the audit write is fail-closed.
func (s *Service) Unlock(ctx context.Context, r *http.Request, actorID int64, identifier string) error {
	identifier = normalize(identifier)
	if identifier == "" {
		return errors.New("lockout: identifier required")
	}
	cleared, err := s.repo.DeleteForIdentifier(ctx, identifier)
	if err != nil {
		return fmt.Errorf("lockout: unlock %s: %w", identifier, err)
	}
	return s.audit.LogAction(ctx, r, audit.Event{
		ActorID:    &actorID,
		Action:     "lockout.unlock",
		Resource:   string(permission.ResourceAdmins),
		ResourceID: identifier,
		Details:    map[string]any{"cleared_failures": cleared},
	}, audit.OutcomeSuccess, "")
}

// ClearOlderThan prunes failure records older than daysAgo days
// (DefaultRetentionDays when daysAgo <= 0) and returns the deleted count.
func (s *Service) ClearOlderThan(ctx context.Context, daysAgo int) (int64, error) {
	if daysAgo <= 0 {
		daysAgo = DefaultRetentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -daysAgo)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
