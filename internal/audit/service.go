package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// DefaultRetentionDays is applied when ClearOlderThan receives no cutoff.
const DefaultRetentionDays = 90

// Service coordinates the append-only audit trail.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs an audit service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// LogAction appends an entry for a privileged operation, extracting IP and
// user agent from the request when present. Failures are returned: a handler
// logging a successful mutation must surface them instead of responding as if
// the trail were written.
func (s *Service) LogAction(ctx context.Context, r *http.Request, event Event, outcome Outcome, errorMessage string) error {
	if event.Action == "" {
		return errors.New("audit: action required")
	}
	if !outcome.Valid() {
		return fmt.Errorf("audit: invalid outcome %q", outcome)
	}
	entry := Entry{
		OccurredAt:   s.now().UTC(),
		ActorID:      event.ActorID,
		Action:       event.Action,
		Resource:     event.Resource,
		ResourceID:   event.ResourceID,
		Outcome:      outcome,
		ErrorMessage: errorMessage,
		Details:      event.Details,
	}
	if r != nil {
		entry.IP = clientIP(r)
		entry.UserAgent = r.UserAgent()
	}
	if _, err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("audit: append entry: %w", err)
	}
	return nil
}

// RecordDenial appends a failure entry for a denied request. It is
// best-effort: a failed write is logged and swallowed so the 401/403 still
// reaches the caller.
func (s *Service) RecordDenial(ctx context.Context, r *http.Request, actorID *int64, resource permission.Resource, reason string) {
	err := s.LogAction(ctx, r, Event{
		ActorID:  actorID,
		Action:   ActionDenied,
		Resource: string(resource),
	}, OutcomeFailure, reason)
	if err != nil {
		s.logger.Warn("record denial", slog.Any("error", err), slog.String("resource", string(resource)))
	}
}

// Query returns matching entries newest-first plus the total count. Reading
// the trail never itself appends an entry.
func (s *Service) Query(ctx context.Context, filters Filters) ([]Entry, int64, error) {
	page := shared.NormalizePage(filters.Limit, filters.Offset)
	filters.Limit = page.Limit
	filters.Offset = page.Offset
	return s.repo.List(ctx, filters)
}

// ClearOlderThan prunes entries older than daysAgo days (DefaultRetentionDays
// when daysAgo <= 0) and returns the deleted count.
func (s *Service) ClearOlderThan(ctx context.Context, daysAgo int) (int64, error) {
	if daysAgo <= 0 {
		daysAgo = DefaultRetentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -daysAgo)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

// clientIP trusts RemoteAddr, which the RealIP middleware has already
// rewritten from forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
