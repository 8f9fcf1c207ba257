package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lumenshop/lumenshop-admin/internal/lockout"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	lockouts *lockout.Service
}

// NewService constructs a new Service.
func NewService(repo Repository, lockouts *lockout.Service) *Service {
	return &Service{repo: repo, lockouts: lockouts}
}

// Authenticate validates email/password credentials. A locked identifier is
// rejected before any account lookup or hash comparison so the lockout
// response carries no timing signal about credential validity. Failures are
// recorded against the lockout tracker.
func (s *Service) Authenticate(ctx context.Context, email, password, ip string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.lockouts != nil {
		locked, err := s.lockouts.IsLocked(ctx, email)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, shared.ErrAccountLocked
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.recordFailure(ctx, email, ip)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		s.recordFailure(ctx, email, ip)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, email, ip)
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *Service) recordFailure(ctx context.Context, email, ip string) {
	if s.lockouts == nil {
		return
	}
	// Failure bookkeeping must not change the login response.
	_ = s.lockouts.RecordFailure(ctx, email, ip)
}
