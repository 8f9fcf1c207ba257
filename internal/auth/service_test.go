package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
	"github.com/lumenshop/lumenshop-admin/internal/lockout"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

type stubRepo struct {
	users    map[string]*User
	sessions map[string]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[string]*User), sessions: make(map[string]int64)}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func seedUser(t *testing.T, repo *stubRepo, email, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo.users[email] = &User{
		ID:           int64(len(repo.users) + 1),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

func newAuthFixture(t *testing.T, threshold int) (*Service, *lockout.Service, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	lockouts := lockout.NewService(
		lockout.NewMemoryRepository(),
		audit.NewService(audit.NewMemoryRepository(), nil),
		lockout.Config{Threshold: threshold, Window: 15 * time.Minute},
		nil,
	)
	return NewService(repo, lockouts), lockouts, repo
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, _, repo := newAuthFixture(t, 5)
	seedUser(t, repo, "ana@lumenshop.dev", "correct horse", true)

	user, err := svc.Authenticate(context.Background(), " Ana@LumenShop.dev ", "correct horse", "203.0.113.4")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Email != "ana@lumenshop.dev" {
		t.Fatalf("email = %q", user.Email)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, lockouts, repo := newAuthFixture(t, 5)
	seedUser(t, repo, "ana@lumenshop.dev", "correct horse", true)

	_, err := svc.Authenticate(context.Background(), "ana@lumenshop.dev", "wrong", "203.0.113.4")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	locked, err := lockouts.IsLocked(context.Background(), "ana@lumenshop.dev")
	if err != nil || locked {
		t.Fatalf("locked=%v err=%v after one failure", locked, err)
	}
}

func TestAuthenticateUnknownEmailCountsFailure(t *testing.T) {
	svc, lockouts, _ := newAuthFixture(t, 2)

	for i := 0; i < 2; i++ {
		if _, err := svc.Authenticate(context.Background(), "nobody@lumenshop.dev", "x", ""); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i, err)
		}
	}
	locked, err := lockouts.IsLocked(context.Background(), "nobody@lumenshop.dev")
	if err != nil || !locked {
		t.Fatalf("locked=%v err=%v, want locked", locked, err)
	}
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc, _, repo := newAuthFixture(t, 5)
	seedUser(t, repo, "off@lumenshop.dev", "correct horse", false)

	if _, err := svc.Authenticate(context.Background(), "off@lumenshop.dev", "correct horse", ""); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateLockedBeforeCredentialCheck(t *testing.T) {
	svc, lockouts, repo := newAuthFixture(t, 5)
	seedUser(t, repo, "ana@lumenshop.dev", "correct horse", true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Authenticate(ctx, "ana@lumenshop.dev", "wrong", ""); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}

	// Once locked, even the correct password is rejected with the lockout
	// error, not the credential error.
	if _, err := svc.Authenticate(ctx, "ana@lumenshop.dev", "correct horse", ""); !errors.Is(err, shared.ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}

	if err := lockouts.Unlock(ctx, nil, 1, "ana@lumenshop.dev"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@lumenshop.dev", "correct horse", ""); err != nil {
		t.Fatalf("authenticate after unlock: %v", err)
	}
}
