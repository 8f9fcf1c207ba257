package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
)

func newTestService(t *testing.T, cfg Config) (*Service, *MemoryRepository, *audit.MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	auditRepo := audit.NewMemoryRepository()
	svc := NewService(repo, audit.NewService(auditRepo, nil), cfg, nil)
	return svc, repo, auditRepo
}

func TestLockAfterThreshold(t *testing.T) {
	svc, _, _ := newTestService(t, Config{Threshold: 5, Window: 15 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := svc.RecordFailure(ctx, "ana@lumenshop.dev", "203.0.113.4"); err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
		locked, err := svc.IsLocked(ctx, "ana@lumenshop.dev")
		if err != nil {
			t.Fatalf("is locked: %v", err)
		}
		if locked {
			t.Fatalf("locked after %d failures, threshold is 5", i+1)
		}
	}

	if err := svc.RecordFailure(ctx, "ana@lumenshop.dev", "203.0.113.4"); err != nil {
		t.Fatalf("record fifth failure: %v", err)
	}
	locked, err := svc.IsLocked(ctx, "ana@lumenshop.dev")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !locked {
		t.Fatal("not locked after reaching threshold")
	}

	// Other identifiers are unaffected.
	locked, err = svc.IsLocked(ctx, "ben@lumenshop.dev")
	if err != nil {
		t.Fatalf("is locked other: %v", err)
	}
	if locked {
		t.Fatal("unrelated identifier locked")
	}
}

func TestIdentifierNormalized(t *testing.T) {
	svc, _, _ := newTestService(t, Config{Threshold: 2, Window: 15 * time.Minute})
	ctx := context.Background()

	if err := svc.RecordFailure(ctx, "  Ana@LumenShop.dev ", "203.0.113.4"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.RecordFailure(ctx, "ana@lumenshop.dev", "203.0.113.4"); err != nil {
		t.Fatalf("record: %v", err)
	}
	locked, err := svc.IsLocked(ctx, "ANA@lumenshop.DEV")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !locked {
		t.Fatal("case variants must count against one identifier")
	}
}

func TestWindowExpiryUnlocks(t *testing.T) {
	svc, _, _ := newTestService(t, Config{Threshold: 2, Window: 15 * time.Minute})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	for i := 0; i < 2; i++ {
		if err := svc.RecordFailure(ctx, "ana@lumenshop.dev", ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	locked, err := svc.IsLocked(ctx, "ana@lumenshop.dev")
	if err != nil || !locked {
		t.Fatalf("locked=%v err=%v, want locked inside window", locked, err)
	}

	svc.now = func() time.Time { return base.Add(16 * time.Minute) }
	locked, err = svc.IsLocked(ctx, "ana@lumenshop.dev")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if locked {
		t.Fatal("still locked after window expiry")
	}
}

func TestUnlockClearsAndAudits(t *testing.T) {
	svc, repo, auditRepo := newTestService(t, Config{Threshold: 2, Window: 15 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.RecordFailure(ctx, "ana@lumenshop.dev", ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := svc.Unlock(ctx, nil, 42, "Ana@lumenshop.dev"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	locked, err := svc.IsLocked(ctx, "ana@lumenshop.dev")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if locked {
		t.Fatal("still locked after unlock")
	}
	if count, _ := repo.CountSince(ctx, "ana@lumenshop.dev", time.Time{}); count != 0 {
		t.Fatalf("failures remaining = %d, want 0", count)
	}

	entries, total, err := auditRepo.List(ctx, audit.Filters{Action: "lockout.unlock"})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if total != 1 {
		t.Fatalf("unlock audit entries = %d, want 1", total)
	}
	e := entries[0]
	if e.ActorID == nil || *e.ActorID != 42 {
		t.Fatalf("unlock actor = %v, want 42", e.ActorID)
	}
	if e.ResourceID != "ana@lumenshop.dev" {
		t.Fatalf("unlock resource id = %q", e.ResourceID)
	}
}

func TestClearOlderThanPrunesOnlyStale(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base.AddDate(0, 0, -31) }
	if err := svc.RecordFailure(ctx, "old@lumenshop.dev", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	svc.now = func() time.Time { return base.AddDate(0, 0, -1) }
	if err := svc.RecordFailure(ctx, "new@lumenshop.dev", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	svc.now = func() time.Time { return base }
	deleted, err := svc.ClearOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	deleted, err = svc.ClearOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("second clear deleted = %d, want 0", deleted)
	}
}
