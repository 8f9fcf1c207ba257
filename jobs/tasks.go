package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
	jobmetrics "github.com/lumenshop/lumenshop-admin/internal/jobs"
	"github.com/lumenshop/lumenshop-admin/internal/lockout"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune removes audit entries past their retention window.
	TaskAuditPrune = "audit:prune"
	// TaskLockoutPrune removes stale failed-login records.
	TaskLockoutPrune = "lockout:prune"
)

// PrunePayload carries the retention horizon for prune tasks. Days <= 0 falls
// back to the service default.
type PrunePayload struct {
	Days int `json:"days"`
}

// NewAuditPruneTask constructs an audit retention task.
func NewAuditPruneTask(payload PrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// NewLockoutPruneTask constructs a failed-login retention task.
func NewLockoutPruneTask(payload PrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLockoutPrune, data), nil
}

// NewAuditPruneHandler returns the worker handler for TaskAuditPrune.
func NewAuditPruneHandler(svc *audit.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("audit_prune")
		var payload PrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		deleted, err := svc.ClearOlderThan(ctx, payload.Days)
		if err != nil {
			logger.Error("audit prune", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("audit prune complete", slog.Int64("deleted", deleted))
		return tracker.End(nil)
	}
}

// NewLockoutPruneHandler returns the worker handler for TaskLockoutPrune.
func NewLockoutPruneHandler(svc *lockout.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("lockout_prune")
		var payload PrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		deleted, err := svc.ClearOlderThan(ctx, payload.Days)
		if err != nil {
			logger.Error("lockout prune", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("lockout prune complete", slog.Int64("deleted", deleted))
		return tracker.End(nil)
	}
}
