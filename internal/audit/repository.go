package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit entries. Append, filtered read and bulk retention
// pruning are the only operations; nothing updates a written row.
type Repository interface {
	Insert(ctx context.Context, entry Entry) (int64, error)
	List(ctx context.Context, filters Filters) ([]Entry, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Insert appends one entry.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) (int64, error) {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return 0, fmt.Errorf("audit: marshal details: %w", err)
	}
	var id int64
	err = r.pool.QueryRow(ctx, `INSERT INTO audit_logs
(occurred_at, actor_id, action, resource, resource_id, outcome, error_message, details, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		entry.OccurredAt, entry.ActorID, entry.Action, entry.Resource, entry.ResourceID,
		string(entry.Outcome), entry.ErrorMessage, details, entry.IP, entry.UserAgent).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// List returns matching entries newest-first plus the total match count.
func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Entry, int64, error) {
	where, args := buildFilter(filters)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, occurred_at, actor_id, action, resource, resource_id, outcome, error_message, details, ip, user_agent
FROM audit_logs%s ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.ActorID, &e.Action, &e.Resource, &e.ResourceID,
			&e.Outcome, &e.ErrorMessage, &details, &e.IP, &e.UserAgent); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("audit: unmarshal details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// DeleteOlderThan removes entries strictly older than cutoff and reports the
// deleted count. The timestamp filter means it commutes with concurrent
// appends of newer rows.
func (r *PGRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildFilter(filters Filters) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filters.ActorID != nil {
		add("actor_id = $%d", *filters.ActorID)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}
	if filters.Resource != "" {
		add("resource = $%d", filters.Resource)
	}
	if filters.Outcome != "" {
		add("outcome = $%d", string(filters.Outcome))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
