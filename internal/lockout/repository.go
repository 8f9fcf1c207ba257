package lockout

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists failed-login records.
type Repository interface {
	Insert(ctx context.Context, record FailedLogin) error
	CountSince(ctx context.Context, identifier string, since time.Time) (int, error)
	DeleteForIdentifier(ctx context.Context, identifier string) (int64, error)
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

// Insert appends one failure record.
func (r *PGRepository) Insert(ctx context.Context, record FailedLogin) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO failed_logins (identifier, ip, occurred_at) VALUES ($1, $2, $3)`,
		record.Identifier, record.IP, record.OccurredAt)
	return err
}

// CountSince counts failures for an identifier at or after since.
func (r *PGRepository) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM failed_logins WHERE identifier = $1 AND occurred_at >= $2`,
		identifier, since).Scan(&count)
	return count, err
}

// DeleteForIdentifier clears all failures for an identifier.
func (r *PGRepository) DeleteForIdentifier(ctx context.Context, identifier string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM failed_logins WHERE identifier = $1`, identifier)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteOlderThan prunes records strictly older than cutoff.
func (r *PGRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM failed_logins WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
