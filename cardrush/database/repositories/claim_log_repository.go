package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/uptrace/bun"
)

const cleanupInterval = 1 * time.Hour

type ClaimLogRepository interface {
	Append(ctx context.Context, entry *models.ClaimLog) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	StartCleanupRoutine(ctx context.Context, retention time.Duration)
}

type claimLogRepository struct {
	db *bun.DB
}

func NewClaimLogRepository(db *bun.DB) ClaimLogRepository {
	return &claimLogRepository{db: db}
}

func (r *claimLogRepository) Append(ctx context.Context, entry *models.ClaimLog) error {
	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

// CountSince returns how many claims the user has made with claimed_at on or
// after the window start.
func (r *claimLogRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*models.ClaimLog)(nil)).
		Where("user_id = ?", userID).
		Where("claimed_at >= ?", since).
		Count(ctx)
}

func (r *claimLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.ClaimLog)(nil)).
		Where("claimed_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCleanupRoutine garbage collects entries that can no longer fall inside
// any rate-limit window. The retention must be at least the widest configured
// window; entries still inside an active window are never deleted.
func (r *claimLogRepository) StartCleanupRoutine(ctx context.Context, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-2 * retention)
				deleted, err := r.DeleteOlderThan(ctx, cutoff)
				if err != nil {
					slog.Error("Failed to clean up claim log",
						slog.String("type", "db"),
						slog.Any("error", err))
					continue
				}
				if deleted > 0 {
					slog.Debug("Cleaned up claim log entries",
						slog.String("type", "db"),
						slog.Int64("deleted", deleted))
				}
			}
		}
	}()
}
