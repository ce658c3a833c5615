package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/uptrace/bun"
)

var (
	// ErrCardNotFound is returned when a card id does not resolve.
	ErrCardNotFound = errors.New("card not found")
	// ErrCaptureLost is returned when the conditional capture update matched
	// zero rows, meaning another claim won the race since the caller's read.
	ErrCaptureLost = errors.New("card capture lost to a concurrent claim")
)

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetAll(ctx context.Context) ([]*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)

	CountActiveByOwner(ctx context.Context, userID string, now time.Time) (int, error)
	Capture(ctx context.Context, cardID int64, userID string, expiresAt, now time.Time) (*models.Card, error)
	GetLapsed(ctx context.Context, now time.Time) ([]*models.Card, error)
	ReclaimLapsed(ctx context.Context, ids []int64, now time.Time) (int64, error)
}

type cardRepository struct {
	db *bun.DB
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	card.CreatedAt = time.Now()
	card.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(card).Exec(ctx)
	return err
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return card, nil
}

func (r *cardRepository) GetAll(ctx context.Context) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Order("created_at DESC").
		Scan(ctx)
	return cards, err
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	card.UpdatedAt = time.Now()
	res, err := r.db.NewUpdate().
		Model(card).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*models.Card)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *cardRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*models.Card)(nil)).Count(ctx)
}

// CountActiveByOwner counts cards the user currently owns with an unexpired
// duration. Used by the arbiter's active-card cap pre-check.
func (r *cardRepository) CountActiveByOwner(ctx context.Context, userID string, now time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*models.Card)(nil)).
		Where("owner_id = ?", userID).
		Where("expires_at > ?", now).
		Count(ctx)
}

// Capture performs the atomic ownership transition. The WHERE clause re-checks
// availability at write time, so of all concurrent claims on one card exactly
// one sees a row update; the rest get ErrCaptureLost.
func (r *cardRepository) Capture(ctx context.Context, cardID int64, userID string, expiresAt, now time.Time) (*models.Card, error) {
	card := new(models.Card)
	res, err := r.db.NewUpdate().
		Model(card).
		Set("owner_id = ?", userID).
		Set("expires_at = ?", expiresAt).
		Set("updated_at = ?", now).
		Where("id = ?", cardID).
		Where("(owner_id IS NULL OR expires_at < ?)", now).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture update failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrCaptureLost
	}
	return card, nil
}

// GetLapsed returns cards whose ownership duration has ended but which have
// not been reclaimed yet.
func (r *cardRepository) GetLapsed(ctx context.Context, now time.Time) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("owner_id IS NOT NULL").
		Where("expires_at <= ?", now).
		Scan(ctx)
	return cards, err
}

// ReclaimLapsed clears ownership on the given cards in one bulk conditional
// update. The expires_at re-check keeps a reclaim from clobbering a card that
// was re-captured between the sweeper's read and this write.
func (r *cardRepository) ReclaimLapsed(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.NewUpdate().
		Model((*models.Card)(nil)).
		Set("owner_id = NULL").
		Set("expires_at = NULL").
		Set("updated_at = ?", now).
		Where("id IN (?)", bun.In(ids)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
