package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
)

// LapsedCardStore is the slice of the card repository the sweeper needs.
type LapsedCardStore interface {
	GetLapsed(ctx context.Context, now time.Time) ([]*models.Card, error)
	ReclaimLapsed(ctx context.Context, ids []int64, now time.Time) (int64, error)
}

// ExpiryService is the background sweeper that reclaims cards whose ownership
// has lapsed and notifies viewers. A tick that errors is abandoned; lapsed
// cards stay lapsed, so the next tick retries from scratch.
type ExpiryService struct {
	cards       LapsedCardStore
	broadcaster Broadcaster
	clock       Clock
	interval    time.Duration

	sweeping atomic.Bool
}

func NewExpiryService(cards LapsedCardStore, broadcaster Broadcaster, clock Clock, interval time.Duration) *ExpiryService {
	return &ExpiryService{
		cards:       cards,
		broadcaster: broadcaster,
		clock:       clock,
		interval:    interval,
	}
}

// Run ticks until the context is cancelled. If a sweep is still in flight
// when the next tick fires, that tick is skipped; two sweeps never run
// concurrently, so one lapse never produces duplicate expiry events.
func (s *ExpiryService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Expiry sweeper started",
		slog.String("type", "sys"),
		slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.sweeping.CompareAndSwap(false, true) {
				slog.Warn("Skipping sweep tick, previous sweep still running",
					slog.String("type", "sys"))
				continue
			}
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("Sweep tick failed",
					slog.String("type", "sys"),
					slog.Any("error", err))
			}
			s.sweeping.Store(false)
		}
	}
}

// Sweep performs one reclaim pass and returns how many cards were reclaimed.
// The bulk update re-checks expires_at at write time, so a card that was
// re-claimed between the read and the write is left untouched.
func (s *ExpiryService) Sweep(ctx context.Context) (int64, error) {
	now := s.clock.Now()

	lapsed, err := s.cards.GetLapsed(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(lapsed) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(lapsed))
	for _, card := range lapsed {
		ids = append(ids, card.ID)
	}

	reclaimed, err := s.cards.ReclaimLapsed(ctx, ids, now)
	if err != nil {
		return 0, err
	}

	// Emit from the pre-update snapshot with ownership forced clear, so the
	// payload matches what viewers should now see.
	for _, card := range lapsed {
		card.OwnerID = nil
		card.ExpiresAt = nil
		s.broadcaster.CardExpired(card)
	}

	slog.Info("Reclaimed lapsed cards",
		slog.String("type", "sys"),
		slog.Int("found", len(lapsed)),
		slog.Int64("reclaimed", reclaimed))

	return reclaimed, nil
}
