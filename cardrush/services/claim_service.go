package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	"github.com/ellavondegurechaff/cardrush/cardrush/logger"
)

// CardStore is the slice of the card repository the arbiter needs.
type CardStore interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	CountActiveByOwner(ctx context.Context, userID string, now time.Time) (int, error)
	Capture(ctx context.Context, cardID int64, userID string, expiresAt, now time.Time) (*models.Card, error)
}

// UserStore is the slice of the user repository the arbiter needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ApplyClaimOutcome(ctx context.Context, userID string, pointsDelta int64, cooldownUntil time.Time) (*models.User, error)
}

// ClaimLogStore records successful claims for rate-limit windowing.
type ClaimLogStore interface {
	Append(ctx context.Context, entry *models.ClaimLog) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Broadcaster pushes state changes to live viewers. Calls are fire-and-forget:
// a delivery failure never affects the claim that triggered it.
type Broadcaster interface {
	CardUpdated(card *models.Card, ownerUsername string)
	CardExpired(card *models.Card)
	LeaderboardUpdated(userID, username string, totalPoints int64)
}

// ClaimConfig are the arbitration knobs, already resolved to durations.
type ClaimConfig struct {
	MaxClaimsPerWindow int
	ClaimWindow        time.Duration
	MaxActiveCards     int
	BaseCooldown       time.Duration
	TrapPenalty        time.Duration
}

// ClaimService is the claim arbiter: it runs one claim request through the
// ordered validation pipeline and executes the ownership transition.
//
// Every read before the capture is advisory and may be stale by the time the
// write lands; the single-owner guarantee rests solely on the conditional
// update in CardStore.Capture.
type ClaimService struct {
	cards       CardStore
	users       UserStore
	claimLog    ClaimLogStore
	broadcaster Broadcaster
	clock       Clock
	cfg         ClaimConfig
}

func NewClaimService(cards CardStore, users UserStore, claimLog ClaimLogStore, broadcaster Broadcaster, clock Clock, cfg ClaimConfig) *ClaimService {
	return &ClaimService{
		cards:       cards,
		users:       users,
		claimLog:    claimLog,
		broadcaster: broadcaster,
		clock:       clock,
		cfg:         cfg,
	}
}

// AttemptClaim processes one claim of cardID by userID. On success it returns
// the captured card with ownership set; on rejection it returns a *ClaimError.
// Any other error is an infrastructure failure.
func (s *ClaimService) AttemptClaim(ctx context.Context, userID string, cardID int64) (*models.Card, error) {
	start := time.Now()
	card, err := s.attemptClaim(ctx, userID, cardID)
	logger.LogClaim(userID, cardID, time.Since(start), err)
	return card, err
}

func (s *ClaimService) attemptClaim(ctx context.Context, userID string, cardID int64) (*models.Card, error) {
	now := s.clock.Now()

	// 1. User existence.
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, newClaimError(ClaimUserNotFound)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	// 2. Cooldown.
	if user.OnCooldown(now) {
		remaining := int(math.Ceil(user.CooldownUntil.Sub(now).Seconds()))
		if remaining < 1 {
			remaining = 1
		}
		return nil, &ClaimError{Code: ClaimCooldownActive, RemainingSeconds: remaining}
	}

	// 3. Active-card cap.
	active, err := s.cards.CountActiveByOwner(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("count active cards: %w", err)
	}
	if active >= s.cfg.MaxActiveCards {
		return nil, &ClaimError{Code: ClaimActiveCardLimit, Limit: s.cfg.MaxActiveCards}
	}

	// 4. Rate limit over the trailing window.
	windowStart := now.Add(-s.cfg.ClaimWindow)
	recent, err := s.claimLog.CountSince(ctx, userID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("count recent claims: %w", err)
	}
	if recent >= s.cfg.MaxClaimsPerWindow {
		return nil, &ClaimError{
			Code:          ClaimRateLimited,
			Limit:         s.cfg.MaxClaimsPerWindow,
			WindowMinutes: int(s.cfg.ClaimWindow.Minutes()),
		}
	}

	// 5. Card existence.
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, newClaimError(ClaimCardNotFound)
		}
		return nil, fmt.Errorf("load card: %w", err)
	}

	// 6. Advisory availability pre-check. Fails fast for the common case; the
	// capture below is the authoritative check.
	if !card.Available(now) {
		return nil, newClaimError(ClaimCardTaken)
	}

	// 7. Atomic capture.
	expiresAt := now.Add(card.Duration())
	captured, err := s.cards.Capture(ctx, cardID, userID, expiresAt, now)
	if err != nil {
		if errors.Is(err, repositories.ErrCaptureLost) {
			return nil, newClaimError(ClaimCaptureLost)
		}
		return nil, fmt.Errorf("capture card: %w", err)
	}

	// 8. Scoring.
	pointsDelta, cooldown := s.scoreCapture(captured)

	// 9. Cooldown stacking: a still-active cooldown extends from its current
	// end, never resets to now. Repeated trap hits therefore accumulate.
	cooldownBase := now
	if user.OnCooldown(now) {
		cooldownBase = *user.CooldownUntil
	}
	cooldownUntil := cooldownBase.Add(cooldown)

	// 10. Log first, then apply. The log append is the conservative side: a
	// double-counted window is acceptable, a missed entry is not.
	if err := s.claimLog.Append(ctx, &models.ClaimLog{
		UserID:    userID,
		CardID:    cardID,
		ClaimedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("append claim log: %w", err)
	}

	updatedUser, err := s.users.ApplyClaimOutcome(ctx, userID, pointsDelta, cooldownUntil)
	if err != nil {
		return nil, fmt.Errorf("apply claim outcome: %w", err)
	}

	// 11. Notify viewers. Fire-and-forget; the claim already committed.
	s.broadcaster.CardUpdated(captured, updatedUser.Username)
	s.broadcaster.LeaderboardUpdated(updatedUser.ID, updatedUser.Username, updatedUser.TotalPoints)

	return captured, nil
}

func (s *ClaimService) scoreCapture(card *models.Card) (pointsDelta int64, cooldown time.Duration) {
	cooldown = s.cfg.BaseCooldown
	switch card.Kind {
	case models.CardKindRare:
		pointsDelta = 2 * card.PointValue
	case models.CardKindTrap:
		pointsDelta = -abs(card.PointValue)
		cooldown += s.cfg.TrapPenalty
	default:
		pointsDelta = card.PointValue
	}
	return pointsDelta, cooldown
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
