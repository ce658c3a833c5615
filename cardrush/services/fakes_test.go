package services

import (
	"context"
	"sync"
	"time"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memStore is an in-memory entitlement store + claim log with the same
// conditional-update semantics as the Postgres repositories. The mutex makes
// each conditional write atomic, which is exactly the contract the arbiter
// relies on.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	cards  map[int64]*models.Card
	users  map[string]*models.User
	logs   []*models.ClaimLog
}

func newMemStore() *memStore {
	return &memStore{
		cards: make(map[int64]*models.Card),
		users: make(map[string]*models.User),
	}
}

func (s *memStore) addCard(card *models.Card) *models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	card.ID = s.nextID
	s.cards[card.ID] = card
	return card
}

func (s *memStore) addUser(user *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return user
}

func (s *memStore) card(id int64) models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cards[id]
}

func (s *memStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, repositories.ErrCardNotFound
	}
	clone := *card
	return &clone, nil
}

func (s *memStore) CountActiveByOwner(ctx context.Context, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, card := range s.cards {
		if card.OwnerID != nil && *card.OwnerID == userID && card.ExpiresAt != nil && card.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) Capture(ctx context.Context, cardID int64, userID string, expiresAt, now time.Time) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return nil, repositories.ErrCaptureLost
	}
	available := card.OwnerID == nil || (card.ExpiresAt != nil && card.ExpiresAt.Before(now))
	if !available {
		return nil, repositories.ErrCaptureLost
	}
	owner := userID
	expiry := expiresAt
	card.OwnerID = &owner
	card.ExpiresAt = &expiry
	card.UpdatedAt = now
	clone := *card
	return &clone, nil
}

func (s *memStore) GetLapsed(ctx context.Context, now time.Time) ([]*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lapsed []*models.Card
	for _, card := range s.cards {
		if card.OwnerID != nil && card.ExpiresAt != nil && !card.ExpiresAt.After(now) {
			clone := *card
			lapsed = append(lapsed, &clone)
		}
	}
	return lapsed, nil
}

func (s *memStore) ReclaimLapsed(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reclaimed int64
	for _, id := range ids {
		card, ok := s.cards[id]
		if !ok || card.ExpiresAt == nil || card.ExpiresAt.After(now) {
			continue
		}
		card.OwnerID = nil
		card.ExpiresAt = nil
		card.UpdatedAt = now
		reclaimed++
	}
	return reclaimed, nil
}

// UserStore implementation.

func (s *memStore) getUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) ApplyClaimOutcome(ctx context.Context, userID string, pointsDelta int64, cooldownUntil time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	user.TotalPoints += pointsDelta
	until := cooldownUntil
	user.CooldownUntil = &until
	clone := *user
	return &clone, nil
}

// ClaimLogStore implementation.

func (s *memStore) Append(ctx context.Context, entry *models.ClaimLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

func (s *memStore) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, entry := range s.logs {
		if entry.UserID == userID && !entry.ClaimedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// userStore adapts memStore's user methods to the UserStore interface name
// expected by the arbiter.
type userStore struct{ *memStore }

func (s userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, id)
}

// fakeBroadcaster records every emitted event.
type fakeBroadcaster struct {
	mu          sync.Mutex
	updated     []string // usernames attached to cardUpdated events
	expired     []int64  // card ids of cardExpired events
	leaderboard []int64  // totalPoints of leaderboardUpdated events
}

func (b *fakeBroadcaster) CardUpdated(card *models.Card, ownerUsername string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updated = append(b.updated, ownerUsername)
}

func (b *fakeBroadcaster) CardExpired(card *models.Card) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired = append(b.expired, card.ID)
}

func (b *fakeBroadcaster) LeaderboardUpdated(userID, username string, totalPoints int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaderboard = append(b.leaderboard, totalPoints)
}

func (b *fakeBroadcaster) expiredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.expired)
}
