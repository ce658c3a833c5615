package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CardKind string

const (
	CardKindNormal CardKind = "normal"
	CardKindRare   CardKind = "rare"
	CardKindTrap   CardKind = "trap"
)

func (k CardKind) Valid() bool {
	switch k {
	case CardKindNormal, CardKindRare, CardKindTrap:
		return true
	}
	return false
}

// Card is a claimable tile in the shared pool. OwnerID and ExpiresAt are set
// together by a successful capture and cleared together by the expiry sweeper;
// a card with a nil OwnerID must always have a nil ExpiresAt.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	Name            string     `bun:"name,notnull" json:"name"`
	Image           string     `bun:"image" json:"image,omitempty"`
	PointValue      int64      `bun:"point_value,notnull" json:"pointValue"`
	DurationSeconds int        `bun:"duration_seconds,notnull" json:"durationSeconds"`
	Kind            CardKind   `bun:"kind,notnull" json:"kind"`
	OwnerID         *string    `bun:"owner_id" json:"ownerId"`
	ExpiresAt       *time.Time `bun:"expires_at" json:"expiresAt"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Available reports whether the card can be captured at the given instant:
// either it was never claimed or its previous ownership has lapsed. This is
// the advisory pre-check; the authoritative answer comes from the conditional
// update in CardRepository.Capture.
func (c *Card) Available(now time.Time) bool {
	if c.OwnerID == nil {
		return true
	}
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

func (c *Card) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}
