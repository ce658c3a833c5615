package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ClaimLog is an append-only record of successful claims. It exists for
// rate-limit windowing and auditing; entries are never updated, only garbage
// collected once they fall outside the widest configured window.
type ClaimLog struct {
	bun.BaseModel `bun:"table:claim_logs,alias:cl"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"userId"`
	CardID    int64     `bun:"card_id,notnull" json:"cardId"`
	ClaimedAt time.Time `bun:"claimed_at,notnull" json:"claimedAt"`
}
