package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a player. TotalPoints and CooldownUntil are mutated only by the
// claim arbiter; CooldownUntil never moves backward once set.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string     `bun:"id,pk" json:"id"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          string     `bun:"role,notnull,default:'user'" json:"role"`
	TotalPoints   int64      `bun:"total_points,notnull,default:0" json:"totalPoints"`
	CooldownUntil *time.Time `bun:"cooldown_until" json:"cooldownUntil"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// OnCooldown reports whether the user is still inside an active cooldown.
func (u *User) OnCooldown(now time.Time) bool {
	return u.CooldownUntil != nil && u.CooldownUntil.After(now)
}
