package services

import "fmt"

// ClaimCode identifies a typed claim rejection.
type ClaimCode string

const (
	// ClaimUserNotFound means the claiming identity does not resolve to a
	// player record. Treated as unexpected at the boundary.
	ClaimUserNotFound ClaimCode = "user_not_found"
	// ClaimCooldownActive means the user's cooldown has not elapsed.
	ClaimCooldownActive ClaimCode = "cooldown_active"
	// ClaimActiveCardLimit means the user already holds the maximum number of
	// active cards.
	ClaimActiveCardLimit ClaimCode = "active_card_limit"
	// ClaimRateLimited means the user exhausted their claims for the trailing
	// window.
	ClaimRateLimited ClaimCode = "rate_limited"
	// ClaimCardNotFound means the card id does not resolve.
	ClaimCardNotFound ClaimCode = "card_not_found"
	// ClaimCardTaken means the advisory availability pre-check failed: the
	// card was already owned when the pipeline read it.
	ClaimCardTaken ClaimCode = "card_taken"
	// ClaimCaptureLost means the pre-check passed but the atomic capture
	// matched zero rows: a concurrent claim won the race. Retryable.
	ClaimCaptureLost ClaimCode = "capture_lost"
)

// ClaimError is a typed claim rejection. The numeric fields carry the detail
// the presentation layer needs to render countdowns and limits without
// parsing the message text.
type ClaimError struct {
	Code             ClaimCode `json:"code"`
	RemainingSeconds int       `json:"remainingSeconds,omitempty"`
	Limit            int       `json:"limit,omitempty"`
	WindowMinutes    int       `json:"windowMinutes,omitempty"`
}

func (e *ClaimError) Error() string {
	switch e.Code {
	case ClaimUserNotFound:
		return "User not found"
	case ClaimCooldownActive:
		return fmt.Sprintf("Cooldown active. Wait %d seconds.", e.RemainingSeconds)
	case ClaimActiveCardLimit:
		return fmt.Sprintf("You can only have %d active cards.", e.Limit)
	case ClaimRateLimited:
		return fmt.Sprintf("Rate limit exceeded. Max %d claims every %d minutes.", e.Limit, e.WindowMinutes)
	case ClaimCardNotFound:
		return "Card not found"
	case ClaimCardTaken:
		return "Card is already taken"
	case ClaimCaptureLost:
		return "Card was just claimed by someone else."
	}
	return string(e.Code)
}

// Retryable reports whether the client may immediately retry (with fresh
// state). Only a genuine race loss qualifies.
func (e *ClaimError) Retryable() bool {
	return e.Code == ClaimCaptureLost
}

func newClaimError(code ClaimCode) *ClaimError {
	return &ClaimError{Code: code}
}
