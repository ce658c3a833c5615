package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *ClaimError
		want string
	}{
		{"user not found", &ClaimError{Code: ClaimUserNotFound}, "User not found"},
		{"cooldown", &ClaimError{Code: ClaimCooldownActive, RemainingSeconds: 42}, "Cooldown active. Wait 42 seconds."},
		{"active card limit", &ClaimError{Code: ClaimActiveCardLimit, Limit: 2}, "You can only have 2 active cards."},
		{"rate limited", &ClaimError{Code: ClaimRateLimited, Limit: 3, WindowMinutes: 2}, "Rate limit exceeded. Max 3 claims every 2 minutes."},
		{"card not found", &ClaimError{Code: ClaimCardNotFound}, "Card not found"},
		{"card taken", &ClaimError{Code: ClaimCardTaken}, "Card is already taken"},
		{"capture lost", &ClaimError{Code: ClaimCaptureLost}, "Card was just claimed by someone else."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestClaimError_Retryable(t *testing.T) {
	assert.True(t, (&ClaimError{Code: ClaimCaptureLost}).Retryable())

	for _, code := range []ClaimCode{
		ClaimUserNotFound, ClaimCooldownActive, ClaimActiveCardLimit,
		ClaimRateLimited, ClaimCardNotFound, ClaimCardTaken,
	} {
		assert.False(t, (&ClaimError{Code: code}).Retryable(), string(code))
	}
}
