package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/ellavondegurechaff/cardrush/cardrush/realtime"
	"github.com/ellavondegurechaff/cardrush/cardrush/services"
	webmodels "github.com/ellavondegurechaff/cardrush/web/models"
)

// stubArbiter returns a canned result for every claim.
type stubArbiter struct {
	card *models.Card
	err  error
}

func (s *stubArbiter) AttemptClaim(ctx context.Context, userID string, cardID int64) (*models.Card, error) {
	return s.card, s.err
}

func newTestApp(t *testing.T, arbiter ClaimArbiter) (*fiber.App, string) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	hub := realtime.NewHub(30 * time.Second)

	webApp := NewWebApp(nil, nil, arbiter, nil, tokens, hub)

	app := fiber.New()
	SetupRoutes(app, webApp)

	token, err := tokens.Issue(&models.User{ID: "u1", Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)
	return app, token
}

func doClaim(t *testing.T, app *fiber.App, token string) (*http.Response, *webmodels.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/cards/7/claim", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope webmodels.APIResponse
	require.NoError(t, json.Unmarshal(body, &envelope))
	return resp, &envelope
}

func TestClaimCard_Success(t *testing.T) {
	owner := "u1"
	expires := time.Now().Add(30 * time.Second)
	arbiter := &stubArbiter{card: &models.Card{
		ID:      7,
		Name:    "Blue Falcon",
		OwnerID: &owner, ExpiresAt: &expires,
	}}
	app, token := newTestApp(t, arbiter)

	resp, envelope := doClaim(t, app, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Card claimed", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", data["ownerUsername"])
}

func TestClaimCard_RequiresAuth(t *testing.T) {
	app, _ := newTestApp(t, &stubArbiter{})

	resp, envelope := doClaim(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestClaimCard_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantDetails map[string]string
	}{
		{
			name:       "cooldown",
			err:        &services.ClaimError{Code: services.ClaimCooldownActive, RemainingSeconds: 17},
			wantStatus: http.StatusBadRequest,
			wantCode:   "cooldown_active",
			wantDetails: map[string]string{
				"remainingSeconds": "17",
			},
		},
		{
			name:       "active card limit",
			err:        &services.ClaimError{Code: services.ClaimActiveCardLimit, Limit: 2},
			wantStatus: http.StatusBadRequest,
			wantCode:   "active_card_limit",
			wantDetails: map[string]string{
				"limit": "2",
			},
		},
		{
			name:       "rate limited",
			err:        &services.ClaimError{Code: services.ClaimRateLimited, Limit: 3, WindowMinutes: 2},
			wantStatus: http.StatusBadRequest,
			wantCode:   "rate_limited",
			wantDetails: map[string]string{
				"limit":         "3",
				"windowMinutes": "2",
			},
		},
		{
			name:       "card taken",
			err:        &services.ClaimError{Code: services.ClaimCardTaken},
			wantStatus: http.StatusBadRequest,
			wantCode:   "card_taken",
		},
		{
			name:       "capture lost",
			err:        &services.ClaimError{Code: services.ClaimCaptureLost},
			wantStatus: http.StatusBadRequest,
			wantCode:   "capture_lost",
		},
		{
			name:       "card not found",
			err:        &services.ClaimError{Code: services.ClaimCardNotFound},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "user not found",
			err:        &services.ClaimError{Code: services.ClaimUserNotFound},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
		{
			name:       "infrastructure failure",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, token := newTestApp(t, &stubArbiter{err: tt.err})

			resp, envelope := doClaim(t, app, token)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.False(t, envelope.Success)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, envelope.Error.Details)
			}
		})
	}
}

func TestClaimCard_InvalidID(t *testing.T) {
	app, token := newTestApp(t, &stubArbiter{})

	req := httptest.NewRequest(http.MethodPost, "/api/cards/not-a-number/claim", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
