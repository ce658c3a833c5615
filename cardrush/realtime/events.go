package realtime

import "github.com/ellavondegurechaff/cardrush/cardrush/database/models"

// Wire message types pushed to viewers.
const (
	EventCardUpdated        = "cardUpdated"
	EventCardExpired        = "cardExpired"
	EventLeaderboardUpdated = "leaderboardUpdated"
)

// Message is the wire envelope for all realtime traffic.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// CardPayload is a card decorated with its owner's display name.
type CardPayload struct {
	models.Card
	OwnerUsername string `json:"ownerUsername,omitempty"`
}

// LeaderboardEntry is the payload of a leaderboardUpdated event.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	TotalPoints int64  `json:"totalPoints"`
}
