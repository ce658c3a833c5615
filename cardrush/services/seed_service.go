package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
)

// SeedCardStore is the slice of the card repository the seeder needs.
type SeedCardStore interface {
	Create(ctx context.Context, card *models.Card) error
	Count(ctx context.Context) (int, error)
}

// SeedService populates the starter deck: a pool of low-value normal tiles,
// a set of named rare cards and a set of trap cards.
type SeedService struct {
	cards SeedCardStore
}

func NewSeedService(cards SeedCardStore) *SeedService {
	return &SeedService{cards: cards}
}

// Seed inserts the starter deck. Unless force is set, a non-empty card table
// makes it a no-op so repeated startups don't duplicate the pool.
func (s *SeedService) Seed(ctx context.Context, force bool) (int, error) {
	if !force {
		count, err := s.cards.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count cards: %w", err)
		}
		if count > 0 {
			slog.Info("Card pool already seeded, skipping",
				slog.String("type", "sys"),
				slog.Int("existing", count))
			return 0, nil
		}
	}

	deck := starterDeck()
	for _, card := range deck {
		if err := s.cards.Create(ctx, card); err != nil {
			return 0, fmt.Errorf("seed card %q: %w", card.Name, err)
		}
	}

	slog.Info("Seeded starter deck",
		slog.String("type", "sys"),
		slog.Int("cards", len(deck)))

	return len(deck), nil
}

var normalNames = []string{
	"Stone Grid I", "Stone Grid II", "Iron Panel I", "Iron Panel II", "Marble Square I",
	"Bronze Tile I", "Silver Fragment I", "Moss Block I", "Clay Patch I", "Neutral Block I",
	"Granite Base I", "Iron Frame I", "Grid Core I", "Metal Square I", "Plain Surface I",
	"Base Tile I", "Steel Segment I", "Core Block I", "Flat Grid I", "Basic Tile I",
	"Stone Grid III", "Stone Grid IV", "Iron Panel III", "Iron Panel IV", "Marble Square II",
	"Bronze Tile II", "Silver Fragment II", "Moss Block II", "Clay Patch II", "Neutral Block II",
}

type seedCard struct {
	name     string
	points   int64
	duration int
}

var rareCards = []seedCard{
	{"Emily the Strategist", 22, 90},
	{"Roin the Swift", 25, 110},
	{"Daisy of Light", 20, 80},
	{"Lance the Guardian", 30, 120},
	{"Linda the Shadow", 24, 90},
	{"Renei the Mystic", 28, 100},
	{"Flame Warden", 32, 100},
	{"Storm Caller", 26, 75},
	{"Void Knight", 35, 120},
	{"Frost Queen", 31, 110},
	{"Arcane Archer", 27, 90},
	{"Nightblade", 29, 95},
}

var trapCards = []seedCard{
	{"Cursed Sigil", 12, 15},
	{"Burning Rift", 15, 20},
	{"Glitch Collapse", 10, 15},
	{"Blood Omen", 18, 25},
	{"Shadow Fracture", 11, 15},
	{"Dark Collapse", 13, 20},
	{"Poison Seal", 9, 15},
	{"Broken Mirror", 8, 10},
	{"Time Distortion", 14, 20},
	{"Lava Vein", 10, 15},
	{"Void Pulse", 16, 25},
	{"Death Mark", 14, 20},
	{"Abyss Crack", 12, 15},
}

func starterDeck() []*models.Card {
	var deck []*models.Card

	for _, name := range normalNames {
		deck = append(deck, &models.Card{
			Name:            name,
			PointValue:      int64(rand.Intn(5) + 2),  // 2-6
			DurationSeconds: rand.Intn(31) + 30,       // 30-60s
			Kind:            models.CardKindNormal,
		})
	}

	for _, c := range rareCards {
		deck = append(deck, &models.Card{
			Name:            c.name,
			PointValue:      c.points,
			DurationSeconds: c.duration,
			Kind:            models.CardKindRare,
		})
	}

	for _, c := range trapCards {
		deck = append(deck, &models.Card{
			Name:            c.name,
			PointValue:      c.points,
			DurationSeconds: c.duration,
			Kind:            models.CardKindTrap,
		})
	}

	return deck
}
