// Package feed provides opportunity sources for the trader loop. The shipped
// sources are synthetic: each maintains a small catalog of markets whose
// prices follow a seeded random walk, so paper runs see realistic entries,
// drawdowns, and exits without any network access.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/degenlabs/moonshot/internal/domain"
)

// market is one synthetic instrument with evolving state.
type market struct {
	id       string
	name     string
	venue    domain.Venue
	kind     domain.BetKind
	price    float64
	drift    float64 // per-scan expected move, fraction of price
	vol      float64 // per-scan random move, fraction of price
	volume   float64
	meta     map[string]string
	priceMin float64
	priceMax float64
}

// step advances the market price one tick of its random walk.
func (m *market) step(rng *rand.Rand) {
	move := m.drift + (rng.Float64()*2-1)*m.vol
	m.price *= 1 + move
	if m.price < m.priceMin {
		m.price = m.priceMin
	}
	if m.price > m.priceMax {
		m.price = m.priceMax
	}
}

// Synthetic implements domain.OpportunitySource over a fixed catalog.
type Synthetic struct {
	name    string
	rng     *rand.Rand
	markets []*market
	prices  domain.PriceCache
	logger  *slog.Logger
	now     func() time.Time
}

// NewPredictionFeed builds a source of probability-market opportunities in
// the polymarket style: prices in (0,1), yes and no outcomes.
func NewPredictionFeed(rng *rand.Rand, prices domain.PriceCache, logger *slog.Logger) *Synthetic {
	questions := []struct {
		id, name string
		price    float64
	}{
		{"pm-btc-150k", "Will BTC close above $150k this quarter?", 0.30},
		{"pm-eth-flip", "Will ETH flip BTC by year end?", 0.04},
		{"pm-fed-cut", "Will the Fed cut rates next meeting?", 0.62},
		{"pm-sol-ath", "Will SOL make a new all-time high this month?", 0.22},
		{"pm-l2-merge", "Will a top-5 L2 announce a merger this year?", 0.11},
	}

	markets := make([]*market, 0, len(questions))
	for i, q := range questions {
		kind := domain.BetKindProbYes
		if i%2 == 1 {
			kind = domain.BetKindProbNo
		}
		markets = append(markets, &market{
			id:       q.id,
			name:     q.name,
			venue:    domain.VenuePolymarket,
			kind:     kind,
			price:    q.price,
			drift:    0,
			vol:      0.04,
			volume:   20_000 + rng.Float64()*180_000,
			priceMin: 0.01,
			priceMax: 0.99,
		})
	}

	return &Synthetic{
		name:    "prediction",
		rng:     rng,
		markets: markets,
		prices:  prices,
		logger:  logger.With("component", "feed", "feed", "prediction"),
		now:     time.Now,
	}
}

// NewDEXFeed builds a source of directional opportunities across the DEX and
// perpetuals venues.
func NewDEXFeed(rng *rand.Rand, prices domain.PriceCache, logger *slog.Logger) *Synthetic {
	markets := []*market{
		{
			id: "base-degen", name: "DEGEN/WETH", venue: domain.VenueBaseDEX,
			kind: domain.BetKindLong, price: 0.012, drift: 0.002, vol: 0.08,
			volume: 400_000, priceMin: 0.0001, priceMax: 10,
		},
		{
			id: "base-brett", name: "BRETT/WETH", venue: domain.VenueBaseDEX,
			kind: domain.BetKindLong, price: 0.085, drift: -0.001, vol: 0.10,
			volume: 250_000, priceMin: 0.0001, priceMax: 10,
		},
		{
			id: "sol-wif", name: "WIF/SOL", venue: domain.VenueSolanaDEX,
			kind: domain.BetKindLong, price: 1.85, drift: 0.001, vol: 0.07,
			volume: 900_000, priceMin: 0.001, priceMax: 100,
		},
		{
			id: "hl-btc-perp", name: "BTC-PERP", venue: domain.VenueHyperliquid,
			kind: domain.BetKindLong, price: 97_000, drift: 0.0005, vol: 0.02,
			volume: 5_000_000, priceMin: 1000, priceMax: 1_000_000,
			meta: map[string]string{"max_leverage": "20"},
		},
		{
			id: "hl-eth-perp", name: "ETH-PERP", venue: domain.VenueHyperliquid,
			kind: domain.BetKindShort, price: 3_400, drift: -0.0005, vol: 0.025,
			volume: 2_500_000, priceMin: 100, priceMax: 100_000,
			meta: map[string]string{"max_leverage": "15"},
		},
	}

	return &Synthetic{
		name:    "dex",
		rng:     rng,
		markets: markets,
		prices:  prices,
		logger:  logger.With("component", "feed", "feed", "dex"),
		now:     time.Now,
	}
}

// Name identifies the feed in logs.
func (s *Synthetic) Name() string {
	return s.name
}

// Scan advances every market one tick, publishes the new prices, and returns
// the subset that currently looks mispriced. Confidence and momentum are
// derived from the walk so consecutive scans stay coherent.
func (s *Synthetic) Scan(ctx context.Context) ([]domain.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	var opps []domain.Opportunity

	for _, m := range s.markets {
		prev := m.price
		m.step(s.rng)

		if s.prices != nil {
			if err := s.prices.SetPrice(ctx, m.id, m.price, now); err != nil {
				return nil, fmt.Errorf("feed %s: publish price %s: %w", s.name, m.id, err)
			}
		}

		momentum := 0.0
		if prev > 0 {
			momentum = clamp((m.price-prev)/prev*10, -1, 1)
		}

		// Fair value disagrees with the market by a random amount; most
		// scans produce no edge worth acting on.
		skew := (s.rng.Float64()*2 - 1) * 0.25
		fair := m.price * (1 + skew)
		if m.kind.Probability() {
			fair = clamp(fair, 0.01, 0.99)
		}

		opps = append(opps, domain.Opportunity{
			MarketID:        m.id,
			MarketName:      m.name,
			Venue:           m.venue,
			Kind:            m.kind,
			CurrentPrice:    m.price,
			FairValue:       fair,
			Confidence:      0.4 + s.rng.Float64()*0.5,
			Volume24h:       m.volume * (0.8 + s.rng.Float64()*0.4),
			MomentumScore:   momentum,
			TimeSensitivity: s.rng.Float64(),
			Meta:            m.meta,
		})
	}

	s.logger.Debug("scan complete", "opportunities", len(opps))
	return opps, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ domain.OpportunitySource = (*Synthetic)(nil)
