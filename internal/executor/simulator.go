// Package executor turns bet decisions into fills. The Simulator is the only
// shipped adapter: it models slippage, venue fees, and leverage without
// touching a real venue, so the engine can be exercised end to end on paper.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/degenlabs/moonshot/internal/domain"
)

// Per-venue execution parameters. Slippage is the worst-case fraction drawn
// uniformly per fill; the fee rate applies to the stake.
var venueParams = map[domain.Venue]struct {
	maxSlippage float64
	feeRate     float64
}{
	domain.VenuePolymarket:  {maxSlippage: 0.02, feeRate: 0.002},
	domain.VenueBaseDEX:     {maxSlippage: 0.03, feeRate: 0.003},
	domain.VenueSolanaDEX:   {maxSlippage: 0.02, feeRate: 0.001},
	domain.VenueHyperliquid: {maxSlippage: 0.001, feeRate: 0.0002},
}

// defaultMetaLeverage is assumed when a hyperliquid opportunity does not
// advertise its own cap.
const defaultMetaLeverage = 20.0

// Simulator implements domain.Executor with paper fills.
type Simulator struct {
	rng         *rand.Rand
	maxLeverage float64
	logger      *slog.Logger
}

// NewSimulator creates a Simulator. rng drives slippage and must not be nil;
// seed it for reproducible runs. maxLeverage caps leverage on venues that
// support it.
func NewSimulator(rng *rand.Rand, maxLeverage float64, logger *slog.Logger) *Simulator {
	return &Simulator{
		rng:         rng,
		maxLeverage: maxLeverage,
		logger:      logger.With("component", "executor"),
	}
}

// Execute fills the decision at the opportunity's current price adjusted for
// slippage, always against the trade. The returned fill's ExecutedSize is the
// stake net of fees.
func (s *Simulator) Execute(ctx context.Context, decision domain.BetDecision) (domain.Fill, error) {
	if err := ctx.Err(); err != nil {
		return domain.Fill{}, err
	}

	opp := decision.Opportunity
	positionID := "pos_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	params, ok := venueParams[opp.Venue]
	if !ok {
		s.logger.Warn("rejecting fill for unknown venue",
			"venue", string(opp.Venue), "market", opp.MarketID)
		return domain.Fill{
			Success:    false,
			PositionID: positionID,
			Error:      fmt.Sprintf("unknown venue: %s", opp.Venue),
			Mode:       "simulation",
		}, fmt.Errorf("executor: %w: %s", domain.ErrUnknownVenue, opp.Venue)
	}

	// Slippage moves the entry against the trade.
	slip := s.rng.Float64() * params.maxSlippage
	executedPrice := opp.CurrentPrice
	if opp.Kind.LongEquivalent() {
		executedPrice *= 1 + slip
	} else {
		executedPrice *= 1 - slip
	}

	fees := decision.SizeUSD * params.feeRate
	actualSize := decision.SizeUSD - fees

	var leverage *float64
	if opp.Venue.Leveraged() {
		lev := metaLeverage(opp.Meta)
		if lev > s.maxLeverage {
			lev = s.maxLeverage
		}
		leverage = &lev
	}

	s.logger.Info("simulated fill",
		"position_id", positionID,
		"venue", string(opp.Venue),
		"market", opp.MarketName,
		"price", executedPrice,
		"size_usd", actualSize,
		"fees", fees,
	)

	return domain.Fill{
		Success:       true,
		PositionID:    positionID,
		TxHash:        "0xSIM_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		ExecutedPrice: executedPrice,
		ExecutedSize:  actualSize,
		Fees:          fees,
		Leverage:      leverage,
		Mode:          "simulation",
	}, nil
}

// metaLeverage reads the venue-advertised leverage cap from opportunity
// metadata.
func metaLeverage(meta map[string]string) float64 {
	if meta != nil {
		if v, ok := meta["max_leverage"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1 {
				return f
			}
		}
	}
	return defaultMetaLeverage
}

var _ domain.Executor = (*Simulator)(nil)
