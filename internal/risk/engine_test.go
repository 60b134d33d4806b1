package risk

import (
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/moonshot/internal/domain"
)

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.StartingCapital == 0 {
		cfg.StartingCapital = 2.00
	}
	if cfg.TargetCapital == 0 {
		cfg.TargetCapital = 2_000_000
	}
	if cfg.KellyFraction == 0 {
		cfg.KellyFraction = 0.5
	}
	if cfg.MaxSingleBetPct == 0 {
		cfg.MaxSingleBetPct = 0.25
	}
	if cfg.StopLossPct == 0 {
		cfg.StopLossPct = 0.15
	}
	if cfg.Optimism == "" {
		cfg.Optimism = OptimismDelusional
	}
	return New(cfg, rand.New(rand.NewSource(1)), slog.Default())
}

func TestEvaluateTwoDollarFullDegen(t *testing.T) {
	e := testEngine(t, Config{
		MinEdgeThreshold: 0.05,
		CompoundWins:     true,
	})

	opp := domain.Opportunity{
		MarketID:     "mkt-1",
		MarketName:   "test market",
		Venue:        domain.VenuePolymarket,
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.30,
		FairValue:    0.45,
		Confidence:   0.70,
	}

	d := e.Evaluate(opp)
	require.NotNil(t, d)

	// win_prob = 0.70 + 0.05 bias = 0.75; odds = (1/0.30)*0.70 ≈ 2.333;
	// kelly ≈ 0.643; after 0.5 * 1.6 ≈ 0.514; clamped to 0.25.
	assert.InDelta(t, 0.25, d.SizePct, 1e-9)
	assert.InDelta(t, 0.50, d.SizeUSD, 1e-9)
	assert.Equal(t, domain.TierFullDegen, d.Tier)
	assert.NotEmpty(t, d.Rationale)
	require.NotNil(t, d.StopLossPrice)
	assert.InDelta(t, 0.30*(1-0.15), *d.StopLossPrice, 1e-9)
}

func TestKellySizeClamped(t *testing.T) {
	e := testEngine(t, Config{Optimism: OptimismAscended, CompoundWins: true})

	// Build a long win streak so every multiplier is maxed out.
	for i := 0; i < 10; i++ {
		e.RecordResult(true, 1)
	}

	got := e.KellySize(0.95, 10)
	assert.LessOrEqual(t, got, 0.25)
	assert.GreaterOrEqual(t, got, 0.0)

	// Negative-edge inputs floor at zero rather than going short.
	assert.Equal(t, 0.0, e.KellySize(0.05, 1))
	assert.Equal(t, 0.0, e.KellySize(0.5, 0))
}

func TestEvaluateRejectsThinEdge(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  100,
		MinEdgeThreshold: 0.05,
		Optimism:         OptimismModerate,
		CompoundWins:     true,
	})

	opp := domain.Opportunity{
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.50,
		FairValue:    0.53, // edge 0.03 < 0.05
		Confidence:   0.70,
	}
	assert.Nil(t, e.Evaluate(opp))
}

func TestEdgeThresholdHalvedAfterThreeLosses(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  100,
		MinEdgeThreshold: 0.05,
		Optimism:         OptimismModerate,
		CompoundWins:     true,
	})

	opp := domain.Opportunity{
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.50,
		FairValue:    0.53,
		Confidence:   0.70,
	}

	require.Nil(t, e.Evaluate(opp), "edge below threshold should be rejected")

	e.RecordResult(false, -1)
	e.RecordResult(false, -1)
	require.Nil(t, e.Evaluate(opp), "two losses do not lower the bar")

	e.RecordResult(false, -1)
	assert.NotNil(t, e.Evaluate(opp), "three losses halve the edge gate")
}

func TestEvaluateRejectsDustStakes(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  0.20, // 25% of this is below the minimum stake
		MinEdgeThreshold: 0.05,
		CompoundWins:     true,
	})

	opp := domain.Opportunity{
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.30,
		FairValue:    0.45,
		Confidence:   0.70,
	}
	assert.Nil(t, e.Evaluate(opp))
}

func TestStreakTransitions(t *testing.T) {
	e := testEngine(t, Config{StartingCapital: 100, CompoundWins: true})

	e.RecordResult(true, 1)
	e.RecordResult(true, 1)
	st := e.Status()
	assert.Equal(t, StreakWin, st.Streak)
	assert.Equal(t, 2, st.ConsecutiveWins)
	assert.Equal(t, 0, st.ConsecutiveLosses)

	e.RecordResult(false, -1)
	st = e.Status()
	assert.Equal(t, StreakLoss, st.Streak)
	assert.Equal(t, 1, st.ConsecutiveLosses)
	assert.Equal(t, 0, st.ConsecutiveWins)

	e.RecordResult(false, -1)
	assert.Equal(t, 2, e.Status().ConsecutiveLosses)
}

func TestDoublingsRecomputedOnNewPeak(t *testing.T) {
	e := testEngine(t, Config{StartingCapital: 2, TargetCapital: 2_000_000, CompoundWins: true})

	e.RecordResult(true, 6) // bankroll 8 = 2 doublings
	st := e.Status()
	assert.Equal(t, 2, st.Doublings)
	assert.Equal(t, 20, st.DoublingsNeeded) // 2 * 2^20 > 2M > 2 * 2^19

	// A loss does not lower recorded doublings; they track the peak.
	e.RecordResult(false, -5)
	assert.Equal(t, 2, e.Status().Doublings)
}

func TestShouldCutLossesOnDrawdown(t *testing.T) {
	e := testEngine(t, Config{StartingCapital: 100, CompoundWins: true})

	e.RecordResult(false, -49.9)
	assert.False(t, e.ShouldCutLosses())

	e.SetBankroll(50) // exactly half of peak
	assert.True(t, e.ShouldCutLosses())
}

func TestShouldCutLossesOnLossStreak(t *testing.T) {
	e := testEngine(t, Config{StartingCapital: 1000, CompoundWins: true})

	for i := 0; i < 4; i++ {
		e.RecordResult(false, -1)
	}
	assert.False(t, e.ShouldCutLosses())

	e.RecordResult(false, -1)
	assert.True(t, e.ShouldCutLosses())
}

func TestWinRatePriorAndFloor(t *testing.T) {
	e := testEngine(t, Config{StartingCapital: 100, CompoundWins: true})
	assert.Equal(t, 0.6, e.WinRate(), "optimistic prior before any result")

	for i := 0; i < 20; i++ {
		e.RecordResult(false, -1)
	}
	assert.Equal(t, 0.1, e.WinRate(), "observed rate floors at 0.1")
}

func TestSizingWithoutCompounding(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  2,
		MinEdgeThreshold: 0.05,
		CompoundWins:     false,
	})
	e.SetBankroll(100)

	opp := domain.Opportunity{
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.30,
		FairValue:    0.45,
		Confidence:   0.70,
	}
	d := e.Evaluate(opp)
	require.NotNil(t, d)
	// Sized against starting capital, not the inflated bankroll.
	assert.InDelta(t, 0.50, d.SizeUSD, 1e-9)
}

func TestRankOrdersByWeightedPayout(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  100,
		MinEdgeThreshold: 0.05,
		CompoundWins:     true,
	})

	strong := domain.Opportunity{
		MarketID:        "strong",
		Kind:            domain.BetKindProbYes,
		CurrentPrice:    0.20,
		FairValue:       0.60,
		Confidence:      0.85,
		TimeSensitivity: 0.9,
	}
	weak := domain.Opportunity{
		MarketID:     "weak",
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.60,
		FairValue:    0.70,
		Confidence:   0.55,
	}

	ranked := e.Rank([]domain.Opportunity{weak, strong})
	require.Len(t, ranked, 2)
	assert.Equal(t, "strong", ranked[0].Opportunity.MarketID)
	assert.Equal(t, "weak", ranked[1].Opportunity.MarketID)
}

func TestStopWidenedOnHighConviction(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  100,
		MinEdgeThreshold: 0.05,
		CompoundWins:     true,
	})

	opp := domain.Opportunity{
		Kind:         domain.BetKindLong,
		CurrentPrice: 10,
		FairValue:    14,
		Confidence:   0.85,
	}
	d := e.Evaluate(opp)
	require.NotNil(t, d)
	require.NotNil(t, d.StopLossPrice)
	// stop_pct widened from 0.15 to 0.225
	assert.InDelta(t, 10*(1-0.225), *d.StopLossPrice, 1e-9)
}

func TestProbabilityStopFloor(t *testing.T) {
	e := testEngine(t, Config{
		StartingCapital:  100,
		MinEdgeThreshold: 0.05,
		CompoundWins:     true,
	})

	opp := domain.Opportunity{
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.012,
		FairValue:    0.08,
		Confidence:   0.9,
	}
	d := e.Evaluate(opp)
	require.NotNil(t, d)
	require.NotNil(t, d.StopLossPrice)
	assert.InDelta(t, 0.01, *d.StopLossPrice, 1e-9)
}
