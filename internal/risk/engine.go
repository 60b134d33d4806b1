// Package risk implements the sizing decision engine: Kelly-derived bet
// sizing with streak-adaptive multipliers, opportunity evaluation and
// ranking, and the drawdown halt that gates new entries.
package risk

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/degenlabs/moonshot/internal/domain"
)

// StreakType labels the active run of results.
type StreakType string

const (
	StreakNone StreakType = ""
	StreakWin  StreakType = "win"
	StreakLoss StreakType = "loss"
)

const (
	// minBetPct is the smallest bankroll fraction worth acting on.
	minBetPct = 0.001
	// minStakeUSD is the smallest absolute stake worth the gas.
	minStakeUSD = 0.10
)

// Config holds the tunable parameters of the engine.
type Config struct {
	StartingCapital  float64
	TargetCapital    float64
	KellyFraction    float64
	MaxSingleBetPct  float64
	StopLossPct      float64
	MinEdgeThreshold float64
	Optimism         OptimismLevel
	CompoundWins     bool
}

// Engine owns the bankroll and streak state and produces at most one sizing
// decision per opportunity. It is single-writer: the cycle loop is the only
// caller, so no internal locking is performed.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger

	bankroll          float64
	peakBankroll      float64
	consecutiveWins   int
	consecutiveLosses int
	streak            StreakType
	totalBets         int
	winningBets       int
	doublings         int
}

// New creates an Engine seeded with the configured starting capital. The rand
// source is injected so evaluation is reproducible under test.
func New(cfg Config, rng *rand.Rand, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		rng:          rng,
		logger:       logger.With(slog.String("component", "risk_engine")),
		bankroll:     cfg.StartingCapital,
		peakBankroll: cfg.StartingCapital,
	}
}

// Bankroll returns the engine's current bankroll.
func (e *Engine) Bankroll() float64 { return e.bankroll }

// SetBankroll overrides the bankroll, used when restoring from a snapshot.
// The peak only moves up.
func (e *Engine) SetBankroll(v float64) {
	e.bankroll = v
	if v > e.peakBankroll {
		e.peakBankroll = v
	}
}

// WinRate returns the observed win rate with an optimistic 0.6 prior before
// any bet settles, floored at 0.1.
func (e *Engine) WinRate() float64 {
	if e.totalBets == 0 {
		return 0.6
	}
	return math.Max(float64(e.winningBets)/float64(e.totalBets), 0.1)
}

// Evaluate decides whether and how much to bet on a single opportunity.
// It returns nil when the opportunity does not clear the edge gate or the
// resulting stake is too small to bother with. A nil return is normal
// control flow, not an error.
func (e *Engine) Evaluate(opp domain.Opportunity) *domain.BetDecision {
	edge := opp.PerceivedEdge()

	// Lower the bar on a losing streak: we need to get back in the game.
	minEdge := e.cfg.MinEdgeThreshold
	if e.consecutiveLosses >= 3 {
		minEdge *= 0.5
	}
	if edge < minEdge {
		return nil
	}

	winProb := e.estimateWinProbability(opp)
	odds := opp.ExpectedReturn()
	betPct := e.KellySize(winProb, odds)
	if betPct <= minBetPct {
		return nil
	}

	betUSD := e.sizingBankroll() * betPct
	if betUSD < minStakeUSD {
		return nil
	}

	tier := domain.ClassifyAggression(betPct)
	stop := e.stopLossPrice(opp)
	expectedPayout := betUSD * odds * winProb

	decision := &domain.BetDecision{
		Opportunity:    opp,
		SizePct:        betPct,
		SizeUSD:        betUSD,
		Tier:           tier,
		StopLossPrice:  stop,
		ExpectedPayout: expectedPayout,
		Rationale:      e.rationale(opp, tier, winProb, edge, betPct),
	}

	e.logger.Debug("opportunity sized",
		slog.String("market", opp.MarketID),
		slog.Float64("edge", edge),
		slog.Float64("win_prob", winProb),
		slog.Float64("bet_pct", betPct),
		slog.String("tier", string(tier)),
	)

	return decision
}

// Rank evaluates every opportunity and returns the accepted decisions sorted
// best-first: expected payout weighted by time sensitivity, with a bump for
// full-degen plays.
func (e *Engine) Rank(opps []domain.Opportunity) []domain.BetDecision {
	decisions := make([]domain.BetDecision, 0, len(opps))
	for _, opp := range opps {
		if d := e.Evaluate(opp); d != nil {
			decisions = append(decisions, *d)
		}
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return rankScore(decisions[i]) > rankScore(decisions[j])
	})
	return decisions
}

func rankScore(d domain.BetDecision) float64 {
	score := d.ExpectedPayout * (1 + d.Opportunity.TimeSensitivity)
	if d.Tier == domain.TierFullDegen {
		score *= 1.2
	}
	return score
}

// KellySize computes the bankroll fraction for the given win probability and
// odds: f = (b·p − q)/b, scaled by the fractional-Kelly multiplier, the
// optimism multiplier, and the streak multiplier, then clamped to
// [0, max_single_bet_pct].
func (e *Engine) KellySize(winProb, odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	q := 1 - winProb
	kelly := (odds*winProb - q) / odds

	kelly *= e.cfg.KellyFraction
	kelly *= e.cfg.Optimism.Multiplier()
	kelly *= e.streakMultiplier()

	return math.Max(math.Min(kelly, e.cfg.MaxSingleBetPct), 0)
}

// streakMultiplier scales bet size with the active streak. Hot hands ride up
// to 1.5x; losing streaks get a capped win-it-back bump up to 1.8x.
func (e *Engine) streakMultiplier() float64 {
	switch e.streak {
	case StreakWin:
		return math.Min(1.0+float64(e.consecutiveWins)*0.1, 1.5)
	case StreakLoss:
		return math.Min(1.0+float64(e.consecutiveLosses)*0.15, 1.8)
	}
	return 1.0
}

// estimateWinProbability combines base confidence, momentum, a volume
// confirmation bonus, and the optimism bias, clamped to [0.05, 0.95].
func (e *Engine) estimateWinProbability(opp domain.Opportunity) float64 {
	prob := opp.Confidence + opp.MomentumScore*0.1

	if opp.Volume24h > 10_000 {
		prob += math.Min(opp.Volume24h/100_000, 0.05)
	}

	prob += e.cfg.Optimism.Bias()

	return math.Max(math.Min(prob, 0.95), 0.05)
}

// stopLossPrice places the stop below entry by the configured fraction,
// widened 1.5x on high-conviction plays. Probability-market stops are floored
// at 0.01 since those prices live in (0,1).
func (e *Engine) stopLossPrice(opp domain.Opportunity) *float64 {
	stopPct := e.cfg.StopLossPct
	if opp.Confidence > 0.8 {
		stopPct *= 1.5
	}

	stop := opp.CurrentPrice * (1 - stopPct)
	if opp.Kind.Probability() {
		stop = math.Max(stop, 0.01)
	}
	return &stop
}

// sizingBankroll is the capital base bets are sized against. With
// compounding disabled, gains above starting capital are not re-risked.
func (e *Engine) sizingBankroll() float64 {
	if !e.cfg.CompoundWins {
		return math.Min(e.bankroll, e.cfg.StartingCapital)
	}
	return e.bankroll
}

// RecordResult settles a bet against the bankroll and updates streak state.
// Switching streak direction resets the opposite counter and starts the new
// one at 1; staying in the same direction increments.
func (e *Engine) RecordResult(won bool, pnl float64) {
	e.totalBets++
	e.bankroll += pnl

	if e.bankroll > e.peakBankroll {
		e.peakBankroll = e.bankroll
		if e.peakBankroll > e.cfg.StartingCapital {
			e.doublings = int(math.Log2(e.peakBankroll / e.cfg.StartingCapital))
		} else {
			e.doublings = 0
		}
	}

	if won {
		e.winningBets++
		if e.streak == StreakWin {
			e.consecutiveWins++
		} else {
			e.streak = StreakWin
			e.consecutiveWins = 1
			e.consecutiveLosses = 0
		}
	} else {
		if e.streak == StreakLoss {
			e.consecutiveLosses++
		} else {
			e.streak = StreakLoss
			e.consecutiveLosses = 1
			e.consecutiveWins = 0
		}
	}

	e.logger.Info("result recorded",
		slog.Bool("won", won),
		slog.Float64("pnl", pnl),
		slog.Float64("bankroll", e.bankroll),
		slog.String("streak", string(e.streak)),
	)
}

// ShouldCutLosses reports whether new entries should pause: drawdown from
// peak has reached 50%, or five straight losses. Advisory only; it mutates
// nothing.
func (e *Engine) ShouldCutLosses() bool {
	if e.peakBankroll > 0 {
		drawdown := (e.peakBankroll - e.bankroll) / e.peakBankroll
		if drawdown >= 0.50 {
			return true
		}
	}
	return e.consecutiveLosses >= 5
}

// Status is a point-in-time report of the engine state.
type Status struct {
	Bankroll          float64
	PeakBankroll      float64
	TotalBets         int
	WinningBets       int
	WinRate           float64
	ConsecutiveWins   int
	ConsecutiveLosses int
	Streak            StreakType
	Doublings         int
	DoublingsNeeded   int
	ProgressPct       float64
	Optimism          OptimismLevel
}

// Status returns the current engine state for logging and display.
func (e *Engine) Status() Status {
	return Status{
		Bankroll:          e.bankroll,
		PeakBankroll:      e.peakBankroll,
		TotalBets:         e.totalBets,
		WinningBets:       e.winningBets,
		WinRate:           e.WinRate(),
		ConsecutiveWins:   e.consecutiveWins,
		ConsecutiveLosses: e.consecutiveLosses,
		Streak:            e.streak,
		Doublings:         e.doublings,
		DoublingsNeeded:   e.DoublingsNeeded(),
		ProgressPct:       e.ProgressPct(),
		Optimism:          e.cfg.Optimism,
	}
}

// DoublingsNeeded is how many doublings separate starting capital from the
// target.
func (e *Engine) DoublingsNeeded() int {
	if e.cfg.StartingCapital <= 0 || e.cfg.TargetCapital <= e.cfg.StartingCapital {
		return 0
	}
	return int(math.Ceil(math.Log2(e.cfg.TargetCapital / e.cfg.StartingCapital)))
}

// ProgressPct is the share of needed doublings achieved so far, capped at 100.
func (e *Engine) ProgressPct() float64 {
	if e.bankroll <= 0 {
		return 0
	}
	needed := e.DoublingsNeeded()
	if needed == 0 {
		return 100
	}
	var done float64
	if e.bankroll > e.cfg.StartingCapital {
		done = math.Log2(e.bankroll / e.cfg.StartingCapital)
	}
	return math.Min(done/float64(needed)*100, 100)
}
