package domain

// AggressionTier buckets a decision by how large a slice of the bankroll it
// commits.
type AggressionTier string

const (
	TierCalculated AggressionTier = "calculated"
	TierAggressive AggressionTier = "aggressive"
	TierFullDegen  AggressionTier = "full_degen"
)

// ClassifyAggression maps a bankroll fraction to its tier.
func ClassifyAggression(sizePct float64) AggressionTier {
	switch {
	case sizePct > 0.20:
		return TierFullDegen
	case sizePct > 0.10:
		return TierAggressive
	default:
		return TierCalculated
	}
}

// BetDecision is the risk engine's sizing verdict for a single opportunity.
// It is immutable once produced; the execution adapter either fills it or
// discards it.
type BetDecision struct {
	Opportunity    Opportunity
	SizePct        float64 // fraction of bankroll, (0, max_single_bet_pct]
	SizeUSD        float64
	Tier           AggressionTier
	StopLossPrice  *float64
	ExpectedPayout float64
	Rationale      string
}
