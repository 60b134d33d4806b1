package domain

// BetKind distinguishes probability-market outcome bets (prices in (0,1),
// paying 1/price on resolution) from directional asset bets.
type BetKind string

const (
	BetKindProbYes BetKind = "prob_yes"
	BetKindProbNo  BetKind = "prob_no"
	BetKindLong    BetKind = "long"
	BetKindShort   BetKind = "short"
)

// Probability reports whether the bet is a probability-market outcome bet.
func (k BetKind) Probability() bool {
	return k == BetKindProbYes || k == BetKindProbNo
}

// LongEquivalent reports whether the bet profits when price rises
// (yes-outcomes and longs) as opposed to falling (no-outcomes and shorts).
func (k BetKind) LongEquivalent() bool {
	return k == BetKindProbYes || k == BetKindLong
}

// Side converts the bet kind to the position side recorded in the ledger.
func (k BetKind) Side() PositionSide {
	switch k {
	case BetKindProbYes:
		return SideYes
	case BetKindProbNo:
		return SideNo
	case BetKindShort:
		return SideShort
	default:
		return SideLong
	}
}

// Opportunity is a candidate bet surfaced by an external scanner. The core
// performs no network or parsing work; it consumes these values as-is.
type Opportunity struct {
	MarketID        string
	MarketName      string
	Venue           Venue
	Kind            BetKind
	CurrentPrice    float64
	FairValue       float64
	Confidence      float64 // 0..1
	Volume24h       float64 // >= 0
	MomentumScore   float64 // -1..1
	TimeSensitivity float64 // 0..1, how urgent
	Meta            map[string]string
}

// PerceivedEdge is the estimated mispricing. Probability markets use the
// absolute price difference; directional bets normalize by the current price.
func (o Opportunity) PerceivedEdge() float64 {
	diff := o.FairValue - o.CurrentPrice
	if diff < 0 {
		diff = -diff
	}
	if o.Kind.Probability() {
		return diff
	}
	return diff / max(o.CurrentPrice, 0.001)
}

// ExpectedReturn is the confidence-weighted payout multiplier. A probability
// share bought at price p pays 1/p on resolution; a directional bet pays the
// fair-value/price ratio.
func (o Opportunity) ExpectedReturn() float64 {
	if o.Kind.Probability() {
		if o.CurrentPrice > 0 {
			return (1.0 / o.CurrentPrice) * o.Confidence
		}
		return 0
	}
	return (o.FairValue / max(o.CurrentPrice, 0.001)) * o.Confidence
}
