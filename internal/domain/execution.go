package domain

import "context"

// Fill is the result returned by an execution adapter for a bet decision.
// The ledger mutates only when Success is true.
type Fill struct {
	Success       bool
	PositionID    string
	TxHash        string
	ExecutedPrice float64
	ExecutedSize  float64 // stake actually deployed, net of fees
	Fees          float64
	Leverage      *float64
	Error         string
	Mode          string // "simulation" or "live"
}

// Executor turns a bet decision into a fill on the decision's venue. It is
// the only component that resolves Venue.
type Executor interface {
	Execute(ctx context.Context, decision BetDecision) (Fill, error)
}

// OpportunitySource produces candidate opportunities for one scan pass.
// Implementations live outside the core (market scanners, replay feeds).
type OpportunitySource interface {
	Scan(ctx context.Context) ([]Opportunity, error)
	Name() string
}
