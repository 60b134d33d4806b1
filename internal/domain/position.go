package domain

import "time"

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// PositionSide is the direction of a held position. Yes-outcomes and longs
// are long-equivalent; no-outcomes and shorts are short-equivalent.
type PositionSide string

const (
	SideYes   PositionSide = "yes"
	SideNo    PositionSide = "no"
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// LongEquivalent reports whether the side profits from rising prices.
func (s PositionSide) LongEquivalent() bool {
	return s == SideYes || s == SideLong
}

// Position is a live or historical holding tracked by the ledger.
//
// Quantity is fixed at open time (size_usd / entry_price) and never
// recomputed from price. Only CurrentPrice and Status mutate after open.
type Position struct {
	ID               string         `json:"id"`
	Venue            Venue          `json:"venue"`
	MarketID         string         `json:"market_id"`
	MarketName       string         `json:"market_name"`
	Side             PositionSide   `json:"side"`
	EntryPrice       float64        `json:"entry_price"`
	CurrentPrice     float64        `json:"current_price"`
	SizeUSD          float64        `json:"size_usd"`
	Quantity         float64        `json:"quantity"`
	Leverage         *float64       `json:"leverage,omitempty"`
	LiquidationPrice *float64       `json:"liquidation_price,omitempty"`
	StopLoss         *float64       `json:"stop_loss,omitempty"`
	TakeProfit       *float64       `json:"take_profit,omitempty"`
	Status           PositionStatus `json:"status"`
	EntryTime        time.Time      `json:"entry_time"`
}

// Leveraged reports whether the position carries leverage above 1x.
func (p Position) Leveraged() bool {
	return p.Leverage != nil && *p.Leverage > 1.0
}

// Collateral is the cash locked against the position: full size for
// unleveraged positions, size/leverage otherwise.
func (p Position) Collateral() float64 {
	if p.Leveraged() {
		return p.SizeUSD / *p.Leverage
	}
	return p.SizeUSD
}

// UnrealizedPnL is the mark-to-market profit at CurrentPrice, side-aware and
// scaled by leverage for leveraged positions.
func (p Position) UnrealizedPnL() float64 {
	var pnl float64
	if p.Side.LongEquivalent() {
		pnl = (p.CurrentPrice - p.EntryPrice) * p.Quantity
	} else {
		pnl = (p.EntryPrice - p.CurrentPrice) * p.Quantity
	}
	if p.Leveraged() {
		pnl *= *p.Leverage
	}
	return pnl
}

// UnrealizedPnLPct expresses UnrealizedPnL as a percentage of position size.
func (p Position) UnrealizedPnLPct() float64 {
	if p.SizeUSD == 0 {
		return 0
	}
	return (p.UnrealizedPnL() / p.SizeUSD) * 100
}

// StopBreached reports whether CurrentPrice has crossed the stop level in the
// losing direction. Positions without a stop never trigger.
func (p Position) StopBreached() bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side.LongEquivalent() {
		return p.CurrentPrice <= *p.StopLoss
	}
	return p.CurrentPrice >= *p.StopLoss
}

// TakeProfitReached reports whether CurrentPrice has crossed the take-profit
// level in the winning direction.
func (p Position) TakeProfitReached() bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side.LongEquivalent() {
		return p.CurrentPrice >= *p.TakeProfit
	}
	return p.CurrentPrice <= *p.TakeProfit
}
