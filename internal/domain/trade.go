package domain

import "time"

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitManual     ExitReason = "manual"
	ExitExpired    ExitReason = "expired"
)

// TradeRecord is the immutable snapshot taken when a position closes. The
// ledger's trade history is append-only.
type TradeRecord struct {
	PositionID     string        `json:"position_id"`
	Venue          Venue         `json:"venue"`
	MarketID       string        `json:"market_id"`
	MarketName     string        `json:"market_name"`
	Side           PositionSide  `json:"side"`
	EntryPrice     float64       `json:"entry_price"`
	ExitPrice      float64       `json:"exit_price"`
	SizeUSD        float64       `json:"size_usd"`
	RealizedPnL    float64       `json:"realized_pnl"`
	RealizedPnLPct float64       `json:"realized_pnl_pct"`
	HoldDuration   time.Duration `json:"hold_duration"`
	EntryTime      time.Time     `json:"entry_time"`
	ExitTime       time.Time     `json:"exit_time"`
	Reason         ExitReason    `json:"exit_reason"`
}

// Won reports whether the trade realized a profit.
func (t TradeRecord) Won() bool {
	return t.RealizedPnL > 0
}
