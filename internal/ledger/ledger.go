// Package ledger implements the portfolio ledger: cash and position
// accounting, atomic open/close, stop-loss and take-profit detection, and
// snapshot persistence. Every public mutation is all-or-nothing; derived
// fields are computed before any state is touched.
package ledger

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/degenlabs/moonshot/internal/domain"
)

// Ledger owns cash and open positions. It is safe for concurrent use, though
// the cycle loop drives it single-writer in practice.
type Ledger struct {
	mu sync.Mutex

	cash            float64
	startingBalance float64
	realizedPnL     float64
	feesPaid        float64
	positions       map[string]*domain.Position
	history         []domain.TradeRecord
	priorTrades     int // closed-trade count carried over from a restored snapshot

	logger *slog.Logger
	now    func() time.Time
}

// New creates a Ledger holding the given starting cash.
func New(startingCash float64, logger *slog.Logger) *Ledger {
	return &Ledger{
		cash:            startingCash,
		startingBalance: startingCash,
		positions:       make(map[string]*domain.Position),
		logger:          logger.With(slog.String("component", "ledger")),
		now:             time.Now,
	}
}

// OpenParams carries everything needed to open a position.
type OpenParams struct {
	ID               string
	Venue            domain.Venue
	MarketID         string
	MarketName       string
	Side             domain.PositionSide
	EntryPrice       float64
	SizeUSD          float64
	StopLoss         *float64
	TakeProfit       *float64
	Leverage         *float64
	LiquidationPrice *float64
}

// OpenPosition locks collateral and inserts a new open position. It fails
// without mutating state when inputs are malformed or collateral exceeds
// available cash.
func (l *Ledger) OpenPosition(p OpenParams) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.EntryPrice <= 0 {
		return domain.Position{}, fmt.Errorf("ledger: open %s: entry price %.4f: %w", p.ID, p.EntryPrice, domain.ErrValidation)
	}
	if p.SizeUSD <= 0 {
		return domain.Position{}, fmt.Errorf("ledger: open %s: size %.4f: %w", p.ID, p.SizeUSD, domain.ErrValidation)
	}

	pos := domain.Position{
		ID:               p.ID,
		Venue:            p.Venue,
		MarketID:         p.MarketID,
		MarketName:       p.MarketName,
		Side:             p.Side,
		EntryPrice:       p.EntryPrice,
		CurrentPrice:     p.EntryPrice,
		SizeUSD:          p.SizeUSD,
		Quantity:         p.SizeUSD / p.EntryPrice,
		Leverage:         p.Leverage,
		LiquidationPrice: p.LiquidationPrice,
		StopLoss:         p.StopLoss,
		TakeProfit:       p.TakeProfit,
		Status:           domain.PositionStatusOpen,
		EntryTime:        l.now().UTC(),
	}

	collateral := pos.Collateral()
	if collateral > l.cash {
		return domain.Position{}, fmt.Errorf("ledger: open %s: need %.2f collateral, have %.2f cash: %w",
			p.ID, collateral, l.cash, domain.ErrInsufficientFunds)
	}

	// Commit point: all fields computed, nothing can fail past here.
	l.cash -= collateral
	l.positions[pos.ID] = &pos

	l.logger.Info("position opened",
		slog.String("position_id", pos.ID),
		slog.String("market", pos.MarketID),
		slog.String("side", string(pos.Side)),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Float64("size_usd", pos.SizeUSD),
		slog.Float64("collateral", collateral),
	)

	return pos, nil
}

// ClosePosition closes an open position at the given exit price, credits
// collateral plus side-aware (and leverage-aware) P&L back to cash, and
// appends an immutable trade record. Closed positions stay closed.
func (l *Ledger) ClosePosition(id string, exitPrice float64, reason domain.ExitReason) (domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[id]
	if !ok {
		return domain.TradeRecord{}, fmt.Errorf("ledger: close %s: %w", id, domain.ErrNotFound)
	}
	if pos.Status != domain.PositionStatusOpen {
		return domain.TradeRecord{}, fmt.Errorf("ledger: close %s: %w", id, domain.ErrPositionClosed)
	}

	// Compute everything against a marked copy before committing.
	marked := *pos
	marked.CurrentPrice = exitPrice
	pnl := marked.UnrealizedPnL()
	pnlPct := marked.UnrealizedPnLPct()
	exitTime := l.now().UTC()

	record := domain.TradeRecord{
		PositionID:     pos.ID,
		Venue:          pos.Venue,
		MarketID:       pos.MarketID,
		MarketName:     pos.MarketName,
		Side:           pos.Side,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      exitPrice,
		SizeUSD:        pos.SizeUSD,
		RealizedPnL:    pnl,
		RealizedPnLPct: pnlPct,
		HoldDuration:   exitTime.Sub(pos.EntryTime),
		EntryTime:      pos.EntryTime,
		ExitTime:       exitTime,
		Reason:         reason,
	}

	// Commit point.
	pos.CurrentPrice = exitPrice
	pos.Status = domain.PositionStatusClosed
	l.cash += pos.Collateral() + pnl
	l.realizedPnL += pnl
	l.history = append(l.history, record)

	l.logger.Info("position closed",
		slog.String("position_id", id),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("realized_pnl", pnl),
		slog.String("reason", string(reason)),
	)

	return record, nil
}

// UpdatePrice marks an open position to the latest observed price.
func (l *Ledger) UpdatePrice(id string, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[id]
	if !ok {
		return fmt.Errorf("ledger: update price %s: %w", id, domain.ErrNotFound)
	}
	if pos.Status != domain.PositionStatusOpen {
		return fmt.Errorf("ledger: update price %s: %w", id, domain.ErrPositionClosed)
	}
	pos.CurrentPrice = price
	return nil
}

// CheckStopLosses returns the IDs of open positions whose current price has
// breached their stop, direction-aware. It does not close anything: what to
// close is separate from doing the close.
func (l *Ledger) CheckStopLosses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var triggered []string
	for id, pos := range l.positions {
		if pos.Status != domain.PositionStatusOpen {
			continue
		}
		if pos.StopBreached() {
			triggered = append(triggered, id)
		}
	}
	sort.Strings(triggered)
	return triggered
}

// CheckTakeProfits returns the IDs of open positions whose current price has
// reached their take-profit level.
func (l *Ledger) CheckTakeProfits() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var triggered []string
	for id, pos := range l.positions {
		if pos.Status != domain.PositionStatusOpen {
			continue
		}
		if pos.TakeProfitReached() {
			triggered = append(triggered, id)
		}
	}
	sort.Strings(triggered)
	return triggered
}

// AddFees records execution fees paid outside the position P&L.
func (l *Ledger) AddFees(fees float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.feesPaid += fees
}

// Position returns a copy of the position with the given ID.
func (l *Ledger) Position(id string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[id]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// OpenPositions returns copies of all open positions, oldest first.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var open []domain.Position
	for _, pos := range l.positions {
		if pos.Status == domain.PositionStatusOpen {
			open = append(open, *pos)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if open[i].EntryTime.Equal(open[j].EntryTime) {
			return open[i].ID < open[j].ID
		}
		return open[i].EntryTime.Before(open[j].EntryTime)
	})
	return open
}

// History returns a copy of the in-memory trade history.
func (l *Ledger) History() []domain.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TradeRecord, len(l.history))
	copy(out, l.history)
	return out
}

// TradeCount is the total number of closed trades, including those recorded
// before the last snapshot restore.
func (l *Ledger) TradeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.priorTrades + len(l.history)
}

// Cash returns free cash not locked as collateral.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// RealizedPnL returns cumulative realized profit and loss.
func (l *Ledger) RealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realizedPnL
}

// FeesPaid returns cumulative execution fees.
func (l *Ledger) FeesPaid() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feesPaid
}

// TotalExposure is the sum over open positions of locked collateral plus
// unrealized P&L.
func (l *Ledger) TotalExposure() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalExposureLocked()
}

func (l *Ledger) totalExposureLocked() float64 {
	var exposure float64
	for _, pos := range l.positions {
		if pos.Status != domain.PositionStatusOpen {
			continue
		}
		exposure += pos.Collateral() + pos.UnrealizedPnL()
	}
	return exposure
}

// AvailableBalance is the headroom for new bets.
func (l *Ledger) AvailableBalance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash - l.totalExposureLocked()
}

// TotalPortfolioValue is free cash plus the marked value of open positions
// (collateral plus unrealized P&L). Opening a position at the market price
// moves value from cash into exposure without changing the total.
func (l *Ledger) TotalPortfolioValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash + l.totalExposureLocked()
}

// TotalReturnPct is the portfolio return relative to starting balance.
func (l *Ledger) TotalReturnPct() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startingBalance == 0 {
		return 0
	}
	total := l.cash + l.totalExposureLocked()
	return (total - l.startingBalance) / l.startingBalance * 100
}

// WinRate is the share of closed trades that realized a profit.
func (l *Ledger) WinRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 0 {
		return 0
	}
	var wins int
	for _, t := range l.history {
		if t.Won() {
			wins++
		}
	}
	return float64(wins) / float64(len(l.history))
}

// ProfitFactor is gross profit over gross loss. It is +Inf when there are
// profits and no losses, and 0 when there is nothing to divide.
func (l *Ledger) ProfitFactor() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var grossProfit, grossLoss float64
	for _, t := range l.history {
		if t.RealizedPnL > 0 {
			grossProfit += t.RealizedPnL
		} else if t.RealizedPnL < 0 {
			grossLoss += -t.RealizedPnL
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// LargestWin returns the best single realized P&L, 0 with no history.
func (l *Ledger) LargestWin() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var best float64
	for i, t := range l.history {
		if i == 0 || t.RealizedPnL > best {
			best = t.RealizedPnL
		}
	}
	return best
}

// LargestLoss returns the worst single realized P&L, 0 with no history.
func (l *Ledger) LargestLoss() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var worst float64
	for i, t := range l.history {
		if i == 0 || t.RealizedPnL < worst {
			worst = t.RealizedPnL
		}
	}
	return worst
}

// AverageWin is the mean realized P&L across winning trades, 0 with none.
func (l *Ledger) AverageWin() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum float64
	var n int
	for _, t := range l.history {
		if t.RealizedPnL > 0 {
			sum += t.RealizedPnL
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AverageLoss is the mean realized P&L across losing trades, 0 with none.
func (l *Ledger) AverageLoss() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum float64
	var n int
	for _, t := range l.history {
		if t.RealizedPnL < 0 {
			sum += t.RealizedPnL
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
