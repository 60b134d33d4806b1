package ledger

import (
	"github.com/degenlabs/moonshot/internal/domain"
)

// Snapshot captures the full ledger state for persistence. Positions are
// stored in full, open and closed alike; the trade history itself lives in
// the trade store, so only its count is carried.
func (l *Ledger) Snapshot() domain.PortfolioSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		positions = append(positions, *pos)
	}

	return domain.PortfolioSnapshot{
		Cash:            l.cash,
		StartingBalance: l.startingBalance,
		RealizedPnL:     l.realizedPnL,
		FeesPaid:        l.feesPaid,
		Positions:       positions,
		TradeCount:      l.priorTrades + len(l.history),
		SavedAt:         l.now().UTC(),
	}
}

// Restore replaces the ledger state with the snapshot contents. Optional
// fields absent from older snapshots (leverage, liquidation price, take
// profit) arrive as nil and simply stay defaulted; positions are never
// fabricated.
func (l *Ledger) Restore(snap domain.PortfolioSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = snap.Cash
	if snap.StartingBalance > 0 {
		l.startingBalance = snap.StartingBalance
	}
	l.realizedPnL = snap.RealizedPnL
	l.feesPaid = snap.FeesPaid
	l.priorTrades = snap.TradeCount
	l.history = nil

	l.positions = make(map[string]*domain.Position, len(snap.Positions))
	for _, pos := range snap.Positions {
		p := pos
		if p.Status == "" {
			p.Status = domain.PositionStatusOpen
		}
		l.positions[p.ID] = &p
	}
}
