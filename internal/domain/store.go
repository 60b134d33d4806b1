package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PortfolioSnapshot is the full-fidelity persisted state of the ledger.
// Optional fields default when absent so older snapshots stay loadable.
type PortfolioSnapshot struct {
	Cash            float64    `json:"cash"`
	StartingBalance float64    `json:"starting_balance"`
	RealizedPnL     float64    `json:"realized_pnl"`
	FeesPaid        float64    `json:"fees_paid"`
	Positions       []Position `json:"positions"`
	TradeCount      int        `json:"trade_count"`
	SavedAt         time.Time  `json:"saved_at"`
}

// SnapshotStore persists and restores the portfolio snapshot. Load returns
// ErrNotFound when no snapshot has been written yet.
type SnapshotStore interface {
	Save(ctx context.Context, snap PortfolioSnapshot) error
	Load(ctx context.Context) (PortfolioSnapshot, error)
}

// TradeStore persists the append-only trade history.
type TradeStore interface {
	Insert(ctx context.Context, trade TradeRecord) error
	List(ctx context.Context, opts ListOpts) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// PriceCache exposes the latest observed market prices. The monitor step
// reads it to mark open positions; feeds write into it.
type PriceCache interface {
	SetPrice(ctx context.Context, marketID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, marketID string) (float64, time.Time, error)
	GetPrices(ctx context.Context, marketIDs []string) (map[string]float64, error)
}
