package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/degenlabs/moonshot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `position_id, venue, market_id, market_name, side,
	entry_price, exit_price, size_usd, realized_pnl, realized_pnl_pct,
	hold_duration_ms, entry_time, exit_time, exit_reason`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var venue, side, reason string
		var holdMs int64

		if err := rows.Scan(
			&t.PositionID, &venue, &t.MarketID, &t.MarketName, &side,
			&t.EntryPrice, &t.ExitPrice, &t.SizeUSD,
			&t.RealizedPnL, &t.RealizedPnLPct,
			&holdMs, &t.EntryTime, &t.ExitTime, &reason,
		); err != nil {
			return nil, err
		}
		t.Venue = domain.Venue(venue)
		t.Side = domain.PositionSide(side)
		t.Reason = domain.ExitReason(reason)
		t.HoldDuration = time.Duration(holdMs) * time.Millisecond
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert appends a closed trade. Re-inserting the same position is a no-op
// so replayed closes stay idempotent.
func (s *TradeStore) Insert(ctx context.Context, t domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			position_id, venue, market_id, market_name, side,
			entry_price, exit_price, size_usd, realized_pnl, realized_pnl_pct,
			hold_duration_ms, entry_time, exit_time, exit_reason
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14
		)
		ON CONFLICT (position_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.PositionID, string(t.Venue), t.MarketID, t.MarketName, string(t.Side),
		t.EntryPrice, t.ExitPrice, t.SizeUSD,
		t.RealizedPnL, t.RealizedPnLPct,
		t.HoldDuration.Milliseconds(), t.EntryTime, t.ExitTime, string(t.Reason),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.PositionID, err)
	}
	return nil
}

// List returns trades with pagination and optional time filtering, newest
// first.
func (s *TradeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND exit_time >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND exit_time <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY exit_time DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns every trade that closed strictly before the cutoff,
// oldest first. The archiver uses it to page out cold history.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE exit_time < $1
		 ORDER BY exit_time ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// DeleteBefore removes trades that closed strictly before the cutoff and
// returns the number of rows removed. Called after a successful archive
// upload.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE exit_time < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
