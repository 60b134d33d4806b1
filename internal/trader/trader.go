// Package trader runs the bet cycle: scan sources for opportunities, rank
// them through the risk engine, execute the winners, monitor open positions
// for stop and take-profit exits, and persist state after every cycle.
package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/degenlabs/moonshot/internal/domain"
	"github.com/degenlabs/moonshot/internal/ledger"
	"github.com/degenlabs/moonshot/internal/notify"
	"github.com/degenlabs/moonshot/internal/risk"
)

// takeProfitPct is the fractional gain at which directional positions are
// taken off. Probability-market targets are capped below resolution.
const takeProfitPct = 0.5

// Config holds the loop parameters.
type Config struct {
	ScanInterval     time.Duration
	MaxOpenPositions int
	TargetUSD        float64
	// BustThresholdUSD ends the run when total portfolio value drops below
	// it. Defaults to one cent.
	BustThresholdUSD float64
}

// Trader wires the engine, ledger, executor, and feeds into one loop.
// TradeStore, AuditStore, and Notifier are optional; nil disables them.
type Trader struct {
	cfg      Config
	engine   *risk.Engine
	ledger   *ledger.Ledger
	executor domain.Executor
	sources  []domain.OpportunitySource
	prices   domain.PriceCache

	snapshots domain.SnapshotStore
	trades    domain.TradeStore
	audit     domain.AuditStore
	notifier  *notify.Notifier

	logger *slog.Logger
	halted bool // last observed cut-losses state, for edge-triggered alerts
}

// New creates a Trader. engine, ledger, executor, prices, and snapshots are
// required.
func New(
	cfg Config,
	engine *risk.Engine,
	led *ledger.Ledger,
	exec domain.Executor,
	sources []domain.OpportunitySource,
	prices domain.PriceCache,
	snapshots domain.SnapshotStore,
	logger *slog.Logger,
) *Trader {
	if cfg.BustThresholdUSD <= 0 {
		cfg.BustThresholdUSD = 0.01
	}
	return &Trader{
		cfg:       cfg,
		engine:    engine,
		ledger:    led,
		executor:  exec,
		sources:   sources,
		prices:    prices,
		snapshots: snapshots,
		logger:    logger.With(slog.String("component", "trader")),
	}
}

// WithTradeStore attaches a persistent trade history.
func (t *Trader) WithTradeStore(s domain.TradeStore) *Trader {
	t.trades = s
	return t
}

// WithAuditStore attaches an audit log.
func (t *Trader) WithAuditStore(s domain.AuditStore) *Trader {
	t.audit = s
	return t
}

// WithNotifier attaches operator notifications.
func (t *Trader) WithNotifier(n *notify.Notifier) *Trader {
	t.notifier = n
	return t
}

// Restore loads the last snapshot if one exists. A missing snapshot starts a
// fresh run; a corrupt one is logged and ignored rather than aborting the
// process.
func (t *Trader) Restore(ctx context.Context) error {
	snap, err := t.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			t.logger.Info("no snapshot found, starting fresh")
			return nil
		}
		t.logger.Warn("snapshot unreadable, starting fresh", slog.String("error", err.Error()))
		return nil
	}

	t.ledger.Restore(snap)
	t.engine.SetBankroll(t.ledger.TotalPortfolioValue())

	t.logger.Info("state restored",
		slog.Float64("cash", snap.Cash),
		slog.Int("positions", len(snap.Positions)),
		slog.Int("trade_count", snap.TradeCount),
		slog.Time("saved_at", snap.SavedAt),
	)
	return nil
}

// Run executes cycles until the context is cancelled, the target is reached,
// or the bankroll busts. The final state is persisted before returning.
func (t *Trader) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.ScanInterval)
	defer ticker.Stop()

	t.logger.Info("trader started",
		slog.Float64("bankroll", t.engine.Bankroll()),
		slog.Float64("target", t.cfg.TargetUSD),
		slog.Duration("scan_interval", t.cfg.ScanInterval),
	)

	for {
		if done, err := t.runCycle(ctx); done || err != nil {
			if persistErr := t.persist(ctx); persistErr != nil {
				t.logger.Error("final persist failed", slog.String("error", persistErr.Error()))
			}
			t.logSummary()
			return err
		}

		select {
		case <-ctx.Done():
			// The run context is already cancelled; the shutdown snapshot
			// still has to land.
			if err := t.persist(context.WithoutCancel(ctx)); err != nil {
				t.logger.Error("final persist failed", slog.String("error", err.Error()))
			}
			t.logSummary()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle performs one monitor-scan-bet pass. It reports done=true when a
// terminal condition (target or bust) was hit.
func (t *Trader) runCycle(ctx context.Context) (done bool, err error) {
	if err := t.monitor(ctx); err != nil {
		t.logger.Error("monitor pass failed", slog.String("error", err.Error()))
	}

	// Keep the sizing base aligned with what the ledger actually holds.
	t.engine.SetBankroll(t.ledger.TotalPortfolioValue())

	if done := t.checkTerminal(ctx); done {
		return true, nil
	}

	opps, err := t.scan(ctx)
	if err != nil {
		t.logger.Error("scan failed", slog.String("error", err.Error()))
	}
	if len(opps) > 0 {
		t.placeBets(ctx, opps)
	}

	t.engine.SetBankroll(t.ledger.TotalPortfolioValue())

	if err := t.persist(ctx); err != nil {
		t.logger.Error("persist failed", slog.String("error", err.Error()))
	}

	status := t.engine.Status()
	t.logger.Info("cycle complete",
		slog.Float64("portfolio_value", t.ledger.TotalPortfolioValue()),
		slog.Float64("cash", t.ledger.Cash()),
		slog.Int("open_positions", len(t.ledger.OpenPositions())),
		slog.Float64("progress_pct", status.ProgressPct),
		slog.Int("doublings", status.Doublings),
		slog.String("streak", string(status.Streak)),
	)

	return t.checkTerminal(ctx), nil
}

// scan fans out to every source concurrently and merges the results. One
// failing source does not sink the cycle; its error is joined and logged by
// the caller while the other sources' opportunities are still used.
func (t *Trader) scan(ctx context.Context) ([]domain.Opportunity, error) {
	results := make([][]domain.Opportunity, len(t.sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range t.sources {
		i, src := i, src
		g.Go(func() error {
			opps, err := src.Scan(gctx)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			results[i] = opps
			return nil
		})
	}
	err := g.Wait()

	var merged []domain.Opportunity
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, err
}

// placeBets runs the ranked decisions through the executor, respecting the
// loss-cut halt, the open-position cap, and available balance.
func (t *Trader) placeBets(ctx context.Context, opps []domain.Opportunity) {
	if t.engine.ShouldCutLosses() {
		status := t.engine.Status()
		if !t.halted {
			t.halted = true
			t.logger.Warn("loss-cut engaged, skipping entries",
				slog.Float64("bankroll", status.Bankroll),
				slog.Float64("peak", status.PeakBankroll),
				slog.Int("consecutive_losses", status.ConsecutiveLosses),
			)
			if t.notifier != nil {
				t.notifier.RiskHalt(ctx, status.Bankroll, status.PeakBankroll, status.ConsecutiveLosses)
			}
			t.auditLog(ctx, "risk.halt", map[string]any{
				"bankroll":           status.Bankroll,
				"peak":               status.PeakBankroll,
				"consecutive_losses": status.ConsecutiveLosses,
			})
		}
		return
	}
	t.halted = false

	held := make(map[string]bool)
	for _, pos := range t.ledger.OpenPositions() {
		held[pos.MarketID] = true
	}

	for _, decision := range t.engine.Rank(opps) {
		if len(t.ledger.OpenPositions()) >= t.cfg.MaxOpenPositions {
			break
		}
		if held[decision.Opportunity.MarketID] {
			continue
		}
		if decision.SizeUSD > t.ledger.AvailableBalance() {
			t.logger.Debug("insufficient headroom for bet",
				slog.String("market", decision.Opportunity.MarketID),
				slog.Float64("size_usd", decision.SizeUSD),
				slog.Float64("available", t.ledger.AvailableBalance()),
			)
			continue
		}

		if t.executeBet(ctx, decision) {
			held[decision.Opportunity.MarketID] = true
		}
	}
}

// executeBet sends one decision through the executor and books the fill.
func (t *Trader) executeBet(ctx context.Context, decision domain.BetDecision) bool {
	fill, err := t.executor.Execute(ctx, decision)
	if err != nil || !fill.Success {
		t.logger.Warn("execution failed",
			slog.String("market", decision.Opportunity.MarketID),
			slog.String("fill_error", fill.Error),
		)
		return false
	}

	opp := decision.Opportunity
	pos, err := t.ledger.OpenPosition(ledger.OpenParams{
		ID:         fill.PositionID,
		Venue:      opp.Venue,
		MarketID:   opp.MarketID,
		MarketName: opp.MarketName,
		Side:       opp.Kind.Side(),
		EntryPrice: fill.ExecutedPrice,
		SizeUSD:    fill.ExecutedSize,
		StopLoss:   decision.StopLossPrice,
		TakeProfit: takeProfitPrice(opp.Kind, fill.ExecutedPrice),
		Leverage:   fill.Leverage,
	})
	if err != nil {
		t.logger.Error("fill could not be booked",
			slog.String("position_id", fill.PositionID),
			slog.String("error", err.Error()),
		)
		return false
	}
	t.ledger.AddFees(fill.Fees)

	t.logger.Info("bet placed",
		slog.String("position_id", pos.ID),
		slog.String("market", pos.MarketName),
		slog.String("tier", string(decision.Tier)),
		slog.Float64("size_usd", pos.SizeUSD),
		slog.String("rationale", decision.Rationale),
	)
	if t.notifier != nil {
		t.notifier.BetPlaced(ctx, decision, fill)
	}
	t.auditLog(ctx, "bet.placed", map[string]any{
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"venue":       string(pos.Venue),
		"tier":        string(decision.Tier),
		"size_pct":    decision.SizePct,
		"size_usd":    pos.SizeUSD,
		"tx_hash":     fill.TxHash,
	})
	return true
}

// monitor refreshes marks on open positions and closes any whose stop or
// take-profit has triggered.
func (t *Trader) monitor(ctx context.Context) error {
	open := t.ledger.OpenPositions()
	if len(open) == 0 {
		return nil
	}

	ids := make([]string, 0, len(open))
	for _, pos := range open {
		ids = append(ids, pos.MarketID)
	}

	marks, err := t.prices.GetPrices(ctx, ids)
	if err != nil {
		return fmt.Errorf("trader: refresh marks: %w", err)
	}
	for _, pos := range open {
		price, ok := marks[pos.MarketID]
		if !ok {
			continue
		}
		if err := t.ledger.UpdatePrice(pos.ID, price); err != nil {
			t.logger.Warn("mark update failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	for _, id := range t.ledger.CheckStopLosses() {
		t.closePosition(ctx, id, domain.ExitStopLoss)
	}
	for _, id := range t.ledger.CheckTakeProfits() {
		t.closePosition(ctx, id, domain.ExitTakeProfit)
	}
	return nil
}

// closePosition closes at the current mark, settles the result with the
// engine, and records the trade.
func (t *Trader) closePosition(ctx context.Context, id string, reason domain.ExitReason) {
	pos, ok := t.ledger.Position(id)
	if !ok {
		return
	}

	record, err := t.ledger.ClosePosition(id, pos.CurrentPrice, reason)
	if err != nil {
		t.logger.Error("close failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	t.engine.RecordResult(record.Won(), record.RealizedPnL)

	if t.trades != nil {
		if err := t.trades.Insert(ctx, record); err != nil {
			t.logger.Error("trade record insert failed",
				slog.String("position_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	if t.notifier != nil {
		t.notifier.PositionClosed(ctx, record)
	}
	t.auditLog(ctx, "position.closed", map[string]any{
		"position_id":  id,
		"exit_reason":  string(reason),
		"realized_pnl": record.RealizedPnL,
	})
}

// checkTerminal ends the run on target or bust.
func (t *Trader) checkTerminal(ctx context.Context) bool {
	value := t.ledger.TotalPortfolioValue()

	if value >= t.cfg.TargetUSD {
		t.logger.Info("TARGET REACHED",
			slog.Float64("portfolio_value", value),
			slog.Float64("target", t.cfg.TargetUSD),
		)
		if t.notifier != nil {
			t.notifier.TargetReached(ctx, value, t.cfg.TargetUSD)
		}
		t.auditLog(ctx, "run.target_reached", map[string]any{"value": value})
		return true
	}

	if value < t.cfg.BustThresholdUSD && len(t.ledger.OpenPositions()) == 0 {
		t.logger.Info("busted",
			slog.Float64("portfolio_value", value),
		)
		if t.notifier != nil {
			t.notifier.Bust(ctx, value)
		}
		t.auditLog(ctx, "run.bust", map[string]any{"value": value})
		return true
	}
	return false
}

// logSummary reports the run's final accounting.
func (t *Trader) logSummary() {
	t.logger.Info("run summary",
		slog.Float64("portfolio_value", t.ledger.TotalPortfolioValue()),
		slog.Float64("realized_pnl", t.ledger.RealizedPnL()),
		slog.Float64("fees_paid", t.ledger.FeesPaid()),
		slog.Int("trades", t.ledger.TradeCount()),
		slog.Float64("win_rate", t.ledger.WinRate()),
		slog.Float64("profit_factor", t.ledger.ProfitFactor()),
		slog.Float64("largest_win", t.ledger.LargestWin()),
		slog.Float64("largest_loss", t.ledger.LargestLoss()),
		slog.Float64("avg_win", t.ledger.AverageWin()),
		slog.Float64("avg_loss", t.ledger.AverageLoss()),
		slog.Float64("total_return_pct", t.ledger.TotalReturnPct()),
	)
}

// persist saves the current snapshot.
func (t *Trader) persist(ctx context.Context) error {
	return t.snapshots.Save(ctx, t.ledger.Snapshot())
}

func (t *Trader) auditLog(ctx context.Context, event string, detail map[string]any) {
	if t.audit == nil {
		return
	}
	if err := t.audit.Log(ctx, event, detail); err != nil {
		t.logger.Warn("audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// takeProfitPrice places the profit target above entry for long-equivalent
// positions and below for shorts. Probability markets cap below resolution.
func takeProfitPrice(kind domain.BetKind, entry float64) *float64 {
	var tp float64
	if kind.LongEquivalent() {
		tp = entry * (1 + takeProfitPct)
		if kind.Probability() && tp > 0.99 {
			tp = 0.99
		}
	} else {
		tp = entry * (1 - takeProfitPct)
		if kind.Probability() && tp < 0.01 {
			tp = 0.01
		}
	}
	return &tp
}
