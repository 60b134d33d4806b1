package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/degenlabs/moonshot/internal/domain"
	"github.com/degenlabs/moonshot/internal/executor"
	"github.com/degenlabs/moonshot/internal/feed"
	"github.com/degenlabs/moonshot/internal/ledger"
	"github.com/degenlabs/moonshot/internal/risk"
	"github.com/degenlabs/moonshot/internal/trader"
)

// newRand builds the run's rand source: seeded from config for reproducible
// runs, from the clock otherwise.
func (a *App) newRand() *rand.Rand {
	seed := a.cfg.Trading.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// buildTrader assembles the engine, ledger, executor, and feeds into a
// Trader. sources may be empty for monitor-only operation.
func (a *App) buildTrader(deps *Dependencies, sources []domain.OpportunitySource) *trader.Trader {
	t := a.cfg.Trading
	rng := a.newRand()
	logger := slog.Default()

	engine := risk.New(risk.Config{
		StartingCapital:  t.StartingCapitalUSD,
		TargetCapital:    t.TargetUSD,
		KellyFraction:    t.KellyFraction,
		MaxSingleBetPct:  t.MaxSingleBetPct,
		StopLossPct:      t.StopLossPct,
		MinEdgeThreshold: t.MinEdgeThreshold,
		Optimism:         risk.ParseOptimismLevel(t.OptimismLevel),
		CompoundWins:     t.CompoundWins,
	}, rng, logger)

	led := ledger.New(t.StartingCapitalUSD, logger)
	sim := executor.NewSimulator(rng, t.MaxLeverage, logger)

	tr := trader.New(trader.Config{
		ScanInterval:     t.ScanInterval.Duration,
		MaxOpenPositions: t.MaxOpenPositions,
		TargetUSD:        t.TargetUSD,
	}, engine, led, sim, sources, deps.PriceCache, deps.SnapshotStore, logger)

	if deps.TradeStore != nil {
		tr.WithTradeStore(deps.TradeStore)
	}
	if deps.AuditStore != nil {
		tr.WithAuditStore(deps.AuditStore)
	}
	tr.WithNotifier(deps.Notifier)
	return tr
}

// TradeMode runs the full bet cycle with the synthetic feeds.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	rng := a.newRand()
	logger := slog.Default()
	sources := []domain.OpportunitySource{
		feed.NewPredictionFeed(rng, deps.PriceCache, logger),
		feed.NewDEXFeed(rng, deps.PriceCache, logger),
	}

	tr := a.buildTrader(deps, sources)
	if err := tr.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore: %w", err)
	}

	err := tr.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// MonitorMode manages existing positions without taking new entries: marks
// refresh, stops and take-profits still fire, but no sources are scanned.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	tr := a.buildTrader(deps, nil)
	if err := tr.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore: %w", err)
	}

	err := tr.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ArchiveMode runs one archival pass: trades older than the retention window
// move from Postgres to object storage, then the process exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires postgres and s3 to be enabled")
	}

	cutoff := time.Now().AddDate(0, 0, -a.cfg.S3.ArchiveRetentionDays)
	count, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive trades: %w", err)
	}

	a.logger.InfoContext(ctx, "archive pass complete",
		slog.Int64("trades_archived", count),
		slog.Time("cutoff", cutoff),
	)
	return nil
}
