package trader

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/moonshot/internal/cache/memory"
	"github.com/degenlabs/moonshot/internal/domain"
	"github.com/degenlabs/moonshot/internal/executor"
	"github.com/degenlabs/moonshot/internal/ledger"
	"github.com/degenlabs/moonshot/internal/risk"
	"github.com/degenlabs/moonshot/internal/snapshot"
)

// queueSource hands out one pre-canned batch of opportunities per scan.
type queueSource struct {
	batches [][]domain.Opportunity
}

func (q *queueSource) Name() string { return "stub" }

func (q *queueSource) Scan(_ context.Context) ([]domain.Opportunity, error) {
	if len(q.batches) == 0 {
		return nil, nil
	}
	batch := q.batches[0]
	q.batches = q.batches[1:]
	return batch, nil
}

type memTrades struct {
	records []domain.TradeRecord
}

func (m *memTrades) Insert(_ context.Context, trade domain.TradeRecord) error {
	m.records = append(m.records, trade)
	return nil
}

func (m *memTrades) List(_ context.Context, _ domain.ListOpts) ([]domain.TradeRecord, error) {
	return m.records, nil
}

func (m *memTrades) ListBefore(_ context.Context, _ time.Time) ([]domain.TradeRecord, error) {
	return m.records, nil
}

type memAudit struct {
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

// strongOpp clears every gate at moderate optimism: edge 0.30, sized to the
// 25% cap.
func strongOpp(marketID string) domain.Opportunity {
	return domain.Opportunity{
		MarketID:     marketID,
		MarketName:   "test " + marketID,
		Venue:        domain.VenuePolymarket,
		Kind:         domain.BetKindProbYes,
		CurrentPrice: 0.30,
		FairValue:    0.60,
		Confidence:   0.90,
		Volume24h:    50_000,
	}
}

type fixture struct {
	trader *Trader
	engine *risk.Engine
	ledger *ledger.Ledger
	cache  *memory.PriceCache
	trades *memTrades
	audit  *memAudit
	source *queueSource
	path   string
}

func newFixture(t *testing.T, cash float64, batches ...[]domain.Opportunity) *fixture {
	t.Helper()
	logger := slog.Default()
	rng := rand.New(rand.NewSource(11))

	engine := risk.New(risk.Config{
		StartingCapital:  cash,
		TargetCapital:    1e9,
		KellyFraction:    0.5,
		MaxSingleBetPct:  0.25,
		StopLossPct:      0.15,
		MinEdgeThreshold: 0.05,
		Optimism:         risk.OptimismModerate,
		CompoundWins:     true,
	}, rng, logger)

	f := &fixture{
		engine: engine,
		ledger: ledger.New(cash, logger),
		cache:  memory.NewPriceCache(),
		trades: &memTrades{},
		audit:  &memAudit{},
		source: &queueSource{batches: batches},
		path:   filepath.Join(t.TempDir(), "state.json"),
	}

	f.trader = New(
		Config{ScanInterval: time.Second, MaxOpenPositions: 3, TargetUSD: 1e9},
		engine,
		f.ledger,
		executor.NewSimulator(rng, 5, logger),
		[]domain.OpportunitySource{f.source},
		f.cache,
		snapshot.NewFileStore(f.path),
		logger,
	).WithTradeStore(f.trades).WithAuditStore(f.audit)

	return f
}

func TestCycleOpensPositionAndPersists(t *testing.T) {
	f := newFixture(t, 1000, []domain.Opportunity{strongOpp("mkt-1")})

	done, err := f.trader.runCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	open := f.ledger.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "mkt-1", open[0].MarketID)
	assert.Equal(t, domain.SideYes, open[0].Side)
	require.NotNil(t, open[0].StopLoss)
	// High conviction widens the stop to 22.5% below entry price.
	assert.InDelta(t, 0.30*(1-0.225), *open[0].StopLoss, 1e-9)
	assert.InDelta(t, 250, open[0].SizeUSD, 250*0.01, "quarter of bankroll, net of fees")

	assert.Contains(t, f.audit.events, "bet.placed")

	_, err = os.Stat(f.path)
	assert.NoError(t, err, "snapshot written after the cycle")
}

func TestCycleClosesOnStopLoss(t *testing.T) {
	f := newFixture(t, 1000, []domain.Opportunity{strongOpp("mkt-1")})
	ctx := context.Background()

	done, err := f.trader.runCycle(ctx)
	require.NoError(t, err)
	require.False(t, done)
	require.Len(t, f.ledger.OpenPositions(), 1)

	// Mark the market through the stop; the next cycle should close.
	require.NoError(t, f.cache.SetPrice(ctx, "mkt-1", 0.20, time.Now()))

	done, err = f.trader.runCycle(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	assert.Empty(t, f.ledger.OpenPositions())
	require.Len(t, f.trades.records, 1)
	record := f.trades.records[0]
	assert.Equal(t, domain.ExitStopLoss, record.Reason)
	assert.Negative(t, record.RealizedPnL)
	assert.False(t, record.Won())

	st := f.engine.Status()
	assert.Equal(t, 1, st.TotalBets)
	assert.Equal(t, risk.StreakLoss, st.Streak)

	assert.Contains(t, f.audit.events, "position.closed")
}

func TestCycleSkipsHeldMarkets(t *testing.T) {
	f := newFixture(t, 1000,
		[]domain.Opportunity{strongOpp("mkt-1")},
		[]domain.Opportunity{strongOpp("mkt-1")},
	)
	ctx := context.Background()

	_, err := f.trader.runCycle(ctx)
	require.NoError(t, err)
	_, err = f.trader.runCycle(ctx)
	require.NoError(t, err)

	assert.Len(t, f.ledger.OpenPositions(), 1, "no doubling into a held market")
}

func TestCycleRespectsMaxOpenPositions(t *testing.T) {
	f := newFixture(t, 1000, []domain.Opportunity{
		strongOpp("mkt-1"), strongOpp("mkt-2"), strongOpp("mkt-3"), strongOpp("mkt-4"),
	})
	f.trader.cfg.MaxOpenPositions = 2

	_, err := f.trader.runCycle(context.Background())
	require.NoError(t, err)

	assert.Len(t, f.ledger.OpenPositions(), 2)
}

func TestLossCutHaltsEntries(t *testing.T) {
	f := newFixture(t, 1000, []domain.Opportunity{strongOpp("mkt-1")})
	for i := 0; i < 5; i++ {
		f.engine.RecordResult(false, -1)
	}

	done, err := f.trader.runCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	assert.Empty(t, f.ledger.OpenPositions())
	assert.Contains(t, f.audit.events, "risk.halt")

	// The halt alert fires once, not every cycle.
	f.source.batches = [][]domain.Opportunity{{strongOpp("mkt-2")}}
	_, err = f.trader.runCycle(context.Background())
	require.NoError(t, err)
	halts := 0
	for _, e := range f.audit.events {
		if e == "risk.halt" {
			halts++
		}
	}
	assert.Equal(t, 1, halts)
}

func TestTerminalOnTargetReached(t *testing.T) {
	f := newFixture(t, 1000)
	f.trader.cfg.TargetUSD = 500

	done, err := f.trader.runCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, f.audit.events, "run.target_reached")
}

func TestTerminalOnBust(t *testing.T) {
	f := newFixture(t, 0.005)

	done, err := f.trader.runCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, f.audit.events, "run.bust")
}

func TestRestoreMissingSnapshotStartsFresh(t *testing.T) {
	f := newFixture(t, 1000)

	require.NoError(t, f.trader.Restore(context.Background()))
	assert.InDelta(t, 1000, f.ledger.Cash(), 1e-9)
}

func TestRestoreRehydratesLedgerAndEngine(t *testing.T) {
	seed := newFixture(t, 1000, []domain.Opportunity{strongOpp("mkt-1")})
	ctx := context.Background()
	_, err := seed.trader.runCycle(ctx)
	require.NoError(t, err)
	require.Len(t, seed.ledger.OpenPositions(), 1)

	fresh := newFixture(t, 2)
	fresh.trader.snapshots = snapshot.NewFileStore(seed.path)
	require.NoError(t, fresh.trader.Restore(ctx))

	assert.Len(t, fresh.ledger.OpenPositions(), 1)
	assert.InDelta(t, seed.ledger.Cash(), fresh.ledger.Cash(), 1e-9)
	assert.InDelta(t, seed.ledger.TotalPortfolioValue(), fresh.engine.Bankroll(), 1e-9)
}

func TestTakeProfitPrice(t *testing.T) {
	tp := takeProfitPrice(domain.BetKindLong, 10)
	require.NotNil(t, tp)
	assert.InDelta(t, 15, *tp, 1e-9)

	tp = takeProfitPrice(domain.BetKindShort, 10)
	assert.InDelta(t, 5, *tp, 1e-9)

	// Probability targets cap below resolution.
	tp = takeProfitPrice(domain.BetKindProbYes, 0.80)
	assert.InDelta(t, 0.99, *tp, 1e-9)

	tp = takeProfitPrice(domain.BetKindProbNo, 0.015)
	assert.InDelta(t, 0.01, *tp, 1e-9)
}
