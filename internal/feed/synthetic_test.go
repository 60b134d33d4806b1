package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/moonshot/internal/cache/memory"
	"github.com/degenlabs/moonshot/internal/domain"
)

func TestPredictionFeedScan(t *testing.T) {
	cache := memory.NewPriceCache()
	feed := NewPredictionFeed(rand.New(rand.NewSource(3)), cache, slog.Default())
	assert.Equal(t, "prediction", feed.Name())

	opps, err := feed.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 5)

	for _, opp := range opps {
		assert.Equal(t, domain.VenuePolymarket, opp.Venue)
		assert.True(t, opp.Kind.Probability())
		assert.Greater(t, opp.CurrentPrice, 0.0)
		assert.Less(t, opp.CurrentPrice, 1.0)
		assert.GreaterOrEqual(t, opp.FairValue, 0.01)
		assert.LessOrEqual(t, opp.FairValue, 0.99)
		assert.GreaterOrEqual(t, opp.Confidence, 0.4)
		assert.LessOrEqual(t, opp.Confidence, 0.9)
		assert.GreaterOrEqual(t, opp.MomentumScore, -1.0)
		assert.LessOrEqual(t, opp.MomentumScore, 1.0)
		assert.Positive(t, opp.Volume24h)
	}
}

func TestDEXFeedScan(t *testing.T) {
	feed := NewDEXFeed(rand.New(rand.NewSource(3)), nil, slog.Default())
	assert.Equal(t, "dex", feed.Name())

	opps, err := feed.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 5)

	byID := make(map[string]domain.Opportunity, len(opps))
	for _, opp := range opps {
		byID[opp.MarketID] = opp
	}

	btc, ok := byID["hl-btc-perp"]
	require.True(t, ok)
	assert.Equal(t, domain.VenueHyperliquid, btc.Venue)
	assert.Equal(t, "20", btc.Meta["max_leverage"])

	eth, ok := byID["hl-eth-perp"]
	require.True(t, ok)
	assert.Equal(t, domain.BetKindShort, eth.Kind)
}

func TestScanPublishesPrices(t *testing.T) {
	cache := memory.NewPriceCache()
	feed := NewDEXFeed(rand.New(rand.NewSource(9)), cache, slog.Default())
	ctx := context.Background()

	opps, err := feed.Scan(ctx)
	require.NoError(t, err)

	for _, opp := range opps {
		price, _, err := cache.GetPrice(ctx, opp.MarketID)
		require.NoError(t, err)
		assert.InDelta(t, opp.CurrentPrice, price, 1e-9)
	}
}

func TestScanIsDeterministicForSeed(t *testing.T) {
	a := NewPredictionFeed(rand.New(rand.NewSource(42)), nil, slog.Default())
	b := NewPredictionFeed(rand.New(rand.NewSource(42)), nil, slog.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		oppsA, err := a.Scan(ctx)
		require.NoError(t, err)
		oppsB, err := b.Scan(ctx)
		require.NoError(t, err)

		require.Equal(t, len(oppsA), len(oppsB))
		for j := range oppsA {
			assert.Equal(t, oppsA[j].MarketID, oppsB[j].MarketID)
			assert.Equal(t, oppsA[j].CurrentPrice, oppsB[j].CurrentPrice)
			assert.Equal(t, oppsA[j].FairValue, oppsB[j].FairValue)
		}
	}
}

func TestPricesStayWithinBounds(t *testing.T) {
	feed := NewPredictionFeed(rand.New(rand.NewSource(1)), nil, slog.Default())
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		opps, err := feed.Scan(ctx)
		require.NoError(t, err)
		for _, opp := range opps {
			require.GreaterOrEqual(t, opp.CurrentPrice, 0.01)
			require.LessOrEqual(t, opp.CurrentPrice, 0.99)
		}
	}
}

func TestScanHonorsContext(t *testing.T) {
	feed := NewDEXFeed(rand.New(rand.NewSource(1)), nil, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
