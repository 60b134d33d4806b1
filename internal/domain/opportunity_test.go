package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerceivedEdge(t *testing.T) {
	prob := Opportunity{Kind: BetKindProbYes, CurrentPrice: 0.30, FairValue: 0.45}
	assert.InDelta(t, 0.15, prob.PerceivedEdge(), 1e-9, "probability markets use absolute difference")

	directional := Opportunity{Kind: BetKindLong, CurrentPrice: 10, FairValue: 12}
	assert.InDelta(t, 0.2, directional.PerceivedEdge(), 1e-9, "directional bets normalize by price")

	inverted := Opportunity{Kind: BetKindShort, CurrentPrice: 12, FairValue: 10}
	assert.InDelta(t, 10.0/6.0/10, inverted.PerceivedEdge(), 1e-9)
}

func TestExpectedReturn(t *testing.T) {
	prob := Opportunity{Kind: BetKindProbYes, CurrentPrice: 0.30, Confidence: 0.70}
	assert.InDelta(t, (1.0/0.30)*0.70, prob.ExpectedReturn(), 1e-9)

	zero := Opportunity{Kind: BetKindProbNo, CurrentPrice: 0, Confidence: 0.70}
	assert.Zero(t, zero.ExpectedReturn())

	directional := Opportunity{Kind: BetKindLong, CurrentPrice: 10, FairValue: 14, Confidence: 0.5}
	assert.InDelta(t, 0.7, directional.ExpectedReturn(), 1e-9)
}

func TestBetKindMapping(t *testing.T) {
	assert.True(t, BetKindProbYes.Probability())
	assert.True(t, BetKindProbNo.Probability())
	assert.False(t, BetKindLong.Probability())

	assert.True(t, BetKindProbYes.LongEquivalent())
	assert.True(t, BetKindLong.LongEquivalent())
	assert.False(t, BetKindProbNo.LongEquivalent())
	assert.False(t, BetKindShort.LongEquivalent())

	assert.Equal(t, SideYes, BetKindProbYes.Side())
	assert.Equal(t, SideNo, BetKindProbNo.Side())
	assert.Equal(t, SideLong, BetKindLong.Side())
	assert.Equal(t, SideShort, BetKindShort.Side())
}

func TestClassifyAggression(t *testing.T) {
	assert.Equal(t, TierCalculated, ClassifyAggression(0.05))
	assert.Equal(t, TierCalculated, ClassifyAggression(0.10))
	assert.Equal(t, TierAggressive, ClassifyAggression(0.11))
	assert.Equal(t, TierAggressive, ClassifyAggression(0.20))
	assert.Equal(t, TierFullDegen, ClassifyAggression(0.21))
}
