package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOptimismLevel(t *testing.T) {
	assert.Equal(t, OptimismConservative, ParseOptimismLevel("conservative"))
	assert.Equal(t, OptimismAscended, ParseOptimismLevel(" ASCENDED "))
	assert.Equal(t, OptimismDelusional, ParseOptimismLevel("delusional"))
	assert.Equal(t, OptimismDelusional, ParseOptimismLevel("realistic"), "unknown falls back to the house default")
	assert.Equal(t, OptimismDelusional, ParseOptimismLevel(""))
}

func TestOptimismMultipliers(t *testing.T) {
	assert.Equal(t, 0.8, OptimismConservative.Multiplier())
	assert.Equal(t, 1.0, OptimismModerate.Multiplier())
	assert.Equal(t, 1.3, OptimismOptimistic.Multiplier())
	assert.Equal(t, 1.6, OptimismDelusional.Multiplier())
	assert.Equal(t, 2.0, OptimismAscended.Multiplier())
}

func TestOptimismBias(t *testing.T) {
	assert.Equal(t, 0.05, OptimismDelusional.Bias())
	assert.Equal(t, 0.02, OptimismModerate.Bias())
	assert.Equal(t, 0.02, OptimismAscended.Bias())
}
