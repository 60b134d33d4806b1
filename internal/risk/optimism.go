package risk

import "strings"

// OptimismLevel is the configured risk appetite. Each level maps to a fixed
// sizing multiplier and a small win-probability bias.
type OptimismLevel string

const (
	OptimismConservative OptimismLevel = "conservative"
	OptimismModerate     OptimismLevel = "moderate"
	OptimismOptimistic   OptimismLevel = "optimistic"
	OptimismDelusional   OptimismLevel = "delusional"
	OptimismAscended     OptimismLevel = "ascended"
)

// ParseOptimismLevel normalizes a config string to an OptimismLevel. Unknown
// values fall back to delusional, the house default.
func ParseOptimismLevel(s string) OptimismLevel {
	switch OptimismLevel(strings.ToLower(strings.TrimSpace(s))) {
	case OptimismConservative:
		return OptimismConservative
	case OptimismModerate:
		return OptimismModerate
	case OptimismOptimistic:
		return OptimismOptimistic
	case OptimismAscended:
		return OptimismAscended
	default:
		return OptimismDelusional
	}
}

// Multiplier is the sizing scale applied on top of fractional Kelly.
func (l OptimismLevel) Multiplier() float64 {
	switch l {
	case OptimismConservative:
		return 0.8
	case OptimismModerate:
		return 1.0
	case OptimismOptimistic:
		return 1.3
	case OptimismAscended:
		return 2.0
	default:
		return 1.6
	}
}

// Bias is the flat win-probability bump added during estimation.
func (l OptimismLevel) Bias() float64 {
	if l == OptimismDelusional {
		return 0.05
	}
	return 0.02
}
