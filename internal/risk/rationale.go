package risk

import (
	"fmt"

	"github.com/degenlabs/moonshot/internal/domain"
)

// rationale renders a human-readable justification for a decision, picked
// from tier-specific templates via the injected rand source.
func (e *Engine) rationale(opp domain.Opportunity, tier domain.AggressionTier, winProb, edge, betPct float64) string {
	templates := rationaleTemplates(opp, tier, winProb, edge, betPct)
	return templates[e.rng.Intn(len(templates))]
}

func rationaleTemplates(opp domain.Opportunity, tier domain.AggressionTier, winProb, edge, betPct float64) []string {
	switch tier {
	case domain.TierFullDegen:
		return []string{
			fmt.Sprintf("SENDING IT. %.1f%% edge on %s. Win prob %.1f%%. Size: %.1f%% of bankroll.",
				edge*100, opp.MarketName, winProb*100, betPct*100),
			fmt.Sprintf("This is THE play. %s is mispriced by %.1f%%. Going %.1f%% deep.",
				opp.MarketName, edge*100, betPct*100),
		}
	case domain.TierAggressive:
		return []string{
			fmt.Sprintf("Strong conviction on %s. %.1f%% edge, %.1f%% win rate. Sizing %.1f%%.",
				opp.MarketName, edge*100, winProb*100, betPct*100),
			fmt.Sprintf("Momentum + edge on %s. Taking a %.1f%% position.",
				opp.MarketName, betPct*100),
		}
	default:
		return []string{
			fmt.Sprintf("Measured entry on %s. Edge: %.1f%%, Kelly says %.1f%%.",
				opp.MarketName, edge*100, betPct*100),
			fmt.Sprintf("Small but smart bet on %s. %.1f%% edge detected.",
				opp.MarketName, edge*100),
		}
	}
}
