// Package notify pushes trading events to operator channels (Telegram,
// Discord). Events are filtered by type so an operator can subscribe to
// closes and halts without hearing about every entry.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/degenlabs/moonshot/internal/domain"
)

// Event types emitted by the trader loop.
const (
	EventBetPlaced      = "bet_placed"
	EventPositionClosed = "position_closed"
	EventRiskHalt       = "risk_halt"
	EventTargetReached  = "target_reached"
	EventBust           = "bust"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans events out to all senders. Only events in the configured
// allow-list are forwarded; an empty list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With("component", "notifier"),
	}
}

// BetPlaced announces a new position.
func (n *Notifier) BetPlaced(ctx context.Context, d domain.BetDecision, fill domain.Fill) {
	msg := fmt.Sprintf("%s @ %.4f on %s\nStake: $%.2f (%.1f%% of bankroll, %s)\n%s",
		d.Opportunity.MarketName, fill.ExecutedPrice, d.Opportunity.Venue,
		fill.ExecutedSize, d.SizePct*100, d.Tier, d.Rationale)
	n.notify(ctx, EventBetPlaced, "🎲 Bet placed", msg)
}

// PositionClosed announces a close with its realized result.
func (n *Notifier) PositionClosed(ctx context.Context, t domain.TradeRecord) {
	emoji := "🟢"
	if t.RealizedPnL < 0 {
		emoji = "🔴"
	}
	msg := fmt.Sprintf("%s (%s)\nPnL: $%+.2f (%+.1f%%)\nExit: %.4f after %s",
		t.MarketName, t.Reason, t.RealizedPnL, t.RealizedPnLPct*100,
		t.ExitPrice, t.HoldDuration.Round(time.Second))
	n.notify(ctx, EventPositionClosed, emoji+" Position closed", msg)
}

// RiskHalt announces that the loss-cut circuit tripped.
func (n *Notifier) RiskHalt(ctx context.Context, bankroll, peak float64, consecutiveLosses int) {
	msg := fmt.Sprintf("Bankroll $%.2f (peak $%.2f), %d consecutive losses.\nNo new entries until conditions clear.",
		bankroll, peak, consecutiveLosses)
	n.notify(ctx, EventRiskHalt, "🛑 Risk halt", msg)
}

// TargetReached announces victory.
func (n *Notifier) TargetReached(ctx context.Context, bankroll, target float64) {
	msg := fmt.Sprintf("Bankroll $%.2f has reached the target of $%.2f.\nWe actually did it.", bankroll, target)
	n.notify(ctx, EventTargetReached, "🌕 TARGET REACHED", msg)
}

// Bust announces the other ending.
func (n *Notifier) Bust(ctx context.Context, bankroll float64) {
	msg := fmt.Sprintf("Bankroll down to $%.4f. The run is over.", bankroll)
	n.notify(ctx, EventBust, "💀 Busted", msg)
}

func (n *Notifier) notify(ctx context.Context, event, title, message string) {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.Debug("event filtered out", "event", event)
		return
	}
	if len(n.senders) == 0 {
		return
	}

	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("sender failed",
				"sender", s.Name(), "event", event, "error", err.Error())
			continue
		}
		n.logger.Debug("notification sent", "sender", s.Name(), "event", event)
	}
}
