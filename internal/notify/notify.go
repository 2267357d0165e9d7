package notify

import "context"

// Type classifies a notification for the delivery layer's preference
// filtering.
type Type string

const (
	TypeTrade    Type = "trade"
	TypeRisk     Type = "risk"
	TypeError    Type = "error"
	TypeFunding  Type = "funding"
	TypeApproval Type = "approval"
	TypeStatus   Type = "status"
)

// Notifier delivers a message to a user. Implementations must be
// best-effort: delivery failures are logged, never returned into a trading
// tick, and Notify must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, t Type, message, botName string, data map[string]any)
}

// Noop discards all notifications. Used by backtests.
type Noop struct{}

func (Noop) Notify(context.Context, string, Type, string, string, map[string]any) {}

// Multi fans a notification out to every wrapped notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID string, t Type, message, botName string, data map[string]any) {
	for _, n := range m {
		n.Notify(ctx, userID, t, message, botName, data)
	}
}
