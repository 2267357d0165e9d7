package db

import (
	"encoding/json"
	"time"
)

// Bot is one configured trading bot.
type Bot struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Name         string          `json:"name"`
	Exchange     string          `json:"exchange"`
	Symbol       string          `json:"symbol"`
	Interval     string          `json:"interval"`
	MarketType   string          `json:"marketType"` // spot or futures
	StrategyType string          `json:"strategyType"`
	Parameters   json.RawMessage `json:"parameters"` // strategy params, resolved by the strategy package
	Risk         json.RawMessage `json:"risk"`       // limits, drawdown, regime config
	Quantity     float64         `json:"quantity"`
	Leverage     int             `json:"leverage"`
	Mode         string          `json:"mode"`        // auto or manual
	TradingMode  string          `json:"tradingMode"` // paper or live
	Testnet      bool            `json:"testnet"`
	Status       string          `json:"status"` // stopped, running, error
	PaperBalance float64         `json:"paperBalance"`
	Performance  Performance     `json:"performance"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Performance is the aggregate recomputed from trade history.
type Performance struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	TotalPnL      float64 `json:"totalPnl"`
	WinRate       float64 `json:"winRate"`
}

// Trade is one executed live trade.
type Trade struct {
	ID        string    `json:"id"`
	BotID     string    `json:"botId"`
	UserID    string    `json:"userId"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	PnL       float64   `json:"pnl"`
	OrderID   string    `json:"orderId"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaperTrade is one simulated trade against the paper ledger.
type PaperTrade struct {
	ID           string    `json:"id"`
	BotID        string    `json:"botId"`
	UserID       string    `json:"userId"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Qty          float64   `json:"qty"`
	Price        float64   `json:"price"`
	PnL          float64   `json:"pnl"`
	BalanceAfter float64   `json:"balanceAfter"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BotLog is one append-only log line attached to a bot.
type BotLog struct {
	ID        int64     `json:"id"`
	BotID     string    `json:"botId"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// StrategyConfig is a shareable, user-authored config-driven strategy.
type StrategyConfig struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PendingApproval is a manual-mode trade awaiting user confirmation.
type PendingApproval struct {
	ID         string     `json:"id"`
	BotID      string     `json:"botId"`
	UserID     string     `json:"userId"`
	Action     string     `json:"action"` // buy or sell
	Qty        float64    `json:"qty"`
	Price      float64    `json:"price"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"` // pending, approved, rejected, expired
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// APICredential is one user's stored API key pair for a venue. Key material
// is sealed by the credential store before it reaches this struct, so the
// fields hold ciphertext and are never serialized to clients.
type APICredential struct {
	UserID     string    `json:"userId"`
	Exchange   string    `json:"exchange"`
	APIKey     string    `json:"-"`
	APISecret  string    `json:"-"`
	Passphrase string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PaperStats aggregates a bot's paper-trading history.
type PaperStats struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	TotalPnL      float64 `json:"totalPnl"`
	WinRate       float64 `json:"winRate"`
	Balance       float64 `json:"balance"`
}
