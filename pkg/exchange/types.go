package exchange

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus normalizes exchange status into a small set.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// MarketType distinguishes spot vs futures venues.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// Credentials carries decrypted API credentials for one exchange account.
// The engine never persists these; the credential store collaborator does.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// Candle is one exchange-normalized OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// OrderRequest captures an order intent to be sent to an exchange.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Type       OrderType
	Qty        float64
	Price      float64 // required for LIMIT, ignored for MARKET
	ReduceOnly bool    // futures close-only flag
	Market     MarketType
}

// OrderResult returns the exchange ack in normalized form.
type OrderResult struct {
	ID        string
	Symbol    string
	Side      Side
	Type      OrderType
	Qty       float64
	Price     float64
	Status    OrderStatus
	Timestamp time.Time
}

// Balance represents a single asset balance.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// AccountInfo holds balances and trading permissions.
type AccountInfo struct {
	CanTrade   bool
	Balances   []Balance
	UpdateTime time.Time
}

// FuturesPosition is the exchange's view of an open futures position.
// PositionAmt is signed: positive long, negative short.
type FuturesPosition struct {
	Symbol           string
	PositionAmt      float64
	EntryPrice       float64
	MarkPrice        float64
	UnrealizedProfit float64
	Leverage         int
	MarginType       string
	LiquidationPrice float64
}

// FundingRate is the current funding rate and next settlement time for a
// perpetual futures symbol.
type FundingRate struct {
	Symbol      string
	Rate        float64
	NextFunding time.Time
}
