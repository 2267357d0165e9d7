package exchange

import "context"

// Gateway abstracts a trading venue. One instance is bound to one
// {exchange, credentials} pair; all per-exchange signing schemes, symbol
// transforms and interval naming live behind this seam.
//
// The futures surface is total: spot-only venues return empty results and
// no-op on mutations rather than failing, so callers never branch on venue
// capabilities.
type Gateway interface {
	// FetchKlines returns the `limit` most recent candles in ascending time
	// order. `interval` is a canonical string (1m, 5m, 1h, ...); the gateway
	// maps it to the venue's naming.
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetOrder(ctx context.Context, symbol, orderID string) (*OrderResult, error)

	GetBalance(ctx context.Context, asset string) ([]Balance, error)
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)

	// ValidateCredentials performs one authenticated call. Authentication
	// failure yields (false, nil); infrastructure errors (timeout, DNS) are
	// returned as errors and mean "undetermined", not "invalid".
	ValidateCredentials(ctx context.Context) (bool, error)

	// Futures surface.
	GetOpenPositions(ctx context.Context) ([]FuturesPosition, error)
	GetPosition(ctx context.Context, symbol string) (*FuturesPosition, error)
	GetLeverage(ctx context.Context, symbol string) (int, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	GetFundingRate(ctx context.Context, symbol string) (*FundingRate, error)
	ClosePosition(ctx context.Context, symbol string) (*OrderResult, error)

	SupportedIntervals() []string
	Name() string
}

// CanonicalIntervals are the interval strings the engine uses everywhere.
// Gateways translate these at the boundary.
var CanonicalIntervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d", "1w"}

// IsCanonicalInterval reports whether s is an engine-recognized interval.
func IsCanonicalInterval(s string) bool {
	for _, iv := range CanonicalIntervals {
		if iv == s {
			return true
		}
	}
	return false
}
