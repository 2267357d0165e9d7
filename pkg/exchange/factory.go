package exchange

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds gateways by venue name. Registered constructors receive the
// credentials and market type resolved from bot configuration.
type Factory struct {
	constructors map[string]Constructor
}

// Constructor builds a Gateway for one venue.
type Constructor func(creds Credentials, market MarketType, testnet bool) (Gateway, error)

func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// Register adds a venue constructor under a case-insensitive name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.constructors[strings.ToLower(name)] = ctor
}

// Create builds a gateway for the named venue. Unknown venues are a
// configuration error, not a runtime panic.
func (f *Factory) Create(name string, creds Credentials, market MarketType, testnet bool) (Gateway, error) {
	ctor, ok := f.constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("exchange: unsupported venue %q (supported: %s)", name, strings.Join(f.Supported(), ", "))
	}
	if market == MarketFutures && !futuresCapable[strings.ToLower(name)] {
		return nil, fmt.Errorf("exchange: venue %q does not support futures", name)
	}
	return ctor(creds, market, testnet)
}

// Supported lists registered venue names.
func (f *Factory) Supported() []string {
	out := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var futuresCapable = map[string]bool{
	"binance": true,
}
