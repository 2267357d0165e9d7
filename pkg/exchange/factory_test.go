package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	Gateway
	name string
}

func (s *stubGateway) Name() string { return s.name }

func TestFactoryCreate(t *testing.T) {
	f := NewFactory()
	f.Register("Binance", func(creds Credentials, market MarketType, testnet bool) (Gateway, error) {
		return &stubGateway{name: "binance"}, nil
	})

	gw, err := f.Create("BINANCE", Credentials{}, MarketSpot, false)
	require.NoError(t, err)
	assert.Equal(t, "binance", gw.Name())
}

func TestFactoryUnknownVenue(t *testing.T) {
	f := NewFactory()
	f.Register("kraken", func(creds Credentials, market MarketType, testnet bool) (Gateway, error) {
		return &stubGateway{name: "kraken"}, nil
	})

	_, err := f.Create("bitmex", Credentials{}, MarketSpot, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported venue")
	assert.Contains(t, err.Error(), "kraken")
}

func TestFactoryFuturesOnSpotOnlyVenue(t *testing.T) {
	f := NewFactory()
	f.Register("kraken", func(creds Credentials, market MarketType, testnet bool) (Gateway, error) {
		return &stubGateway{name: "kraken"}, nil
	})

	_, err := f.Create("kraken", Credentials{}, MarketFutures, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support futures")
}

func TestIsCanonicalInterval(t *testing.T) {
	assert.True(t, IsCanonicalInterval("1h"))
	assert.True(t, IsCanonicalInterval("1m"))
	assert.False(t, IsCanonicalInterval("7m"))
	assert.False(t, IsCanonicalInterval(""))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrAuth))
	assert.True(t, IsAuthError(&APIError{Venue: "binance", StatusCode: 401}))
	assert.True(t, IsAuthError(&APIError{Venue: "binance", StatusCode: 403}))
	assert.False(t, IsAuthError(&APIError{Venue: "binance", StatusCode: 500}))
	assert.False(t, IsAuthError(context.Canceled))
}
