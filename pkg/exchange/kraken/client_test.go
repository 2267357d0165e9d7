package kraken

import (
	"context"
	"errors"
	"testing"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	// Vector from the Kraken API documentation.
	secret := "kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg=="
	path := "/0/private/AddOrder"
	nonce := "1616492376594"
	postdata := "nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25"
	want := "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb7nmbvQdr/FxM0Pg=="

	got, err := sign(path, nonce, postdata, secret)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSignRejectsBadSecret(t *testing.T) {
	_, err := sign("/0/private/Balance", "1", "nonce=1", "not-base64!!!")
	assert.Error(t, err)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "XBTUSDT"},
		{"btcusd", "XBTUSD"},
		{"ETHUSDT", "ETHUSDT"},
		{"BTCUSDT.P", "XBTUSDT"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeSymbol(tt.in), tt.in)
	}
}

func TestKrakenErrorAuthMapping(t *testing.T) {
	err := krakenError([]string{"EAPI:Invalid key"})
	assert.True(t, errors.Is(err, exchange.ErrAuth))

	err = krakenError([]string{"EGeneral:Permission denied"})
	assert.True(t, errors.Is(err, exchange.ErrAuth))

	err = krakenError([]string{"EService:Unavailable"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, exchange.ErrAuth))

	assert.NoError(t, krakenError(nil))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, exchange.StatusFilled, mapStatus("closed"))
	assert.Equal(t, exchange.StatusCancelled, mapStatus("canceled"))
	assert.Equal(t, exchange.StatusPending, mapStatus("open"))
}

func TestFuturesSurfaceIsNoop(t *testing.T) {
	c := New(exchange.Credentials{})
	positions, err := c.GetOpenPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)

	rate, err := c.GetFundingRate(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, rate)
}
