package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/backtest"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/strategy"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/cache"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// marketData builds an unauthenticated gateway for public candle fetches.
func (s *Server) marketData(venue, marketType string) (exchange.Gateway, error) {
	market := exchange.MarketType(marketType)
	if market == "" {
		market = exchange.MarketSpot
	}
	return s.Factory.Create(venue, exchange.Credentials{}, market, false)
}

// candleTTL bounds how stale a cached fetch may be. Short enough that the
// newest bar is at most a few seconds behind.
const candleTTL = 5 * time.Second

func (s *Server) fetchCandles(ctx context.Context, gw exchange.Gateway, symbol, interval string, limit int) ([]exchange.Candle, error) {
	if limit <= 0 {
		limit = 500
	}
	if limit > 1000 {
		limit = 1000
	}
	key := cache.Key(gw.Name(), symbol, interval, limit)
	if candles, ok := s.candles.Get(key, candleTTL); ok {
		return candles, nil
	}
	candles, err := gw.FetchKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	s.candles.Set(key, candles)
	return candles, nil
}

type backtestRequest struct {
	Exchange   string `json:"exchange" binding:"required,min=1"`
	Symbol     string `json:"symbol" binding:"required,min=1"`
	Interval   string `json:"interval" binding:"required,min=1"`
	Limit      int    `json:"limit"`
	backtest.Request
}

func (s *Server) runBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	if !exchange.IsCanonicalInterval(req.Interval) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_INTERVAL", "error": "unsupported interval " + req.Interval})
		return
	}

	gw, err := s.marketData(req.Exchange, req.MarketType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "UNKNOWN_EXCHANGE", "error": err.Error()})
		return
	}
	candles, err := s.fetchCandles(c.Request.Context(), gw, strings.ToUpper(req.Symbol), req.Interval, req.Limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "MARKET_DATA_UNAVAILABLE", "error": err.Error()})
		return
	}

	result, err := backtest.Run(req.Request, candles)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BACKTEST_FAILED", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type strategyTestRequest struct {
	Exchange     string          `json:"exchange" binding:"required,min=1"`
	Symbol       string          `json:"symbol" binding:"required,min=1"`
	Interval     string          `json:"interval" binding:"required,min=1"`
	MarketType   string          `json:"marketType"`
	StrategyType string          `json:"strategyType" binding:"required,min=1"`
	Parameters   json.RawMessage `json:"parameters"`
	Limit        int             `json:"limit"`
}

// testStrategy evaluates a strategy once against fresh candles without
// executing anything, so users can sanity-check a config before arming it.
func (s *Server) testStrategy(c *gin.Context) {
	var req strategyTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	if !exchange.IsCanonicalInterval(req.Interval) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_INTERVAL", "error": "unsupported interval " + req.Interval})
		return
	}

	params, err := strategy.ParseParams(req.StrategyType, req.Parameters)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STRATEGY", "error": err.Error()})
		return
	}

	gw, err := s.marketData(req.Exchange, req.MarketType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "UNKNOWN_EXCHANGE", "error": err.Error()})
		return
	}
	candles, err := s.fetchCandles(c.Request.Context(), gw, strings.ToUpper(req.Symbol), req.Interval, req.Limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "MARKET_DATA_UNAVAILABLE", "error": err.Error()})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"code": "MARKET_DATA_UNAVAILABLE", "error": "no candles returned"})
		return
	}

	sig := strategy.Evaluate(params, candles, strategy.State{})
	c.JSON(http.StatusOK, gin.H{
		"action":  sig.Action,
		"reason":  sig.Reason,
		"price":   candles[len(candles)-1].Close,
		"candles": len(candles),
	})
}

type validateCredentialsRequest struct {
	Exchange   string `json:"exchange" binding:"required,min=1"`
	MarketType string `json:"marketType"`
	Testnet    bool   `json:"testnet"`
	APIKey     string `json:"apiKey" binding:"required,min=1"`
	APISecret  string `json:"apiSecret" binding:"required,min=1"`
	Passphrase string `json:"passphrase"`
}

// validateCredentials performs one authenticated probe against the venue.
// Rejected keys come back as valid=false; infrastructure failures are a 502
// because validity stays undetermined.
func (s *Server) validateCredentials(c *gin.Context) {
	var req validateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}

	market := exchange.MarketType(req.MarketType)
	if market == "" {
		market = exchange.MarketSpot
	}
	gw, err := s.Factory.Create(req.Exchange, exchange.Credentials{
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
		Passphrase: req.Passphrase,
	}, market, req.Testnet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "UNKNOWN_EXCHANGE", "error": err.Error()})
		return
	}

	valid, err := gw.ValidateCredentials(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "VALIDATION_UNDETERMINED", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid, "exchange": gw.Name()})
}
