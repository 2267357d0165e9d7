package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Config holds environment-driven settings for the trading engine.
type Config struct {
	Addr string

	// Database
	DBPath string

	// Auth. Tokens are minted by the platform web backend with this secret;
	// the engine only verifies them.
	JWTSecret string

	// Exchange credentials for engine-owned accounts. Per-user credentials
	// come from the credential store at runtime; these are the fallback used
	// by the static credential source.
	BinanceAPIKey      string
	BinanceAPISecret   string
	BinanceTestnet     bool
	KrakenAPIKey       string
	KrakenAPISecret    string
	CoinbaseAPIKey     string
	CoinbaseAPISecret  string
	CoinbasePassphrase string

	// Notifications
	TelegramToken  string
	TelegramChatID int64

	// Operator-provided strategy definitions synced into the database at
	// boot. Missing file is not an error.
	StrategiesPath string

	// Paper trading
	DefaultPaperBalance float64

	// Logging
	Development bool
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the engine still starts when .env is missing.
	_ = godotenv.Load()

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", "./data/engine.db")
	}

	return &Config{
		Addr:                ":" + strings.TrimPrefix(getEnv("PORT", "8080"), ":"),
		DBPath:              dbPath,
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		BinanceAPIKey:       os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:    os.Getenv("BINANCE_API_SECRET"),
		BinanceTestnet:      getEnv("BINANCE_TESTNET", "false") == "true",
		KrakenAPIKey:        os.Getenv("KRAKEN_API_KEY"),
		KrakenAPISecret:     os.Getenv("KRAKEN_API_SECRET"),
		CoinbaseAPIKey:      os.Getenv("COINBASE_API_KEY"),
		CoinbaseAPISecret:   os.Getenv("COINBASE_API_SECRET"),
		CoinbasePassphrase:  os.Getenv("COINBASE_PASSPHRASE"),
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      getEnvInt64("TELEGRAM_CHAT_ID", 0),
		StrategiesPath:      getEnv("STRATEGIES_FILE", "strategies.yaml"),
		DefaultPaperBalance: getEnvFloat("DEFAULT_PAPER_BALANCE", 10000.0),
		Development:         getEnv("DEVELOPMENT", "false") == "true",
	}, nil
}

// Credentials maps the configured engine-owned API keys by venue name.
// Venues without configured keys are omitted so unauthenticated market-data
// access still works through the factory.
func (c *Config) Credentials() map[string]exchange.Credentials {
	out := make(map[string]exchange.Credentials)
	if c.BinanceAPIKey != "" {
		out["binance"] = exchange.Credentials{APIKey: c.BinanceAPIKey, APISecret: c.BinanceAPISecret}
	}
	if c.KrakenAPIKey != "" {
		out["kraken"] = exchange.Credentials{APIKey: c.KrakenAPIKey, APISecret: c.KrakenAPISecret}
	}
	if c.CoinbaseAPIKey != "" {
		out["coinbase"] = exchange.Credentials{
			APIKey:     c.CoinbaseAPIKey,
			APISecret:  c.CoinbaseAPISecret,
			Passphrase: c.CoinbasePassphrase,
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
