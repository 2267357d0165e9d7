package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/api"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/credentials"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/monitor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/notify"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/reconciliation"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/scheduler"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/state"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/strategy"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/config"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/crypto"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange/binance"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange/coinbase"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange/kraken"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.Development)
	defer log.Sync()
	log.Info("starting trading engine", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatal("database open failed", zap.Error(err))
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatal("database migrations failed", zap.Error(err))
	}

	bus := events.NewBus()
	states := state.NewManager()
	notifier := notify.Multi{
		notify.NewLogger(log),
		notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log),
	}

	deps := executor.Deps{
		DB:       database,
		States:   states,
		Bus:      bus,
		Notifier: notifier,
		Log:      log,
	}

	factory := exchange.NewFactory()
	factory.Register("binance", func(creds exchange.Credentials, market exchange.MarketType, testnet bool) (exchange.Gateway, error) {
		return binance.New(binance.Config{Credentials: creds, Market: market, Testnet: testnet}), nil
	})
	factory.Register("kraken", func(creds exchange.Credentials, _ exchange.MarketType, _ bool) (exchange.Gateway, error) {
		return kraken.New(creds), nil
	})
	factory.Register("coinbase", func(creds exchange.Credentials, _ exchange.MarketType, _ bool) (exchange.Gateway, error) {
		return coinbase.New(creds), nil
	})

	if seeds, err := strategy.LoadSeedFile(cfg.StrategiesPath); err == nil {
		if err := strategy.SyncSeedToDB(ctx, database, seeds); err != nil {
			log.Error("strategy seed sync failed", zap.Error(err))
		} else {
			log.Info("strategy seeds synced", zap.Int("count", len(seeds)))
		}
	} else if !os.IsNotExist(err) {
		log.Error("strategy seed load failed", zap.Error(err))
	}

	keys, err := crypto.NewKeyManager()
	if err != nil {
		log.Warn("credential encryption key not configured, per-user credentials disabled", zap.Error(err))
		keys = nil
	}
	credStore := credentials.NewStore(database, keys, cfg.Credentials())

	sched := scheduler.New(ctx, deps, factory, credStore)
	defer sched.Shutdown()

	// Bots that were running before the last shutdown come back on boot.
	if err := sched.Rearm(ctx); err != nil {
		log.Error("re-arming running bots failed", zap.Error(err))
	}

	jobs := startDailyJobs(ctx, deps, log)
	defer jobs.Stop()

	recon := reconciliation.NewService(sched, reconciliation.DefaultInterval, log)
	recon.Start(ctx)

	metrics := monitor.NewCollector(bus)
	defer metrics.Close()

	server := api.NewServer(deps, sched, factory, credStore, cfg.JWTSecret)
	server.Metrics = metrics
	server.DefaultPaperBalance = cfg.DefaultPaperBalance
	httpServer := &http.Server{Addr: cfg.Addr, Handler: server.Router}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown", zap.Error(err))
	}
}

func newLogger(development bool) *zap.Logger {
	if development {
		log, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return log
}

// startDailyJobs schedules the UTC-midnight maintenance pass: daily PnL
// counters reset and per-bot performance rows are recomputed.
func startDailyJobs(ctx context.Context, deps executor.Deps, log *zap.Logger) *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc("0 0 * * *", func() {
		now := time.Now().UTC()
		deps.States.ResetDaily(now)

		bots, err := deps.DB.ListBotsByStatus(ctx, "running")
		if err != nil {
			log.Error("daily job: list running bots", zap.Error(err))
			return
		}
		for _, bot := range bots {
			if _, err := deps.DB.RecomputePerformance(ctx, bot.ID, bot.TradingMode != "live"); err != nil {
				log.Warn("daily job: recompute performance",
					zap.String("bot", bot.ID), zap.Error(err))
			}
		}
		log.Info("daily maintenance complete", zap.Int("bots", len(bots)))
	})
	if err != nil {
		log.Fatal("daily job schedule", zap.Error(err))
	}
	c.Start()
	return c
}
