package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// CredentialSource resolves decrypted exchange credentials for a user. Paper
// bots only hit public endpoints and work with empty credentials.
type CredentialSource interface {
	Credentials(ctx context.Context, userID, venue string) (exchange.Credentials, error)
}

// StaticCredentials serves one fixed credential set per venue for every
// user. Suits single-operator deployments configured from the environment.
type StaticCredentials map[string]exchange.Credentials

func (s StaticCredentials) Credentials(_ context.Context, _, venue string) (exchange.Credentials, error) {
	return s[strings.ToLower(venue)], nil
}

type entry struct {
	runner *executor.Runner
	stop   chan struct{}
	done   chan struct{}
}

// Scheduler owns the per-bot trading loops: one goroutine per running bot,
// waking on the bot's candle interval. Start and stop are idempotent and
// safe to call concurrently; a stop lets any in-flight tick finish and only
// prevents the next one.
type Scheduler struct {
	base    context.Context // lifetime of all bot loops
	deps    executor.Deps
	factory *exchange.Factory
	creds   CredentialSource
	log     *zap.Logger

	mu   sync.Mutex
	bots map[string]*entry
}

// New creates a scheduler. The context bounds the lifetime of every bot
// loop; cancelling it is the engine-wide shutdown.
func New(ctx context.Context, deps executor.Deps, factory *exchange.Factory, creds CredentialSource) *Scheduler {
	return &Scheduler{
		base:    ctx,
		deps:    deps,
		factory: factory,
		creds:   creds,
		log:     deps.Log.Named("scheduler"),
		bots:    make(map[string]*entry),
	}
}

// Start arms a bot's trading loop. Starting an already-running bot is a
// no-op. The first tick runs immediately; subsequent ticks follow the bot's
// candle interval.
func (s *Scheduler) Start(ctx context.Context, botID string) error {
	s.mu.Lock()
	_, running := s.bots[botID]
	s.mu.Unlock()
	if running {
		return nil
	}

	bot, err := s.deps.DB.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	interval, err := tickInterval(bot.Interval)
	if err != nil {
		return err
	}

	creds, err := s.creds.Credentials(ctx, bot.UserID, bot.Exchange)
	if err != nil {
		return fmt.Errorf("credentials for %s: %w", bot.Exchange, err)
	}
	gw, err := s.factory.Create(bot.Exchange, creds, exchange.MarketType(bot.MarketType), bot.Testnet)
	if err != nil {
		return err
	}

	runner, err := executor.NewRunner(ctx, s.deps, bot, gw)
	if err != nil {
		return fmt.Errorf("start bot %s: %w", botID, err)
	}

	e := &entry{runner: runner, stop: make(chan struct{}), done: make(chan struct{})}
	s.mu.Lock()
	if _, raced := s.bots[botID]; raced {
		s.mu.Unlock()
		return nil
	}
	s.bots[botID] = e
	s.mu.Unlock()

	if err := s.deps.DB.UpdateBotStatus(ctx, botID, "running"); err != nil {
		s.log.Warn("status update failed", zap.String("bot", botID), zap.Error(err))
	}
	s.appendLog(ctx, botID, "bot started")
	s.deps.Bus.Publish(events.BotStatusEvent{
		BotID: botID, UserID: bot.UserID, Status: "running", Time: time.Now(),
	})
	s.log.Info("bot armed",
		zap.String("bot", botID), zap.String("symbol", bot.Symbol),
		zap.Duration("interval", interval))

	go s.loop(e, interval)
	return nil
}

// Stop disarms a bot's loop and waits for any in-flight tick to complete.
// Stopping a bot that is not running still normalizes its persisted status.
func (s *Scheduler) Stop(ctx context.Context, botID string) error {
	s.mu.Lock()
	e, ok := s.bots[botID]
	if ok {
		delete(s.bots, botID)
	}
	s.mu.Unlock()

	if ok {
		close(e.stop)
		<-e.done
		s.deps.States.Delete(botID)
		s.appendLog(ctx, botID, "bot stopped")
	}

	bot, err := s.deps.DB.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.Status != "stopped" {
		if err := s.deps.DB.UpdateBotStatus(ctx, botID, "stopped"); err != nil {
			return err
		}
		s.deps.Bus.Publish(events.BotStatusEvent{
			BotID: botID, UserID: bot.UserID, Status: "stopped", Time: time.Now(),
		})
	}
	return nil
}

// Rearm restarts every bot persisted as running. Called once at boot so a
// restart picks up where the previous process left off. A bot that fails to
// arm is marked errored and the rest proceed.
func (s *Scheduler) Rearm(ctx context.Context) error {
	bots, err := s.deps.DB.ListBotsByStatus(ctx, "running")
	if err != nil {
		return err
	}
	for _, b := range bots {
		if err := s.Start(ctx, b.ID); err != nil {
			s.log.Error("re-arm failed", zap.String("bot", b.ID), zap.Error(err))
			if uerr := s.deps.DB.UpdateBotStatus(ctx, b.ID, "error"); uerr != nil {
				s.log.Warn("status update failed", zap.String("bot", b.ID), zap.Error(uerr))
			}
			s.appendLog(ctx, b.ID, "re-arm failed: "+err.Error())
		}
	}
	s.log.Info("re-arm complete", zap.Int("bots", len(bots)))
	return nil
}

// Runner returns the live runner for a bot, for the manual approval path.
func (s *Scheduler) Runner(botID string) (*executor.Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.bots[botID]
	if !ok {
		return nil, false
	}
	return e.runner, true
}

// Runners snapshots the live runner of every armed bot.
func (s *Scheduler) Runners() []*executor.Runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*executor.Runner, 0, len(s.bots))
	for _, e := range s.bots {
		out = append(out, e.runner)
	}
	return out
}

// Running reports whether a bot's loop is armed.
func (s *Scheduler) Running(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bots[botID]
	return ok
}

// Shutdown stops all loops and waits for in-flight ticks.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.bots))
	for id, e := range s.bots {
		entries = append(entries, e)
		delete(s.bots, id)
	}
	s.mu.Unlock()

	for _, e := range entries {
		close(e.stop)
		<-e.done
	}
}

func (s *Scheduler) loop(e *entry, interval time.Duration) {
	defer close(e.done)

	t := time.NewTicker(interval)
	defer t.Stop()

	// Ticks run on the scheduler's base context, so stopping one bot never
	// aborts its in-flight exchange calls; engine shutdown does.
	e.runner.Tick(s.base)
	for {
		select {
		case <-e.stop:
			return
		case <-s.base.Done():
			return
		case <-t.C:
			select {
			case <-e.stop:
				return
			default:
			}
			e.runner.Tick(s.base)
		}
	}
}

func (s *Scheduler) appendLog(ctx context.Context, botID, msg string) {
	if err := s.deps.DB.AppendBotLog(ctx, botID, "info", msg); err != nil {
		s.log.Warn("bot log write failed", zap.String("bot", botID), zap.Error(err))
	}
}

// tickInterval maps a canonical candle interval to the loop wake period.
func tickInterval(interval string) (time.Duration, error) {
	d, ok := map[string]time.Duration{
		"1m":  time.Minute,
		"3m":  3 * time.Minute,
		"5m":  5 * time.Minute,
		"15m": 15 * time.Minute,
		"30m": 30 * time.Minute,
		"1h":  time.Hour,
		"2h":  2 * time.Hour,
		"4h":  4 * time.Hour,
		"6h":  6 * time.Hour,
		"12h": 12 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	return d, nil
}
