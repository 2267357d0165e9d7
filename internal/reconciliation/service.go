// Package reconciliation periodically compares local position state with
// what the exchange reports and adopts the exchange's view on drift. Drift
// happens when orders fill outside the engine, e.g. a liquidation or a
// manual close on the venue's own UI.
package reconciliation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
)

// DefaultInterval is how often running bots are checked against the venue.
const DefaultInterval = 5 * time.Minute

// RunnerSource lists the live runners to reconcile. Satisfied by the
// scheduler.
type RunnerSource interface {
	Runners() []*executor.Runner
}

// Service sweeps every running bot on a fixed interval. Paper and spot
// runners report no drift by themselves, so the sweep is effectively a
// live-futures concern.
type Service struct {
	source   RunnerSource
	interval time.Duration
	log      *zap.Logger
}

func NewService(source RunnerSource, interval time.Duration, log *zap.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		source:   source,
		interval: interval,
		log:      log.Named("reconciliation"),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(ctx)
			}
		}
	}()
	s.log.Info("reconciliation armed", zap.Duration("interval", s.interval))
}

// Sweep reconciles every running bot once and returns how many positions
// were adjusted. A failing bot is logged and skipped; the rest proceed.
func (s *Service) Sweep(ctx context.Context) int {
	adjusted := 0
	for _, r := range s.source.Runners() {
		drifted, err := r.ReconcilePosition(ctx)
		if err != nil {
			s.log.Warn("reconcile failed",
				zap.String("bot", r.Bot().ID), zap.Error(err))
			continue
		}
		if drifted {
			adjusted++
		}
	}
	if adjusted > 0 {
		s.log.Info("positions reconciled", zap.Int("adjusted", adjusted))
	}
	return adjusted
}
