// Package monitor aggregates engine activity counters for health reporting.
package monitor

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
)

// Collector counts engine events off the bus. It is a passive subscriber:
// executors and the scheduler publish as usual and never know metrics exist.
type Collector struct {
	started time.Time

	trades     atomic.Uint64
	paperPnL   atomic.Int64 // cents, to stay atomic
	statuses   atomic.Uint64
	riskAlerts atomic.Uint64
	fundings   atomic.Uint64
	approvals  atomic.Uint64

	unsubs []func()
}

// NewCollector subscribes to every engine topic and starts counting.
// Call Close to detach from the bus.
func NewCollector(bus *events.Bus) *Collector {
	c := &Collector{started: time.Now()}

	c.watch(bus, events.TopicTrade, func(msg events.Event) {
		c.trades.Add(1)
		if ev, ok := msg.(events.TradeEvent); ok && ev.Paper {
			c.paperPnL.Add(int64(ev.PnL * 100))
		}
	})
	c.watch(bus, events.TopicBotStatus, func(events.Event) { c.statuses.Add(1) })
	c.watch(bus, events.TopicRiskAlert, func(events.Event) { c.riskAlerts.Add(1) })
	c.watch(bus, events.TopicFunding, func(events.Event) { c.fundings.Add(1) })
	c.watch(bus, events.TopicApprovalPending, func(events.Event) { c.approvals.Add(1) })
	return c
}

func (c *Collector) watch(bus *events.Bus, topic events.Topic, fn func(events.Event)) {
	stream, unsub := bus.Subscribe(topic, 64)
	c.unsubs = append(c.unsubs, unsub)
	go func() {
		for msg := range stream {
			fn(msg)
		}
	}()
}

// Close detaches the collector from the bus.
func (c *Collector) Close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
}

// Snapshot is a point-in-time view of engine activity.
type Snapshot struct {
	UptimeSeconds int64   `json:"uptimeSeconds"`
	Trades        uint64  `json:"trades"`
	PaperPnL      float64 `json:"paperPnl"`
	StatusChanges uint64  `json:"statusChanges"`
	RiskAlerts    uint64  `json:"riskAlerts"`
	Fundings      uint64  `json:"fundings"`
	Approvals     uint64  `json:"approvals"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heapAllocMb"`
}

func (c *Collector) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return Snapshot{
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
		Trades:        c.trades.Load(),
		PaperPnL:      float64(c.paperPnL.Load()) / 100,
		StatusChanges: c.statuses.Load(),
		RiskAlerts:    c.riskAlerts.Load(),
		Fundings:      c.fundings.Load(),
		Approvals:     c.approvals.Load(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / (1 << 20),
	}
}
