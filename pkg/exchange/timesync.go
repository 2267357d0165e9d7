package exchange

import (
	"sync"
	"time"
)

// TimeSync tracks the offset between local and exchange server clocks so
// signed requests carry timestamps inside the venue's receive window.
type TimeSync struct {
	getServerTime func() (int64, error)
	offset        int64 // milliseconds (server - local)
	lastSync      time.Time
	syncInterval  time.Duration
	mu            sync.RWMutex
}

// NewTimeSync creates a time synchronization helper around a venue's
// server-time endpoint.
func NewTimeSync(getServerTime func() (int64, error)) *TimeSync {
	return &TimeSync{
		getServerTime: getServerTime,
		syncInterval:  30 * time.Minute,
	}
}

// Sync measures the offset once. Network latency is assumed symmetric.
func (ts *TimeSync) Sync() error {
	localBefore := time.Now().UnixMilli()
	serverTime, err := ts.getServerTime()
	if err != nil {
		return err
	}
	localAfter := time.Now().UnixMilli()

	latency := (localAfter - localBefore) / 2
	localTime := localBefore + latency

	ts.mu.Lock()
	ts.offset = serverTime - localTime
	ts.lastSync = time.Now()
	ts.mu.Unlock()
	return nil
}

// Now returns current time in ms adjusted for server offset, re-syncing
// lazily when the last sync is stale.
func (ts *TimeSync) Now() int64 {
	ts.mu.RLock()
	stale := time.Since(ts.lastSync) >= ts.syncInterval
	ts.mu.RUnlock()
	if stale {
		_ = ts.Sync()
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return time.Now().UnixMilli() + ts.offset
}

// Offset returns the current time offset in milliseconds.
func (ts *TimeSync) Offset() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.offset
}
