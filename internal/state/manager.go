package state

import (
	"sync"
	"time"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/risk"
)

// ExecutionState is the mutable per-bot trading state. Each bot's tick
// sequence owns its state exclusively; the manager only hands out copies and
// accepts writes between ticks. State is rebuilt fresh when a bot starts, it
// is not persisted across restarts.
type ExecutionState struct {
	BotID       string             `json:"botId"`
	Position    float64            `json:"position"` // signed quantity, negative short
	EntryPrice  float64            `json:"entryPrice"`
	Balance     float64            `json:"balance"` // cash balance; margin held out separately for futures
	Margin      float64            `json:"margin"`  // futures margin locked against the open position
	DailyPnL    float64            `json:"dailyPnl"`
	DailyReset  time.Time          `json:"dailyReset"`  // UTC day the daily counters belong to
	NextFunding time.Time          `json:"nextFunding"` // next funding settlement due for futures bots
	Drawdown    risk.DrawdownState `json:"drawdown"`
	LastSignal  string             `json:"lastSignal"`
}

// Manager holds execution state for all running bots.
type Manager struct {
	mu     sync.RWMutex
	states map[string]ExecutionState
}

func NewManager() *Manager {
	return &Manager{states: make(map[string]ExecutionState)}
}

// Get returns a copy of a bot's state and whether it exists.
func (m *Manager) Get(botID string) (ExecutionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[botID]
	return s, ok
}

// Put stores a bot's state, replacing any previous value.
func (m *Manager) Put(s ExecutionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.BotID] = s
}

// Delete removes a bot's state when it stops.
func (m *Manager) Delete(botID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, botID)
}

// ResetDaily zeroes the daily PnL counters for every bot whose counters
// belong to a previous UTC day. Run from the daily maintenance job.
func (m *Manager) ResetDaily(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.states {
		if s.DailyReset.Before(day) {
			s.DailyPnL = 0
			s.DailyReset = day
			m.states[id] = s
		}
	}
}

// Snapshot returns copies of all states, for status endpoints.
func (m *Manager) Snapshot() []ExecutionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExecutionState, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	return out
}
