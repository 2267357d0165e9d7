package events

import "time"

// Topic enumerates high-level event streams inside the engine.
type Topic string

const (
	TopicTrade           Topic = "trade"
	TopicBotStatus       Topic = "bot_status"
	TopicRiskAlert       Topic = "risk_alert"
	TopicFunding         Topic = "funding"
	TopicApprovalPending Topic = "approval_pending"
)

// TradeEvent is published after every executed trade, paper or live.
type TradeEvent struct {
	BotID  string    `json:"botId"`
	UserID string    `json:"userId"`
	Symbol string    `json:"symbol"`
	Side   string    `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	PnL    float64   `json:"pnl"`
	Paper  bool      `json:"paper"`
	Reason string    `json:"reason"`
	Time   time.Time `json:"time"`
}

func (e TradeEvent) EventTopic() Topic { return TopicTrade }
func (e TradeEvent) EventUser() string { return e.UserID }

// BotStatusEvent is published on bot lifecycle transitions.
type BotStatusEvent struct {
	BotID  string    `json:"botId"`
	UserID string    `json:"userId"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

func (e BotStatusEvent) EventTopic() Topic { return TopicBotStatus }
func (e BotStatusEvent) EventUser() string { return e.UserID }

// RiskAlertEvent is published on drawdown halts and risk rejections worth
// surfacing to the user.
type RiskAlertEvent struct {
	BotID   string    `json:"botId"`
	UserID  string    `json:"userId"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func (e RiskAlertEvent) EventTopic() Topic { return TopicRiskAlert }
func (e RiskAlertEvent) EventUser() string { return e.UserID }

// FundingEvent is published when a funding settlement is applied.
type FundingEvent struct {
	BotID  string    `json:"botId"`
	UserID string    `json:"userId"`
	Symbol string    `json:"symbol"`
	Amount float64   `json:"amount"`
	Rate   float64   `json:"rate"`
	Time   time.Time `json:"time"`
}

func (e FundingEvent) EventTopic() Topic { return TopicFunding }
func (e FundingEvent) EventUser() string { return e.UserID }

// ApprovalPendingEvent is published when a manual-mode bot queues a trade.
type ApprovalPendingEvent struct {
	ApprovalID string    `json:"approvalId"`
	BotID      string    `json:"botId"`
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	Qty        float64   `json:"qty"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
}

func (e ApprovalPendingEvent) EventTopic() Topic { return TopicApprovalPending }
func (e ApprovalPendingEvent) EventUser() string { return e.UserID }
