package notify

import (
	"context"

	"go.uber.org/zap"
)

// Logger writes notifications to the structured log. It backs development
// setups and doubles as the fallback when no external channel is
// configured.
type Logger struct {
	log *zap.Logger
}

func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log}
}

func (n *Logger) Notify(ctx context.Context, userID string, t Type, message, botName string, data map[string]any) {
	fields := []zap.Field{
		zap.String("user", userID),
		zap.String("type", string(t)),
	}
	if botName != "" {
		fields = append(fields, zap.String("bot", botName))
	}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	n.log.Info(message, fields...)
}

// Multi fans one notification out to several channels.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID string, t Type, message, botName string, data map[string]any) {
	for _, n := range m {
		n.Notify(ctx, userID, t, message, botName, data)
	}
}
