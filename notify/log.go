package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes each message to a zap logger at warn level.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Error(_ context.Context, message string) {
	l.logger.Warn("cart notification", zap.String("message", message))
}
