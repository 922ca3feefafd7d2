package notify

import (
	"context"

	"go.uber.org/zap"

	"estate/internal/models"
)

// LogSink records every notification. It is always configured so a
// deployment without SMTP or SMS still leaves a trace.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, to models.Contact, n Notification) error {
	s.logger.Info("notification",
		zap.String("user_id", to.UserID),
		zap.String("email", to.Email),
		zap.String("kind", string(n.Kind)),
		zap.String("subject", n.Subject),
		zap.String("entity_id", n.EntityID),
	)
	return nil
}
