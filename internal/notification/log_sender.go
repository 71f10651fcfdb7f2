package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/port"
)

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that logs at info level
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.Named("notification")}
}

// Send implements port.NotificationSender
func (s *LogSender) Send(ctx context.Context, msg port.Message) error {
	s.logger.Info("Notification",
		zap.String("document_id", msg.DocumentID),
		zap.String("project_id", msg.ProjectID),
		zap.Strings("recipients", msg.Recipients),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

var _ port.NotificationSender = (*LogSender)(nil)
