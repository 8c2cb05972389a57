package sms

import (
	"context"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

// LogSender logs messages instead of sending them. Used when no provider is
// configured outside production.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Outbound) (*Receipt, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}
	id := "log-" + platform.UniqueID()
	s.logger.Info("sms suppressed (log sender)", "to", msg.To, "from", msg.From, "chars", len(msg.Body), "provider_message_id", id)
	return &Receipt{ProviderMessageID: id, Status: "logged"}, nil
}
