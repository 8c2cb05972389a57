package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

var serviceTracer = otel.Tracer("carepulse.internal.platform.sms")

// ErrNotDelivered is returned when no recipient received the message.
var ErrNotDelivered = errors.New("sms: message not delivered")

// Service resolves platform users to phone numbers and sends through one Sender.
type Service struct {
	users    platform.Users
	sender   Sender
	provider string
	from     string
	log      *MessageLog
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the messaging service. log may be nil.
func NewService(users platform.Users, sender Sender, provider, from string, log *MessageLog, logger *logging.Logger) *Service {
	if users == nil {
		panic("sms: users required")
	}
	if sender == nil {
		panic("sms: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		users:    users,
		sender:   sender,
		provider: provider,
		from:     from,
		log:      log,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSMS sends content to every user in userIDs. Topics are recorded on the
// receipt; delivery only targets users. The call fails when nobody was reached.
func (s *Service) CreateSMS(ctx context.Context, messageID, content string, topics, userIDs []string) (*platform.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("sms: content required")
	}
	if len(userIDs) == 0 {
		return nil, errors.New("sms: at least one recipient user required")
	}
	if messageID == "" {
		messageID = platform.UniqueID()
	}

	ctx, span := serviceTracer.Start(ctx, "sms.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("carepulse.message_id", messageID),
		attribute.Int("carepulse.recipients", len(userIDs)),
	)

	msg := &platform.Message{
		ID:             messageID,
		ProviderType:   "sms",
		Topics:         nonNil(topics),
		Users:          append([]string(nil), userIDs...),
		Content:        content,
		DeliveryErrors: []string{},
		CreatedAt:      s.now(),
	}

	for _, userID := range userIDs {
		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			msg.DeliveryErrors = append(msg.DeliveryErrors, fmt.Sprintf("%s: %v", userID, err))
			continue
		}
		if strings.TrimSpace(user.Phone) == "" {
			msg.DeliveryErrors = append(msg.DeliveryErrors, fmt.Sprintf("%s: no phone number", userID))
			continue
		}
		receipt, err := s.sender.Send(ctx, Outbound{To: user.Phone, From: s.from, Body: content})
		if err != nil {
			s.logger.Error("failed to send sms", "error", err, "user_id", userID, "provider", s.provider)
			msg.DeliveryErrors = append(msg.DeliveryErrors, fmt.Sprintf("%s: %v", userID, err))
			continue
		}
		msg.DeliveredTotal++
		s.logger.Debug("sms delivered", "user_id", userID, "provider_message_id", receipt.ProviderMessageID)
	}

	if msg.DeliveredTotal > 0 {
		msg.Status = platform.MessageStatusSent
		delivered := s.now()
		msg.DeliveredAt = &delivered
	} else {
		msg.Status = platform.MessageStatusFailed
	}
	if err := s.log.Append(ctx, msg); err != nil {
		s.logger.Warn("failed to record message receipt", "error", err, "message_id", messageID)
	}

	if msg.DeliveredTotal == 0 {
		err := fmt.Errorf("%w: %s", ErrNotDelivered, strings.Join(msg.DeliveryErrors, "; "))
		span.RecordError(err)
		return nil, err
	}
	return msg, nil
}

// Recent returns the latest receipts from the message log.
func (s *Service) Recent(ctx context.Context, limit int64) ([]platform.Message, error) {
	return s.log.List(ctx, limit)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}

var _ platform.Messaging = (*Service)(nil)
