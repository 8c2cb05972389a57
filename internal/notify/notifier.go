package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carepulse/carepulse/internal/observability/metrics"
	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

var tracer = otel.Tracer("carepulse.internal.notify")

const emailSubject = "Your CarePulse appointment"

// Notifier sends a text to one platform user and optionally mirrors it by e-mail.
type Notifier struct {
	messaging platform.Messaging
	users     platform.Users
	email     EmailSender
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// Options configures the optional parts of a Notifier.
type Options struct {
	// Users and Email enable e-mail copies; both must be set.
	Users   platform.Users
	Email   EmailSender
	Metrics *metrics.Metrics
}

func NewNotifier(messaging platform.Messaging, opts Options, logger *logging.Logger) *Notifier {
	if messaging == nil {
		panic("notify: messaging required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		messaging: messaging,
		users:     opts.Users,
		email:     opts.Email,
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// SendSMS creates one SMS with a fresh message id addressed to userID and
// returns the platform receipt.
func (n *Notifier) SendSMS(ctx context.Context, userID, content string) (*platform.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("notify: user id required")
	}
	ctx, span := tracer.Start(ctx, "notify.sms")
	defer span.End()
	span.SetAttributes(attribute.String("carepulse.user_id", userID))

	msg, err := n.messaging.CreateSMS(ctx, platform.UniqueID(), content, []string{}, []string{userID})
	n.metrics.ObserveNotification("sms", err)
	if err != nil {
		span.RecordError(err)
		n.logger.Error("failed to send sms notification", "error", err, "user_id", userID)
		return nil, fmt.Errorf("notify: send sms: %w", err)
	}

	n.sendEmailCopy(ctx, userID, content)
	return msg, nil
}

// sendEmailCopy is best effort; the SMS already went out and is the notice of record.
func (n *Notifier) sendEmailCopy(ctx context.Context, userID, content string) {
	if n.email == nil || n.users == nil {
		return
	}
	user, err := n.users.GetUser(ctx, userID)
	if err == nil && user.Email == "" {
		err = errors.New("user has no email")
	}
	if err == nil {
		err = n.email.Send(ctx, EmailMessage{
			To:      user.Email,
			ToName:  user.Name,
			Subject: emailSubject,
			Body:    content,
		})
	}
	n.metrics.ObserveNotification("email", err)
	if err != nil {
		n.logger.Warn("email copy not sent", "error", err, "user_id", userID)
	}
}
