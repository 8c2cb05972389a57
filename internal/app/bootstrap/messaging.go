package bootstrap

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/carepulse/carepulse/internal/config"
	"github.com/carepulse/carepulse/internal/notify"
	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/internal/platform/sms"
	"github.com/carepulse/carepulse/pkg/logging"
)

// BuildMessaging picks the SMS provider and wraps it in the platform
// messaging service. Outside production a missing provider falls back to
// logging the text instead of sending it.
func BuildMessaging(cfg *appconfig.Config, users platform.Users, redisClient *redis.Client, logger *logging.Logger) (*sms.Service, error) {
	if logger == nil {
		logger = logging.Default()
	}
	sender, provider, reason := sms.BuildSender(sms.ProviderConfig{
		Preference:       cfg.SMSProvider,
		TelnyxAPIKey:     cfg.TelnyxAPIKey,
		TelnyxProfileID:  cfg.TelnyxMessagingProfileID,
		TelnyxBaseURL:    cfg.TelnyxBaseURL,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
	}, logger)
	if sender == nil {
		if cfg.IsProduction() {
			return nil, errors.New("bootstrap: no sms provider configured: " + reason)
		}
		logger.Warn("sms provider not configured; messages will be logged only", "reason", reason)
		sender, provider = sms.NewLogSender(logger), "log"
	}
	logger.Info("sms provider selected", "provider", provider)

	log := sms.NewMessageLog(redisClient, cfg.MessageLogTTL, cfg.MessageLogMaxLen)
	return sms.NewService(users, sender, provider, cfg.SMSFromNumber, log, logger), nil
}

// BuildEmailSender returns the sender for e-mail copies of appointment texts,
// or nil when copies are off.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if !cfg.NotifyEmailCopies {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("SENDGRID_API_KEY missing; e-mail copies disabled")
		return nil
	case "ses":
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	case "stub", "":
		return notify.NewStubEmailSender(logger)
	default:
		logger.Warn("unknown EMAIL_PROVIDER; e-mail copies disabled", "provider", cfg.EmailProvider)
		return nil
	}
}
