package sms

import (
	"fmt"
	"strings"

	"github.com/carepulse/carepulse/pkg/logging"
)

const (
	// ProviderAuto picks Telnyx when configured, otherwise Twilio.
	ProviderAuto = "auto"
	// ProviderTelnyx forces the Telnyx sender.
	ProviderTelnyx = "telnyx"
	// ProviderTwilio forces the Twilio sender.
	ProviderTwilio = "twilio"
)

// ProviderConfig captures the credentials required to build a Sender.
type ProviderConfig struct {
	Preference       string
	TelnyxAPIKey     string
	TelnyxProfileID  string
	TelnyxBaseURL    string
	TwilioAccountSID string
	TwilioAuthToken  string
}

// BuildSender instantiates one Sender based on the preferred provider. It returns
// the sender, the provider name, and a reason when nothing could be built.
// Only one provider is ever used per process.
func BuildSender(cfg ProviderConfig, logger *logging.Logger) (Sender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = ProviderAuto
	}

	missing := map[string]string{}
	var telnyx Sender
	var twilio Sender

	if cfg.TelnyxAPIKey != "" && cfg.TelnyxProfileID != "" {
		sender, err := NewTelnyxSender(TelnyxConfig{
			BaseURL:            cfg.TelnyxBaseURL,
			APIKey:             cfg.TelnyxAPIKey,
			MessagingProfileID: cfg.TelnyxProfileID,
			Logger:             logger,
		})
		if err != nil {
			missing[ProviderTelnyx] = err.Error()
		} else {
			telnyx = sender
		}
	} else {
		var reasons []string
		if cfg.TelnyxAPIKey == "" {
			reasons = append(reasons, "TELNYX_API_KEY missing")
		}
		if cfg.TelnyxProfileID == "" {
			reasons = append(reasons, "TELNYX_MESSAGING_PROFILE_ID missing")
		}
		missing[ProviderTelnyx] = strings.Join(reasons, ", ")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilio = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, logger)
	} else {
		var reasons []string
		if cfg.TwilioAccountSID == "" {
			reasons = append(reasons, "TWILIO_ACCOUNT_SID missing")
		}
		if cfg.TwilioAuthToken == "" {
			reasons = append(reasons, "TWILIO_AUTH_TOKEN missing")
		}
		missing[ProviderTwilio] = strings.Join(reasons, ", ")
	}

	switch preference {
	case ProviderTelnyx:
		if telnyx != nil {
			return telnyx, ProviderTelnyx, ""
		}
		return nil, "", missing[ProviderTelnyx]
	case ProviderTwilio:
		if twilio != nil {
			return twilio, ProviderTwilio, ""
		}
		return nil, "", missing[ProviderTwilio]
	case ProviderAuto:
	default:
		return nil, "", fmt.Sprintf("unknown SMS provider %q", preference)
	}

	if telnyx != nil {
		return telnyx, ProviderTelnyx, ""
	}
	if twilio != nil {
		return twilio, ProviderTwilio, ""
	}
	return nil, "", fmt.Sprintf("%s: %s; %s: %s",
		ProviderTelnyx, missing[ProviderTelnyx], ProviderTwilio, missing[ProviderTwilio])
}
