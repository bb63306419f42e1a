package messaging

import (
	"fmt"
	"strings"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

const (
	// ProviderAuto tries Meta's Cloud API first, then Twilio.
	ProviderAuto = "auto"
	// ProviderWhatsApp forces the Cloud API sender when credentials exist.
	ProviderWhatsApp = "whatsapp"
	// ProviderTwilio forces the Twilio sender when credentials exist.
	ProviderTwilio = "twilio"
)

// ProviderSelectionConfig captures the credentials required to build outbound
// messengers.
type ProviderSelectionConfig struct {
	Preference       string
	WhatsAppToken    string
	WhatsAppPhoneID  string
	WhatsAppBaseURL  string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	Retry            RetryPolicy
}

// BuildMessenger instantiates a Messenger based on the preferred provider. It
// returns the messenger, the provider that was selected, and a reason when no
// provider could be initialized.
func BuildMessenger(cfg ProviderSelectionConfig, logger *logging.Logger) (Messenger, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = ProviderAuto
	}

	missing := map[string]string{}
	var whatsapp Messenger
	var twilio Messenger

	if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneID != "" {
		whatsapp = NewWhatsAppSender(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, cfg.WhatsAppBaseURL, cfg.Retry, logger)
	} else {
		var reasons []string
		if cfg.WhatsAppToken == "" {
			reasons = append(reasons, "WHATSAPP_ACCESS_TOKEN missing")
		}
		if cfg.WhatsAppPhoneID == "" {
			reasons = append(reasons, "WHATSAPP_PHONE_NUMBER_ID missing")
		}
		missing[ProviderWhatsApp] = strings.Join(reasons, ", ")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilio = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.Retry, logger)
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

	if preference != ProviderAuto {
		if preference == ProviderWhatsApp && whatsapp != nil {
			return whatsapp, ProviderWhatsApp, ""
		}
		if preference == ProviderTwilio && twilio != nil {
			return twilio, ProviderTwilio, ""
		}
		reason := missing[preference]
		if reason == "" {
			reason = fmt.Sprintf("%s messenger not configured", preference)
		}
		return nil, "", reason
	}

	if whatsapp != nil && twilio != nil {
		return NewFailoverMessenger(whatsapp, ProviderWhatsApp, twilio, ProviderTwilio, logger), ProviderWhatsApp + "+" + ProviderTwilio, ""
	}
	if whatsapp != nil {
		return whatsapp, ProviderWhatsApp, ""
	}
	if twilio != nil {
		return twilio, ProviderTwilio, ""
	}

	var reasons []string
	for _, provider := range []string{ProviderWhatsApp, ProviderTwilio} {
		if msg := missing[provider]; msg != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", provider, msg))
		}
	}
	return nil, "", strings.Join(reasons, "; ")
}
