package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// TwilioSender posts WhatsApp messages through Twilio's REST API. It has no
// template catalog, so templated sends use the pre-rendered fallback body.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	retry      RetryPolicy
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSender builds a sender. from is the Twilio WhatsApp number,
// without the "whatsapp:" prefix.
func NewTwilioSender(accountSID, authToken, from string, retry RetryPolicy, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		retry:      retry.normalize(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Messenger = (*TwilioSender)(nil)

// SendTemplate sends the template's rendered fallback body as plain text.
func (s *TwilioSender) SendTemplate(ctx context.Context, msg OutboundTemplate) (SendResult, error) {
	if strings.TrimSpace(msg.FallbackBody) == "" {
		return SendResult{}, errors.New("messaging: twilio requires a rendered fallback body")
	}
	return s.send(ctx, msg.OrgID, msg.To, msg.FallbackBody)
}

// SendText dispatches a free-form message.
func (s *TwilioSender) SendText(ctx context.Context, msg OutboundText) (SendResult, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return SendResult{}, errors.New("messaging: body required")
	}
	return s.send(ctx, msg.OrgID, msg.To, msg.Body)
}

func (s *TwilioSender) send(ctx context.Context, orgID, to, body string) (SendResult, error) {
	if s.accountSID == "" || s.authToken == "" {
		return SendResult{}, errors.New("messaging: twilio credentials missing")
	}
	if to == "" {
		return SendResult{}, errors.New("messaging: to required")
	}
	if s.from == "" {
		return SendResult{}, errors.New("messaging: twilio from number missing")
	}

	payload := url.Values{}
	payload.Set("To", "whatsapp:"+to)
	payload.Set("From", "whatsapp:"+s.from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			return SendResult{}, err
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				result := SendResult{Provider: "twilio"}
				if err := json.Unmarshal(respBody, &parsed); err == nil {
					result.MessageID = parsed.SID
				}
				s.logger.Info("twilio whatsapp message sent", "org_id", orgID, "to", to)
				return result, nil
			}
			lastErr = fmt.Errorf("messaging: twilio send failed: status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}

		if attempt < s.retry.MaxAttempts {
			if err := s.retry.wait(ctx, attempt); err != nil {
				return SendResult{}, err
			}
		}
	}
	return SendResult{}, lastErr
}
