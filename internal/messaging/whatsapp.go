package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

var whatsappTracer = otel.Tracer("clinic.internal.messaging.whatsapp")

// WhatsAppSender posts messages through Meta's WhatsApp Cloud API.
type WhatsAppSender struct {
	token      string
	phoneID    string
	baseURL    string
	retry      RetryPolicy
	httpClient *http.Client
	logger     *logging.Logger
}

// NewWhatsAppSender builds a Cloud API sender. baseURL should include the
// Graph API version, e.g. "https://graph.facebook.com/v21.0".
func NewWhatsAppSender(token, phoneID, baseURL string, retry RetryPolicy, logger *logging.Logger) *WhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppSender{
		token:   token,
		phoneID: phoneID,
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry.normalize(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Messenger = (*WhatsAppSender)(nil)

type waTemplatePayload struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Template         waTemplate `json:"template"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waTextPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

type waText struct {
	Body string `json:"body"`
}

// SendTemplate dispatches a pre-approved template with ordered body params.
func (s *WhatsAppSender) SendTemplate(ctx context.Context, msg OutboundTemplate) (SendResult, error) {
	if msg.Template == "" {
		return SendResult{}, errors.New("messaging: template name required")
	}
	lang := msg.Language
	if lang == "" {
		lang = "pt_BR"
	}

	payload := waTemplatePayload{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "template",
		Template: waTemplate{
			Name:     msg.Template,
			Language: waLanguage{Code: lang},
		},
	}
	if len(msg.Params) > 0 {
		params := make([]waParameter, len(msg.Params))
		for i, p := range msg.Params {
			params[i] = waParameter{Type: "text", Text: p}
		}
		payload.Template.Components = []waComponent{{Type: "body", Parameters: params}}
	}

	return s.post(ctx, msg.OrgID, msg.To, "template", payload)
}

// SendText dispatches a free-form message.
func (s *WhatsAppSender) SendText(ctx context.Context, msg OutboundText) (SendResult, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return SendResult{}, errors.New("messaging: body required")
	}
	payload := waTextPayload{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "text",
		Text:             waText{Body: msg.Body},
	}
	return s.post(ctx, msg.OrgID, msg.To, "text", payload)
}

func (s *WhatsAppSender) post(ctx context.Context, orgID, to, kind string, payload any) (SendResult, error) {
	if s.token == "" || s.phoneID == "" {
		return SendResult{}, errors.New("messaging: whatsapp credentials missing")
	}
	if to == "" {
		return SendResult{}, errors.New("messaging: to required")
	}

	ctx, span := whatsappTracer.Start(ctx, "messaging.whatsapp.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.org_id", orgID),
		attribute.String("clinic.message_kind", kind),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("messaging: encode payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneID)

	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return SendResult{}, err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					Messages []struct {
						ID string `json:"id"`
					} `json:"messages"`
				}
				result := SendResult{Provider: "whatsapp"}
				if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Messages) > 0 {
					result.MessageID = parsed.Messages[0].ID
				}
				s.logger.Info("whatsapp message sent", "org_id", orgID, "kind", kind, "message_id", result.MessageID)
				return result, nil
			}
			lastErr = fmt.Errorf("messaging: whatsapp send failed: %s", formatGraphError(resp.StatusCode, respBody))
			// 4xx other than rate limiting will not succeed on retry.
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
	span.RecordError(lastErr)
	return SendResult{}, lastErr
}

func formatGraphError(status int, body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Sprintf("status %d, code %d: %s", status, parsed.Error.Code, parsed.Error.Message)
	}
	return fmt.Sprintf("status %d", status)
}
