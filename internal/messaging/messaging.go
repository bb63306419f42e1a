// Package messaging sends outbound WhatsApp messages for the clinic. The
// primary path is Meta's Cloud API with pre-approved templates; Twilio serves
// as a plain-text fallback for orgs without an approved template catalog.
package messaging

import (
	"context"
	"time"
)

// OutboundTemplate is a templated WhatsApp send. Params fill the template's
// body placeholders in order. FallbackBody is the fully rendered text used by
// providers that cannot address the template by name.
type OutboundTemplate struct {
	OrgID        string
	To           string
	Template     string
	Language     string
	Params       []string
	FallbackBody string
}

// OutboundText is a free-form send, only valid inside an open conversation
// window.
type OutboundText struct {
	OrgID string
	To    string
	Body  string
}

// SendResult reports the provider-side identity of a delivered message.
type SendResult struct {
	MessageID string
	Provider  string
}

// Messenger is the outbound channel used by the reminder dispatcher and the
// reply flow.
type Messenger interface {
	SendTemplate(ctx context.Context, msg OutboundTemplate) (SendResult, error)
	SendText(ctx context.Context, msg OutboundText) (SendResult, error)
}

// RetryPolicy bounds transient-failure retries on a single send.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is used when a sender is built without an explicit
// policy.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultRetryPolicy.Backoff
	}
	return p
}

// wait sleeps for the attempt's backoff, aborting early on context
// cancellation.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * p.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
