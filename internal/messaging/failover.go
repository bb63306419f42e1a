package messaging

import (
	"context"
	"errors"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// FailoverMessenger attempts a primary send, then falls back to a secondary
// provider on error.
type FailoverMessenger struct {
	primary       Messenger
	secondary     Messenger
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverMessenger builds a failover messenger with named providers.
func NewFailoverMessenger(primary Messenger, primaryName string, secondary Messenger, secondaryName string, logger *logging.Logger) *FailoverMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverMessenger{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ Messenger = (*FailoverMessenger)(nil)

// SendTemplate tries the primary provider first.
func (f *FailoverMessenger) SendTemplate(ctx context.Context, msg OutboundTemplate) (SendResult, error) {
	return f.send(ctx, msg.To, func(m Messenger) (SendResult, error) {
		return m.SendTemplate(ctx, msg)
	})
}

// SendText tries the primary provider first.
func (f *FailoverMessenger) SendText(ctx context.Context, msg OutboundText) (SendResult, error) {
	return f.send(ctx, msg.To, func(m Messenger) (SendResult, error) {
		return m.SendText(ctx, msg)
	})
}

func (f *FailoverMessenger) send(ctx context.Context, to string, do func(Messenger) (SendResult, error)) (SendResult, error) {
	if f == nil || f.primary == nil {
		return SendResult{}, errors.New("messaging: failover primary sender not configured")
	}
	result, err := do(f.primary)
	if err == nil {
		return result, nil
	}
	if f.secondary == nil {
		return SendResult{}, err
	}

	f.logger.Warn("primary whatsapp send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
		"to", to,
	)
	result, fallbackErr := do(f.secondary)
	if fallbackErr != nil {
		f.logger.Error("fallback whatsapp send failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
			"to", to,
		)
		return SendResult{}, fallbackErr
	}
	return result, nil
}
