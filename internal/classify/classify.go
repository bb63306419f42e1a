// Package classify resolves free-text patient replies into scheduling
// intents. The primary implementation calls Claude via Bedrock; a keyword
// matcher serves as the degraded-mode fallback.
package classify

import "context"

// Intent is the resolved meaning of a patient reply.
type Intent string

const (
	IntentConfirm    Intent = "confirm"
	IntentCancel     Intent = "cancel"
	IntentReschedule Intent = "reschedule"
	IntentQuestion   Intent = "question"
)

// Valid reports whether the intent is one of the four known values.
func (i Intent) Valid() bool {
	switch i {
	case IntentConfirm, IntentCancel, IntentReschedule, IntentQuestion:
		return true
	}
	return false
}

// Result is a classified reply with the model's confidence in [0, 1].
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps a raw reply to an intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}
