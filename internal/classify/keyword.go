package classify

import (
	"context"
	"strings"
)

// KeywordClassifier is the deterministic fallback used when the model is
// unreachable or disabled. It only claims high confidence on unambiguous
// single-purpose replies.
type KeywordClassifier struct{}

var keywordIntents = []struct {
	intent Intent
	words  []string
}{
	{IntentReschedule, []string{"remarcar", "reagendar", "mudar", "trocar", "outro horario", "outro dia", "adiar"}},
	{IntentCancel, []string{"cancelar", "cancela", "desmarcar", "nao vou", "não vou", "nao poderei", "não poderei"}},
	{IntentConfirm, []string{"sim", "confirmo", "confirmado", "confirmar", "ok", "estarei", "pode confirmar", "claro", "vou sim"}},
}

// Classify matches normalized reply text against intent keyword lists.
// Reschedule and cancel are checked before confirm so that "não vou, pode
// cancelar" does not hit the bare "sim"-style confirmations.
func (KeywordClassifier) Classify(ctx context.Context, text string) (Result, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Result{Intent: IntentQuestion}, nil
	}

	for _, group := range keywordIntents {
		for _, w := range group.words {
			if normalized == w || strings.Contains(normalized, w) {
				return Result{Intent: group.intent, Confidence: 0.9}, nil
			}
		}
	}
	return Result{Intent: IntentQuestion, Confidence: 0.3}, nil
}
