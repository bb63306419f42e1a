package reminders

import (
	"fmt"
	"time"

	"github.com/prosaude/scheduling-platform/internal/messaging"
	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/providers"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
)

// NoTemplateError marks a reminder kind with no approved WhatsApp template.
// Dispatch records it as a failure rather than sending anything improvised:
// Meta rejects non-template messages outside an open conversation window.
type NoTemplateError struct {
	Kind Kind
}

func (e *NoTemplateError) Error() string {
	return fmt.Sprintf("no approved template for %s reminders", e.Kind)
}

// TemplateSet maps reminder kinds to the org's approved template names.
type TemplateSet struct {
	Name24h  string
	Name2h   string
	Language string
}

// Build assembles the outbound template message for one reminder. The body
// params follow the approved template's placeholder order; FallbackBody
// carries the same content rendered as plain text for providers without a
// template catalog.
func (t TemplateSet) Build(kind Kind, patient *patients.Patient, provider *providers.Provider, appt *scheduling.Appointment, loc *time.Location) (messaging.OutboundTemplate, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := appt.StartAt.In(loc)
	name := patient.FirstName()
	doctor := provider.DisplayName()
	date := start.Format("02/01/2006")
	hour := start.Format("15:04")

	msg := messaging.OutboundTemplate{
		OrgID:    appt.OrgID,
		To:       patient.Phone,
		Language: t.Language,
	}

	switch kind {
	case Kind24h:
		msg.Template = t.Name24h
		msg.Params = []string{name, doctor, date, hour}
		msg.FallbackBody = fmt.Sprintf(
			"Olá, %s! Lembrete da sua consulta com %s no dia %s às %s. Responda SIM para confirmar, REMARCAR para escolher outro horário ou CANCELAR para desmarcar.",
			name, doctor, date, hour,
		)
	case Kind2h:
		msg.Template = t.Name2h
		msg.Params = []string{name, doctor, hour}
		msg.FallbackBody = fmt.Sprintf(
			"Olá, %s! Sua consulta com %s é hoje às %s. Até logo!",
			name, doctor, hour,
		)
	default:
		return messaging.OutboundTemplate{}, &NoTemplateError{Kind: kind}
	}

	if msg.Template == "" {
		return messaging.OutboundTemplate{}, &NoTemplateError{Kind: kind}
	}
	return msg, nil
}
