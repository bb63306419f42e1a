package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/providers"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
)

func TestTemplateSetBuild(t *testing.T) {
	set := TemplateSet{Name24h: "lembrete_24h", Name2h: "lembrete_2h", Language: "pt_BR"}
	patient := &patients.Patient{Name: "Maria da Silva", Phone: "+5511987654321"}
	provider := &providers.Provider{Name: "Ana Souza"}
	appt := &scheduling.Appointment{
		OrgID:   "org-1",
		StartAt: time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
	}
	sp := time.FixedZone("-03", -3*60*60)

	msg, err := set.Build(Kind24h, patient, provider, appt, sp)
	require.NoError(t, err)
	assert.Equal(t, "lembrete_24h", msg.Template)
	assert.Equal(t, "pt_BR", msg.Language)
	assert.Equal(t, "+5511987654321", msg.To)
	assert.Equal(t, []string{"Maria", "Dr(a). Ana Souza", "02/03/2026", "10:00"}, msg.Params)
	assert.Contains(t, msg.FallbackBody, "às 10:00")

	msg, err = set.Build(Kind2h, patient, provider, appt, sp)
	require.NoError(t, err)
	assert.Equal(t, "lembrete_2h", msg.Template)
	assert.Equal(t, []string{"Maria", "Dr(a). Ana Souza", "10:00"}, msg.Params)
}

func TestTemplateSetBuildNoTemplate(t *testing.T) {
	set := TemplateSet{Name24h: "lembrete_24h", Name2h: "lembrete_2h"}
	patient := &patients.Patient{Name: "Maria"}
	provider := &providers.Provider{Name: "Ana"}
	appt := &scheduling.Appointment{StartAt: time.Now()}

	_, err := set.Build(Kind1h, patient, provider, appt, time.UTC)
	var noTemplate *NoTemplateError
	require.ErrorAs(t, err, &noTemplate)
	assert.Equal(t, Kind1h, noTemplate.Kind)

	// An org without an approved 2h template fails the same typed way.
	_, err = TemplateSet{Name24h: "lembrete_24h"}.Build(Kind2h, patient, provider, appt, time.UTC)
	require.ErrorAs(t, err, &noTemplate)
}
