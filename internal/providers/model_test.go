package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Maria Souza", "Dr(a). Maria Souza"},
		{"Dr. João Lima", "Dr. João Lima"},
		{"Dra. Ana Paula", "Dra. Ana Paula"},
		{"dra Ana", "dra Ana"},
		{"", "Provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{Name: tt.name}
			assert.Equal(t, tt.want, p.DisplayName())
		})
	}
}

func TestWeekScheduleDay(t *testing.T) {
	sched := WeekSchedule{
		"monday": {Active: true, Open: []TimeRange{{Start: "08:00", End: "18:00"}}},
	}

	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) // a Monday
	tuesday := monday.AddDate(0, 0, 1)

	assert.True(t, sched.Day(monday).Active)
	assert.False(t, sched.Day(tuesday).Active)
	assert.False(t, WeekSchedule(nil).Day(monday).Active)
}

func TestResolvePaymentTerm(t *testing.T) {
	p := &Provider{
		SelfPayPriceCents: 15000,
		Plans: []InsurancePlan{
			{Name: "Unimed Nacional", PriceCents: 9000},
			{Name: "Bradesco Saúde", PriceCents: 8500},
		},
	}

	t.Run("self pay by default", func(t *testing.T) {
		term := p.ResolvePaymentTerm("")
		assert.Equal(t, PaymentSelfPay, term.Kind)
		assert.Equal(t, int64(15000), term.PriceCents)
	})

	t.Run("particular is self pay", func(t *testing.T) {
		assert.Equal(t, PaymentSelfPay, p.ResolvePaymentTerm("Particular").Kind)
	})

	t.Run("named plan matches loosely", func(t *testing.T) {
		term := p.ResolvePaymentTerm("unimed")
		assert.Equal(t, PaymentInsurance, term.Kind)
		assert.Equal(t, "Unimed Nacional", term.PlanName)
		assert.Equal(t, int64(9000), term.PriceCents)
	})

	t.Run("unknown plan falls back to generic bucket", func(t *testing.T) {
		term := p.ResolvePaymentTerm("Amil")
		assert.Equal(t, PaymentInsuranceGeneric, term.Kind)
		assert.Equal(t, "Amil", term.PlanName)
		assert.Zero(t, term.PriceCents)
	})
}
