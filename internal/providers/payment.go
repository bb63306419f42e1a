package providers

import "strings"

// PaymentKind distinguishes how an appointment is paid for.
type PaymentKind string

const (
	PaymentSelfPay          PaymentKind = "self_pay"
	PaymentInsurance        PaymentKind = "insurance"
	PaymentInsuranceGeneric PaymentKind = "insurance_generic"
)

// PaymentTerm is the resolved billing arrangement for one appointment.
type PaymentTerm struct {
	Kind       PaymentKind
	PlanName   string
	PriceCents int64
}

// ResolvePaymentTerm maps a caller-supplied insurance name onto the
// provider's plan list. Empty or "particular" means self-pay at the
// provider's fixed price. An unknown plan name lands in the generic
// insurance bucket so the appointment still books; the caller is expected
// to log that fallback.
func (p *Provider) ResolvePaymentTerm(insurance string) PaymentTerm {
	insurance = strings.TrimSpace(insurance)
	if insurance == "" || strings.EqualFold(insurance, "particular") {
		return PaymentTerm{Kind: PaymentSelfPay, PriceCents: p.SelfPayPriceCents}
	}

	needle := strings.ToLower(insurance)
	for _, plan := range p.Plans {
		name := strings.ToLower(strings.TrimSpace(plan.Name))
		if name == needle || strings.Contains(name, needle) || strings.Contains(needle, name) {
			return PaymentTerm{Kind: PaymentInsurance, PlanName: plan.Name, PriceCents: plan.PriceCents}
		}
	}
	return PaymentTerm{Kind: PaymentInsuranceGeneric, PlanName: insurance}
}
