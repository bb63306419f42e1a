package patients

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPatientNotFound is returned when a patient lookup misses.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidPhone is returned when a phone cannot be normalized.
	ErrInvalidPhone = errors.New("phone number is invalid")
)

// Patient is a person who books appointments, identified within an org by
// their normalized phone number.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"` // E.164, the matching key
	Insurance string    `json:"insurance,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FirstName returns the patient's first name for message templates.
func (p *Patient) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return "Paciente"
	}
	return fields[0]
}

// NormalizeE164 reduces a phone to +digits form. Patients are matched on the
// full normalized number, never on a digit suffix: suffix matching collides
// across patients sharing the last digits.
func NormalizeE164(value string) (string, error) {
	value = strings.TrimSpace(value)
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return "+" + digits, nil
}
