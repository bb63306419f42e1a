package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosaude/scheduling-platform/internal/providers"
)

// Status tracks the lifecycle of an appointment. Rows are never deleted;
// every transition is status-only so revenue reporting can tell a superseded
// booking (revenue kept) from a cancelled one (revenue lost).
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
	StatusNoShow     Status = "no_show"
	StatusSuperseded Status = "superseded"
)

// Active reports whether the appointment still occupies its slot and is
// eligible for reminders.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// activeStatuses is the set used in SQL IN clauses for slot-holding rows.
var activeStatuses = []string{string(StatusScheduled), string(StatusConfirmed)}

// Appointment is a scheduled encounter between a patient and a provider.
// StartAt is civil time in the clinic's timezone.
type Appointment struct {
	ID         uuid.UUID             `json:"id"`
	OrgID      string                `json:"org_id"`
	PatientID  uuid.UUID             `json:"patient_id"`
	ProviderID uuid.UUID             `json:"provider_id"`
	StartAt    time.Time             `json:"start_at"`
	Duration   time.Duration         `json:"duration"`
	Status     Status                `json:"status"`
	Payment    providers.PaymentTerm `json:"payment"`
	Reason     string                `json:"reason,omitempty"`
	Notes      string                `json:"notes,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// EndAt returns the exclusive end of the appointment's interval.
func (a *Appointment) EndAt() time.Time {
	return a.StartAt.Add(a.Duration)
}

// Overlaps reports whether [start, start+d) intersects this appointment's
// interval. Both intervals are half-open, so back-to-back slots do not
// overlap.
func (a *Appointment) Overlaps(start time.Time, d time.Duration) bool {
	end := start.Add(d)
	return start.Before(a.EndAt()) && a.StartAt.Before(end)
}
