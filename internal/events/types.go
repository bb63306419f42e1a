package events

import "time"

// Event types published by the scheduling core.
const (
	TypeAppointmentBooked     = "appointment_booked"
	TypeAppointmentSuperseded = "appointment_superseded"
	TypeReminderSent          = "reminder_sent"
)

// AppointmentBookedV1 announces a newly created appointment.
type AppointmentBookedV1 struct {
	EventID       string    `json:"event_id"`
	OrgID         string    `json:"org_id"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	ProviderID    string    `json:"provider_id"`
	StartAt       time.Time `json:"start_at"`
	BookedAt      time.Time `json:"booked_at"`
	Rebooking     bool      `json:"rebooking"`
}

// AppointmentSupersededV1 announces that a prior appointment was replaced by
// a newer booking. Distinct from cancellation: the revenue moved, it was not
// lost.
type AppointmentSupersededV1 struct {
	EventID          string    `json:"event_id"`
	OrgID            string    `json:"org_id"`
	AppointmentID    string    `json:"appointment_id"`
	ReplacedByID     string    `json:"replaced_by_id"`
	SupersededAt     time.Time `json:"superseded_at"`
	OriginalStartAt  time.Time `json:"original_start_at"`
}

// ReminderSentV1 announces a dispatched reminder.
type ReminderSentV1 struct {
	EventID       string    `json:"event_id"`
	OrgID         string    `json:"org_id"`
	ReminderID    string    `json:"reminder_id"`
	AppointmentID string    `json:"appointment_id"`
	Kind          string    `json:"kind"`
	SentAt        time.Time `json:"sent_at"`
	MessageID     string    `json:"message_id,omitempty"`
}
