// Package reminders owns the appointment reminder lifecycle: idempotent
// creation, the due-window dispatch loop, and resolution of patient replies.
package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies how far before the appointment a reminder fires.
type Kind string

const (
	Kind24h Kind = "24h"
	Kind2h  Kind = "2h"
	Kind1h  Kind = "1h"
)

var kindOffsets = map[Kind]time.Duration{
	Kind24h: 24 * time.Hour,
	Kind2h:  2 * time.Hour,
	Kind1h:  time.Hour,
}

// Offset returns how long before the appointment start this kind is due.
func (k Kind) Offset() (time.Duration, bool) {
	d, ok := kindOffsets[k]
	return d, ok
}

// DefaultKinds seeds every new booking: exactly one 24h reminder. The other
// kinds appear later, either created by the dispatch pass that owns them or
// by staff on demand.
func DefaultKinds() []Kind {
	return []Kind{Kind24h}
}

// DispatchKinds is every kind the dispatch loop scans for.
func DispatchKinds() []Kind {
	return []Kind{Kind24h, Kind2h, Kind1h}
}

// autoCreated reports whether the dispatch pass may create the row itself
// when it finds a due appointment without one. The 1h kind is staff-created
// only: it has no approved WhatsApp template.
func (k Kind) autoCreated() bool {
	return k == Kind24h || k == Kind2h
}

// Status tracks a reminder through its lifecycle. pending rows are picked up
// by the dispatch loop; sent rows await a patient reply; the three reply
// statuses are terminal. error means the last attempt failed and the row is
// re-claimed while due, until the attempt cap retires it.
type Status string

const (
	StatusPending             Status = "pending"
	StatusSent                Status = "sent"
	StatusConfirmed           Status = "confirmed"
	StatusRescheduleRequested Status = "reschedule_requested"
	StatusCancelRequested     Status = "cancel_requested"
	StatusError               Status = "error"
)

// Reminder is one outbound notification for one appointment. The pair
// (appointment, kind) is unique, which is what makes creation idempotent.
type Reminder struct {
	ID            uuid.UUID  `json:"id"`
	OrgID         string     `json:"org_id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Kind          Kind       `json:"kind"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	MessageID     string     `json:"message_id,omitempty"`
	TemplateName  string     `json:"template_name,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	RepliedAt     *time.Time `json:"replied_at,omitempty"`
	ReplyIntent   string     `json:"reply_intent,omitempty"`
	ReplyText     string     `json:"reply_text,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PassStats summarizes one dispatch pass.
type PassStats struct {
	Scanned int
	Sent    int
	Skipped int
	Failed  int
}

// Stats aggregates reminder counts per status for reporting.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}
