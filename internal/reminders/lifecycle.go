package reminders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// AppointmentGetter loads one appointment.
type AppointmentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

// Lifecycle creates reminder rows for appointments. Creation is idempotent
// per (appointment, kind).
type Lifecycle struct {
	store  *Store
	appts  AppointmentGetter
	logger *logging.Logger
}

// NewLifecycle creates a reminder lifecycle manager.
func NewLifecycle(store *Store, appts AppointmentGetter, logger *logging.Logger) *Lifecycle {
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{store: store, appts: appts, logger: logger}
}

// CreateForAppointment ensures reminder rows of the given kinds exist for
// the appointment, defaulting to DefaultKinds when none are named. Calling
// it again for the same appointment is a no-op.
func (l *Lifecycle) CreateForAppointment(ctx context.Context, appt *scheduling.Appointment, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = DefaultKinds()
	}
	for _, kind := range kinds {
		if _, ok := kind.Offset(); !ok {
			return fmt.Errorf("reminders: unknown kind %q", kind)
		}
		if err := l.store.EnsureExists(ctx, l.store.DB(), appt.OrgID, appt.ID, kind); err != nil {
			return err
		}
	}
	l.logger.Info("reminders ensured", "appointment_id", appt.ID, "kinds", len(kinds))
	return nil
}

// CreateDefault loads the appointment and ensures its default reminders.
// It satisfies the booking manager's reminder hook.
func (l *Lifecycle) CreateDefault(ctx context.Context, appointmentID uuid.UUID) error {
	appt, err := l.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("reminders: load appointment: %w", err)
	}
	return l.CreateForAppointment(ctx, appt)
}

// CreateOnDemand creates one reminder of an explicit kind, for staff-driven
// extras like the 1h nudge.
func (l *Lifecycle) CreateOnDemand(ctx context.Context, appointmentID uuid.UUID, kind Kind) error {
	if _, ok := kind.Offset(); !ok {
		return fmt.Errorf("reminders: unknown kind %q", kind)
	}
	appt, err := l.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("reminders: load appointment: %w", err)
	}
	if !appt.Status.Active() {
		return fmt.Errorf("reminders: appointment %s is not active", appointmentID)
	}
	return l.store.EnsureExists(ctx, l.store.DB(), appt.OrgID, appt.ID, kind)
}
