package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/events"
	"github.com/prosaude/scheduling-platform/internal/observability/metrics"
	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/providers"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("clinic.internal.scheduling")

// PatientResolver matches or registers the patient behind a booking.
type PatientResolver interface {
	Resolve(ctx context.Context, orgID, phone, name, insurance string) (*patients.Patient, error)
}

// ReminderCreator creates the default reminder for a new appointment.
type ReminderCreator interface {
	CreateDefault(ctx context.Context, appointmentID uuid.UUID) error
}

// BookingRequest carries everything needed to book a slot.
type BookingRequest struct {
	OrgID        string
	ProviderID   uuid.UUID
	PatientName  string
	PatientPhone string
	Insurance    string
	StartAt      time.Time
	Duration     time.Duration
	Reason       string
}

// Conflict is the expected "slot taken" outcome. It is a result, not an
// error: the caller presents the alternatives to the patient.
type Conflict struct {
	RequestedAt  time.Time `json:"requested_at"`
	ProviderName string    `json:"provider_name"`
	Alternatives []string  `json:"alternatives,omitempty"`
}

// Booker validates and creates appointments, applying supersede-not-cancel
// semantics for rebookings.
type Booker struct {
	store     *Store
	engine    *Engine
	directory ProviderDirectory
	patients  PatientResolver
	reminders ReminderCreator
	publisher events.Publisher
	clk       clock.Clock
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	altSlots  int
}

// BookerConfig wires a Booker's collaborators.
type BookerConfig struct {
	Store            *Store
	Engine           *Engine
	Directory        ProviderDirectory
	Patients         PatientResolver
	Reminders        ReminderCreator
	Publisher        events.Publisher
	Clock            clock.Clock
	Logger           *logging.Logger
	Metrics          *metrics.BookingMetrics
	AlternativeSlots int
}

// NewBooker constructs a booking manager.
func NewBooker(cfg BookerConfig) *Booker {
	if cfg.Store == nil || cfg.Engine == nil || cfg.Directory == nil {
		panic("scheduling: store, engine, and directory are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClinic("")
	}
	if cfg.AlternativeSlots <= 0 {
		cfg.AlternativeSlots = 3
	}
	return &Booker{
		store:     cfg.Store,
		engine:    cfg.Engine,
		directory: cfg.Directory,
		patients:  cfg.Patients,
		reminders: cfg.Reminders,
		publisher: cfg.Publisher,
		clk:       cfg.Clock,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		altSlots:  cfg.AlternativeSlots,
	}
}

// Book validates the requested slot and creates the appointment plus its
// default reminder. A taken slot returns a *Conflict with same-day
// alternatives; prior future bookings of the same patient with the same
// provider are superseded, never cancelled.
func (b *Booker) Book(ctx context.Context, req BookingRequest) (*Appointment, *Conflict, error) {
	ctx, span := bookingTracer.Start(ctx, "scheduling.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.org_id", req.OrgID),
		attribute.String("clinic.provider_id", req.ProviderID.String()),
	)

	if req.Duration <= 0 {
		return nil, nil, ErrInvalidDuration
	}
	if req.ProviderID == uuid.Nil {
		return nil, nil, ErrMissingProvider
	}

	provider, err := b.directory.GetByID(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, providers.ErrProviderNotFound) {
			return nil, nil, ErrProviderInactive
		}
		return nil, nil, err
	}
	if !provider.Active {
		return nil, nil, ErrProviderInactive
	}

	patient, err := b.patients.Resolve(ctx, req.OrgID, req.PatientPhone, req.PatientName, req.Insurance)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling: resolve patient: %w", err)
	}

	payment := provider.ResolvePaymentTerm(req.Insurance)
	if payment.Kind == providers.PaymentInsuranceGeneric {
		b.logger.Warn("booking: insurance plan not on provider's list, using generic bucket",
			"provider_id", provider.ID, "insurance", req.Insurance)
	}

	appt := &Appointment{
		OrgID:      req.OrgID,
		PatientID:  patient.ID,
		ProviderID: provider.ID,
		StartAt:    req.StartAt,
		Duration:   req.Duration,
		Status:     StatusScheduled,
		Payment:    payment,
		Reason:     req.Reason,
	}

	superseded, conflict, err := b.commitBooking(ctx, provider, patient, appt)
	if err != nil {
		span.RecordError(err)
		b.metrics.ObserveBooking("error")
		return nil, nil, err
	}
	if conflict != nil {
		b.metrics.ObserveBooking("conflict")
		b.metrics.ObserveConflict()
		return nil, conflict, nil
	}
	b.metrics.ObserveBooking("created")
	b.metrics.ObserveSuperseded(len(superseded))

	// The default reminder is created idempotently; if this fails, the
	// dispatch loop creates the row on its first due pass.
	if b.reminders != nil {
		if err := b.reminders.CreateDefault(ctx, appt.ID); err != nil {
			b.logger.Warn("booking: default reminder creation failed", "appointment_id", appt.ID, "error", err)
		}
	}

	now := b.clk.Now()
	b.publisher.Publish(ctx, req.OrgID, events.TypeAppointmentBooked, events.AppointmentBookedV1{
		EventID:       uuid.NewString(),
		OrgID:         req.OrgID,
		AppointmentID: appt.ID.String(),
		PatientID:     patient.ID.String(),
		ProviderID:    provider.ID.String(),
		StartAt:       appt.StartAt,
		BookedAt:      now,
		Rebooking:     len(superseded) > 0,
	})
	for _, old := range superseded {
		b.publisher.Publish(ctx, req.OrgID, events.TypeAppointmentSuperseded, events.AppointmentSupersededV1{
			EventID:         uuid.NewString(),
			OrgID:           req.OrgID,
			AppointmentID:   old.ID.String(),
			ReplacedByID:    appt.ID.String(),
			SupersededAt:    now,
			OriginalStartAt: old.StartAt,
		})
	}

	b.logger.Info("booking created",
		"appointment_id", appt.ID,
		"provider_id", provider.ID,
		"patient_id", patient.ID,
		"start_at", appt.StartAt,
		"superseded", len(superseded),
	)
	return appt, nil, nil
}

// commitBooking runs the race-safe portion: provider lock, availability
// re-check, supersede sweep, and insert, all in one transaction.
func (b *Booker) commitBooking(ctx context.Context, provider *providers.Provider, patient *patients.Patient, appt *Appointment) ([]Appointment, *Conflict, error) {
	tx, err := b.store.DB().Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling: begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.store.AcquireProviderLock(ctx, tx, provider.ID); err != nil {
		return nil, nil, err
	}

	free, err := b.engine.isAvailable(ctx, tx, provider.ID, appt.StartAt, appt.Duration, uuid.Nil)
	if err != nil {
		return nil, nil, err
	}
	if !free {
		_ = tx.Rollback(ctx)
		return nil, b.conflictResult(ctx, provider, appt.StartAt, appt.Duration), nil
	}

	superseded, err := b.store.ListFutureActive(ctx, tx, patient.ID, provider.ID, b.clk.Now())
	if err != nil {
		return nil, nil, err
	}
	for _, old := range superseded {
		if err := b.store.MarkSuperseded(ctx, tx, old.ID, appt.ID); err != nil {
			return nil, nil, err
		}
	}

	if err := b.store.Insert(ctx, tx, appt); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("scheduling: commit booking: %w", err)
	}
	return superseded, nil, nil
}

// conflictResult assembles the typed conflict outcome with best-effort
// same-day alternatives.
func (b *Booker) conflictResult(ctx context.Context, provider *providers.Provider, requested time.Time, d time.Duration) *Conflict {
	conflict := &Conflict{
		RequestedAt:  requested,
		ProviderName: provider.DisplayName(),
	}
	slots, err := b.engine.GenerateSlots(ctx, provider.ID, requested, d)
	if err != nil {
		b.logger.Warn("booking: alternative slots unavailable", "provider_id", provider.ID, "error", err)
		return conflict
	}
	if len(slots) > b.altSlots {
		slots = slots[:b.altSlots]
	}
	conflict.Alternatives = slots
	return conflict
}

// Reschedule moves an existing appointment to a new start, ignoring its own
// current interval during the availability check.
func (b *Booker) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, *Conflict, error) {
	ctx, span := bookingTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id.String()))

	appt, err := b.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !appt.Status.Active() {
		return nil, nil, ErrAppointmentNotFound
	}

	tx, err := b.store.DB().Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling: begin reschedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.store.AcquireProviderLock(ctx, tx, appt.ProviderID); err != nil {
		return nil, nil, err
	}
	free, err := b.engine.isAvailable(ctx, tx, appt.ProviderID, newStart, appt.Duration, appt.ID)
	if err != nil {
		return nil, nil, err
	}
	if !free {
		_ = tx.Rollback(ctx)
		provider, perr := b.directory.GetByID(ctx, appt.ProviderID)
		if perr != nil {
			return nil, &Conflict{RequestedAt: newStart}, nil
		}
		return nil, b.conflictResult(ctx, provider, newStart, appt.Duration), nil
	}
	if err := b.store.Reschedule(ctx, tx, appt.ID, newStart); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("scheduling: commit reschedule: %w", err)
	}

	appt.StartAt = newStart
	appt.Status = StatusScheduled
	b.logger.Info("appointment rescheduled", "appointment_id", appt.ID, "start_at", newStart)
	return appt, nil, nil
}
