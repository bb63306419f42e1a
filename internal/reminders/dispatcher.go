package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/events"
	"github.com/prosaude/scheduling-platform/internal/messaging"
	"github.com/prosaude/scheduling-platform/internal/observability/metrics"
	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/providers"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

var dispatchTracer = otel.Tracer("clinic.internal.reminders")

// AppointmentSource lists the appointments a dispatch pass must consider.
type AppointmentSource interface {
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]scheduling.Appointment, error)
}

// PatientDirectory loads the patient behind an appointment.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// ProviderDirectory loads the provider behind an appointment.
type ProviderDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*providers.Provider, error)
}

// Dispatcher runs the reminder send loop. Each pass scans the due window for
// every kind, claims pending rows one by one, and commits each outcome in its
// own transaction so one failure never rolls back a sent neighbor.
type Dispatcher struct {
	store       *Store
	appts       AppointmentSource
	patients    PatientDirectory
	providers   ProviderDirectory
	messenger   messaging.Messenger
	templates   TemplateSet
	publisher   events.Publisher
	clk         clock.Clock
	logger      *logging.Logger
	metrics     *metrics.DispatchMetrics
	tolerance   time.Duration
	maxAttempts int
}

// DispatcherConfig wires a Dispatcher's collaborators.
type DispatcherConfig struct {
	Store     *Store
	Appts     AppointmentSource
	Patients  PatientDirectory
	Providers ProviderDirectory
	Messenger messaging.Messenger
	Templates TemplateSet
	Publisher events.Publisher
	Clock     clock.Clock
	Logger    *logging.Logger
	Metrics   *metrics.DispatchMetrics
	// Tolerance widens the due window on both sides so a late pass still
	// catches its reminders. Zero means 10 minutes.
	Tolerance time.Duration
	// MaxAttempts stops re-claiming a failed reminder after this many
	// attempts; <= 0 retries while the appointment is still due.
	MaxAttempts int
}

// NewDispatcher creates a dispatch loop worker. A nil Messenger is allowed:
// each pass then records a send failure per due reminder instead of taking
// down a deployment that has no messaging credentials yet.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Store == nil || cfg.Appts == nil || cfg.Patients == nil || cfg.Providers == nil {
		panic("reminders: store, appts, patients, and providers are required")
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
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 10 * time.Minute
	}
	return &Dispatcher{
		store:       cfg.Store,
		appts:       cfg.Appts,
		patients:    cfg.Patients,
		providers:   cfg.Providers,
		messenger:   cfg.Messenger,
		templates:   cfg.Templates,
		publisher:   cfg.Publisher,
		clk:         cfg.Clock,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		tolerance:   cfg.Tolerance,
		maxAttempts: cfg.MaxAttempts,
	}
}

// ProcessDue runs one dispatch pass over every kind's due window. Passes may
// overlap freely: the claim is non-blocking, so a reminder locked by another
// pass counts as skipped here and sent there.
func (d *Dispatcher) ProcessDue(ctx context.Context) (PassStats, error) {
	ctx, span := dispatchTracer.Start(ctx, "reminders.process_due")
	defer span.End()

	started := time.Now()
	now := d.clk.Now()
	var stats PassStats

	for _, kind := range DispatchKinds() {
		offset, _ := kind.Offset()
		from := now.Add(offset - d.tolerance)
		to := now.Add(offset + d.tolerance)

		due, err := d.appts.ListStartingBetween(ctx, from, to)
		if err != nil {
			span.RecordError(err)
			return stats, fmt.Errorf("reminders: list due for %s: %w", kind, err)
		}

		for i := range due {
			appt := &due[i]
			stats.Scanned++

			if kind.autoCreated() {
				if err := d.store.EnsureExists(ctx, d.store.DB(), appt.OrgID, appt.ID, kind); err != nil {
					d.logger.Error("dispatch: ensure reminder failed", "appointment_id", appt.ID, "kind", kind, "error", err)
					stats.Failed++
					d.metrics.ObserveProcessed(string(kind), "failed")
					continue
				}
			}

			switch d.processOne(ctx, appt, kind, now) {
			case outcomeSent:
				stats.Sent++
				d.metrics.ObserveProcessed(string(kind), "sent")
			case outcomeSkipped:
				stats.Skipped++
				d.metrics.ObserveProcessed(string(kind), "skipped")
			case outcomeFailed:
				stats.Failed++
				d.metrics.ObserveProcessed(string(kind), "failed")
			}
		}
	}

	span.SetAttributes(
		attribute.Int("clinic.reminders_sent", stats.Sent),
		attribute.Int("clinic.reminders_failed", stats.Failed),
	)
	d.metrics.ObservePassDuration(time.Since(started).Seconds())
	if stats.Scanned > 0 {
		d.logger.Info("dispatch pass finished",
			"scanned", stats.Scanned, "sent", stats.Sent, "skipped", stats.Skipped, "failed", stats.Failed)
	}
	return stats, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processOne claims, sends, and commits a single reminder in its own
// transaction.
func (d *Dispatcher) processOne(ctx context.Context, appt *scheduling.Appointment, kind Kind, now time.Time) outcome {
	tx, err := d.store.DB().Begin(ctx)
	if err != nil {
		d.logger.Error("dispatch: begin tx failed", "appointment_id", appt.ID, "error", err)
		return outcomeFailed
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reminder, err := d.store.ClaimPending(ctx, tx, appt.ID, kind, d.maxAttempts)
	if err != nil {
		d.logger.Error("dispatch: claim failed", "appointment_id", appt.ID, "kind", kind, "error", err)
		return outcomeFailed
	}
	if reminder == nil {
		// Already sent, in a reply state, or locked by a concurrent pass.
		return outcomeSkipped
	}

	msg, buildErr := d.buildMessage(ctx, appt, kind)
	if buildErr != nil {
		return d.recordFailure(ctx, tx, reminder, buildErr)
	}
	if d.messenger == nil {
		return d.recordFailure(ctx, tx, reminder, fmt.Errorf("no messaging provider configured"))
	}

	result, sendErr := d.messenger.SendTemplate(ctx, msg)
	if sendErr != nil {
		return d.recordFailure(ctx, tx, reminder, sendErr)
	}

	if err := d.store.MarkSent(ctx, tx, reminder.ID, result.MessageID, msg.Template, now); err != nil {
		d.logger.Error("dispatch: mark sent failed", "reminder_id", reminder.ID, "error", err)
		return outcomeFailed
	}
	if err := tx.Commit(ctx); err != nil {
		d.logger.Error("dispatch: commit failed", "reminder_id", reminder.ID, "error", err)
		return outcomeFailed
	}

	d.publisher.Publish(ctx, appt.OrgID, events.TypeReminderSent, events.ReminderSentV1{
		EventID:       uuid.NewString(),
		OrgID:         appt.OrgID,
		ReminderID:    reminder.ID.String(),
		AppointmentID: appt.ID.String(),
		Kind:          string(kind),
		SentAt:        now,
		MessageID:     result.MessageID,
	})
	d.logger.Info("reminder sent",
		"reminder_id", reminder.ID, "appointment_id", appt.ID, "kind", kind, "message_id", result.MessageID)
	return outcomeSent
}

func (d *Dispatcher) buildMessage(ctx context.Context, appt *scheduling.Appointment, kind Kind) (messaging.OutboundTemplate, error) {
	patient, err := d.patients.GetByID(ctx, appt.PatientID)
	if err != nil {
		return messaging.OutboundTemplate{}, fmt.Errorf("load patient: %w", err)
	}
	provider, err := d.providers.GetByID(ctx, appt.ProviderID)
	if err != nil {
		return messaging.OutboundTemplate{}, fmt.Errorf("load provider: %w", err)
	}
	return d.templates.Build(kind, patient, provider, appt, d.clk.Location())
}

// recordFailure commits the attempt bump so the failure count survives the
// pass even though nothing was sent.
func (d *Dispatcher) recordFailure(ctx context.Context, tx pgx.Tx, reminder *Reminder, cause error) outcome {
	d.logger.Warn("dispatch: send failed",
		"reminder_id", reminder.ID, "kind", reminder.Kind, "attempt", reminder.Attempts+1, "error", cause)
	if err := d.store.MarkFailure(ctx, tx, reminder.ID, cause.Error()); err != nil {
		d.logger.Error("dispatch: mark failure failed", "reminder_id", reminder.ID, "error", err)
		return outcomeFailed
	}
	if err := tx.Commit(ctx); err != nil {
		d.logger.Error("dispatch: commit failure failed", "reminder_id", reminder.ID, "error", err)
	}
	return outcomeFailed
}
