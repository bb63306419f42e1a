package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prosaude/scheduling-platform/internal/providers"
)

// Queryer is the subset of pgx implemented by pools, connections, and
// transactions alike. Store methods take it explicitly so the booking path
// can run its re-check inside the same transaction that holds the provider
// lock.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Queryer that can open transactions.
type DB interface {
	Queryer
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for transaction control.
func (s *Store) DB() DB { return s.db }

const appointmentColumns = `id, org_id, patient_id, provider_id, start_at, duration_min, status,
		payment_kind, payment_plan, price_cents, reason, notes, created_at, updated_at`

// Insert persists a new appointment using the given queryer.
func (s *Store) Insert(ctx context.Context, q Queryer, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusScheduled
	}

	_, err := q.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.OrgID, a.PatientID, a.ProviderID, a.StartAt, int(a.Duration.Minutes()),
		string(a.Status), string(a.Payment.Kind), a.Payment.PlanName, a.Payment.PriceCents,
		a.Reason, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return nil
}

// GetByID loads one appointment.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("scheduling: get appointment: %w", err)
	}
	defer rows.Close()
	appts, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &appts[0], nil
}

// CountConflicts counts appointments of the provider whose half-open interval
// intersects [start, start+d) and whose status still holds the slot.
// excludeID lets a reschedule ignore its own current interval.
func (s *Store) CountConflicts(ctx context.Context, q Queryer, providerID uuid.UUID, start time.Time, d time.Duration, excludeID uuid.UUID) (int, error) {
	end := start.Add(d)
	row := q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE provider_id = $1
		  AND status NOT IN ('cancelled', 'no_show', 'superseded')
		  AND start_at < $2
		  AND start_at + duration_min * interval '1 minute' > $3
		  AND id <> $4`,
		providerID, end, start, excludeID)

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("scheduling: count conflicts: %w", err)
	}
	return n, nil
}

// ListFutureActive returns the patient's future {scheduled, confirmed}
// appointments with the provider, the candidates for superseding.
func (s *Store) ListFutureActive(ctx context.Context, q Queryer, patientID, providerID uuid.UUID, after time.Time) ([]Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1 AND provider_id = $2
		  AND status = ANY($3)
		  AND start_at > $4
		ORDER BY start_at`,
		patientID, providerID, activeStatuses, after)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list future active: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// MarkSuperseded flips an active appointment to superseded, annotating it
// with the replacement booking.
func (s *Store) MarkSuperseded(ctx context.Context, q Queryer, id, replacedBy uuid.UUID) error {
	tag, err := q.Exec(ctx, `
		UPDATE appointments
		SET status = 'superseded',
		    notes = trim(both ' | ' from notes || ' | replaced by ' || $1::text),
		    updated_at = $2
		WHERE id = $3 AND status = ANY($4)`,
		replacedBy, time.Now().UTC(), id, activeStatuses)
	if err != nil {
		return fmt.Errorf("scheduling: mark superseded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheduling: mark superseded: appointment %s not active", id)
	}
	return nil
}

// UpdateStatus transitions an appointment between statuses, guarding the
// current value.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) error {
	current := make([]string, len(from))
	for i, st := range from {
		current[i] = string(st)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)`,
		string(to), time.Now().UTC(), id, current)
	if err != nil {
		return fmt.Errorf("scheduling: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// Reschedule moves an appointment to a new start inside the caller's
// transaction, returning it to scheduled.
func (s *Store) Reschedule(ctx context.Context, q Queryer, id uuid.UUID, newStart time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE appointments SET start_at = $1, status = 'scheduled', updated_at = $2
		WHERE id = $3 AND status = ANY($4)`,
		newStart, time.Now().UTC(), id, activeStatuses)
	if err != nil {
		return fmt.Errorf("scheduling: reschedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// ListStartingBetween returns active appointments whose start falls inside
// [from, to], the dispatch loop's due-window selection.
func (s *Store) ListStartingBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE start_at >= $1 AND start_at <= $2
		  AND status = ANY($3)
		ORDER BY start_at`,
		from, to, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list starting between: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// AcquireProviderLock takes the per-provider advisory lock for the lifetime
// of the transaction. It serializes check-then-insert across concurrent
// bookings for the same provider; the lock releases on commit or rollback.
func (s *Store) AcquireProviderLock(ctx context.Context, q Queryer, providerID uuid.UUID) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, providerID); err != nil {
		return fmt.Errorf("scheduling: acquire provider lock: %w", err)
	}
	return nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		var a Appointment
		var durationMin int
		var status, paymentKind string
		err := rows.Scan(
			&a.ID, &a.OrgID, &a.PatientID, &a.ProviderID, &a.StartAt, &durationMin,
			&status, &paymentKind, &a.Payment.PlanName, &a.Payment.PriceCents,
			&a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		a.Duration = time.Duration(durationMin) * time.Minute
		a.Status = Status(status)
		a.Payment.Kind = providers.PaymentKind(paymentKind)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate appointments: %w", err)
	}
	return result, nil
}
