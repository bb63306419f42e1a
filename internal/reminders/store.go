package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotAwaitingReply is returned when a reply targets a reminder that is no
// longer in the sent state.
var ErrNotAwaitingReply = errors.New("reminder is not awaiting a reply")

// Queryer is the subset of pgx implemented by pools and transactions alike.
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

// Store provides persistence for reminders.
type Store struct {
	db DB
}

// NewStore creates a reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for transaction control.
func (s *Store) DB() DB { return s.db }

const reminderColumns = `id, org_id, appointment_id, kind, status, attempts, last_error,
		message_id, template_name, sent_at, replied_at, reply_intent, reply_text, created_at, updated_at`

// EnsureExists creates the pending reminder row if it is not there yet. The
// unique (appointment_id, kind) index makes this safe to call from the
// booking path and every dispatch pass alike.
func (s *Store) EnsureExists(ctx context.Context, q Queryer, orgID string, appointmentID uuid.UUID, kind Kind) error {
	now := time.Now().UTC()
	_, err := q.Exec(ctx, `
		INSERT INTO reminders (id, org_id, appointment_id, kind, status, attempts, last_error,
			message_id, template_name, reply_intent, reply_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, '', '', '', '', '', $5, $5)
		ON CONFLICT (appointment_id, kind) DO NOTHING`,
		uuid.New(), orgID, appointmentID, string(kind), now)
	if err != nil {
		return fmt.Errorf("reminders: ensure exists: %w", err)
	}
	return nil
}

// ClaimPending locks the sendable reminder for the appointment and kind, or
// returns nil when the row is absent, already past sending, or locked by a
// concurrent pass. SKIP LOCKED makes the claim non-blocking, which is what
// guarantees at most one dispatch under overlapping passes. Rows whose last
// attempt failed stay claimable while due until maxAttempts is reached;
// maxAttempts <= 0 retries without a cap.
func (s *Store) ClaimPending(ctx context.Context, q Queryer, appointmentID uuid.UUID, kind Kind, maxAttempts int) (*Reminder, error) {
	rows, err := q.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE appointment_id = $1 AND kind = $2
			AND (status = 'pending' OR (status = 'error' AND ($3 <= 0 OR attempts < $3)))
		FOR UPDATE SKIP LOCKED`,
		appointmentID, string(kind), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("reminders: claim pending: %w", err)
	}
	defer rows.Close()

	claimed, err := scanReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, nil
	}
	return &claimed[0], nil
}

// MarkSent transitions a claimed reminder to sent, recording the provider
// message id and the template that carried it.
func (s *Store) MarkSent(ctx context.Context, q Queryer, id uuid.UUID, messageID, templateName string, at time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE reminders
		SET status = 'sent', attempts = attempts + 1, message_id = $1, template_name = $2,
			sent_at = $3, updated_at = $3
		WHERE id = $4 AND status IN ('pending', 'error')`,
		messageID, templateName, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark sent: reminder %s not awaiting send", id)
	}
	return nil
}

// MarkFailure records a failed attempt: the attempt count goes up and the
// status flips to error immediately. The row stays claimable while the
// appointment is due; the attempt cap in ClaimPending is what finally
// retires it.
func (s *Store) MarkFailure(ctx context.Context, q Queryer, id uuid.UUID, cause string) error {
	_, err := q.Exec(ctx, `
		UPDATE reminders
		SET attempts = attempts + 1, last_error = $1, status = 'error', updated_at = $2
		WHERE id = $3 AND status IN ('pending', 'error')`,
		cause, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: mark failure: %w", err)
	}
	return nil
}

// FindAwaitingReply returns the most recently sent reminder for the patient
// phone within the org, or nil when the patient has nothing awaiting a
// reply. Only active appointments qualify: once the appointment is
// superseded, cancelled, or otherwise closed, its sent reminder no longer
// captures replies.
func (s *Store) FindAwaitingReply(ctx context.Context, orgID, phone string) (*Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.org_id, r.appointment_id, r.kind, r.status, r.attempts, r.last_error,
			r.message_id, r.template_name, r.sent_at, r.replied_at, r.reply_intent, r.reply_text,
			r.created_at, r.updated_at
		FROM reminders r
		JOIN appointments a ON a.id = r.appointment_id
		JOIN patients p ON p.id = a.patient_id
		WHERE r.org_id = $1 AND p.phone = $2 AND r.status = 'sent'
			AND a.status IN ('scheduled', 'confirmed')
		ORDER BY r.sent_at DESC
		LIMIT 1`,
		orgID, phone)
	if err != nil {
		return nil, fmt.Errorf("reminders: find awaiting reply: %w", err)
	}
	defer rows.Close()

	found, err := scanReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// RegisterReply moves a sent reminder into its reply status, recording the
// resolved intent and the patient's raw message. Only sent reminders accept
// replies.
func (s *Store) RegisterReply(ctx context.Context, id uuid.UUID, intent, replyText string, to Status, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders
		SET status = $1, reply_intent = $2, reply_text = $3, replied_at = $4, updated_at = $4
		WHERE id = $5 AND status = 'sent'`,
		string(to), intent, replyText, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: register reply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAwaitingReply
	}
	return nil
}

// CountByStatus aggregates reminder counts per status for the org in the
// given creation window.
func (s *Store) CountByStatus(ctx context.Context, orgID string, from, to time.Time) (Stats, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM reminders
		WHERE org_id = $1 AND created_at >= $2 AND created_at <= $3
		GROUP BY status`,
		orgID, from, to)
	if err != nil {
		return Stats{}, fmt.Errorf("reminders: count by status: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByStatus: map[Status]int{}}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("reminders: scan stats: %w", err)
		}
		stats.ByStatus[Status(status)] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("reminders: iterate stats: %w", err)
	}
	return stats, nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var kind, status string
		err := rows.Scan(
			&r.ID, &r.OrgID, &r.AppointmentID, &kind, &status, &r.Attempts, &r.LastError,
			&r.MessageID, &r.TemplateName, &r.SentAt, &r.RepliedAt, &r.ReplyIntent, &r.ReplyText,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		r.Kind = Kind(kind)
		r.Status = Status(status)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminders: iterate reminders: %w", err)
	}
	return result, nil
}
