package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterReplyRequiresSentStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE reminders").
		WithArgs("confirmed", "confirm", "sim", pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	err = store.RegisterReply(context.Background(), id, "confirm", "sim", StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, ErrNotAwaitingReply)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSentRequiresClaimableStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE reminders").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	err = store.MarkSent(context.Background(), mock, id, "wamid.x", "lembrete_24h", time.Now())
	assert.ErrorContains(t, err, "not awaiting send")
}

func TestMarkSentRecordsTemplateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("template_name").
		WithArgs("wamid.x", "lembrete_24h", at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	require.NoError(t, store.MarkSent(context.Background(), mock, id, "wamid.x", "lembrete_24h", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailureFlipsStatusToError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("status = 'error'").
		WithArgs("timeout", pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	require.NoError(t, store.MarkFailure(context.Background(), mock, id, "timeout"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimPendingReclaimsErrorRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	appointmentID := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`status = 'error' AND \(\$3 <= 0 OR attempts < \$3\)`).
		WithArgs(appointmentID, "24h", 3).
		WillReturnRows(pgxmock.NewRows(reminderTestColumns()).
			AddRow(id, "org-1", appointmentID, "24h", "error", 2, "timeout", "", "", nil, nil, "", "", now, now))

	store := NewStore(mock)
	reminder, err := store.ClaimPending(context.Background(), mock, appointmentID, Kind24h, 3)
	require.NoError(t, err)
	require.NotNil(t, reminder)
	assert.Equal(t, StatusError, reminder.Status)
	assert.Equal(t, 2, reminder.Attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery("GROUP BY status").
		WithArgs("org-1", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("sent", 12).
			AddRow("confirmed", 8).
			AddRow("error", 1))

	store := NewStore(mock)
	stats, err := store.CountByStatus(context.Background(), "org-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 21, stats.Total)
	assert.Equal(t, 8, stats.ByStatus[StatusConfirmed])
	require.NoError(t, mock.ExpectationsWereMet())
}
