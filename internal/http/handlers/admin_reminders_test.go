package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/reminders"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

type stubAppointmentGetter struct {
	appt *scheduling.Appointment
	err  error
}

func (s stubAppointmentGetter) GetByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	return s.appt, s.err
}

func newAdminHandler(t *testing.T, getter stubAppointmentGetter) (*AdminRemindersHandler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store := reminders.NewStore(mock)
	lifecycle := reminders.NewLifecycle(store, getter, logging.NewWithWriter("error", io.Discard))
	clk := clock.Fixed{At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewAdminRemindersHandler(store, lifecycle, clk, logging.NewWithWriter("error", io.Discard)), mock
}

func TestAdminReminderStats(t *testing.T) {
	h, mock := newAdminHandler(t, stubAppointmentGetter{})

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("org-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("sent", 7).
			AddRow("confirmed", 4))

	req := httptest.NewRequest(http.MethodGet, "/admin/reminders/stats?org_id=org-1&from=2026-02-01&to=2026-02-28", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reminderStatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "org-1", resp.OrgID)
	assert.Equal(t, 11, resp.Stats.Total)
	assert.Equal(t, 7, resp.Stats.ByStatus[reminders.StatusSent])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminReminderStatsRequiresOrg(t *testing.T) {
	h, _ := newAdminHandler(t, stubAppointmentGetter{})

	req := httptest.NewRequest(http.MethodGet, "/admin/reminders/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCreateOnDemandReminder(t *testing.T) {
	appt := &scheduling.Appointment{
		ID:     uuid.New(),
		OrgID:  "org-1",
		Status: scheduling.StatusScheduled,
	}
	h, mock := newAdminHandler(t, stubAppointmentGetter{appt: appt})

	mock.ExpectExec("INSERT INTO reminders").
		WithArgs(pgxmock.AnyArg(), "org-1", appt.ID, "1h", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	body := `{"appointment_id": "` + appt.ID.String() + `", "kind": "1h"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/reminders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCreateRejectsUnknownKind(t *testing.T) {
	h, _ := newAdminHandler(t, stubAppointmentGetter{})

	body := `{"appointment_id": "` + uuid.NewString() + `", "kind": "5m"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/reminders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
