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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/providers"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

type unknownProviderDir struct{}

func (unknownProviderDir) GetByID(ctx context.Context, id uuid.UUID) (*providers.Provider, error) {
	return nil, providers.ErrProviderNotFound
}

func newSlotsHandler(t *testing.T) *AppointmentsHandler {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store := scheduling.NewStore(mock)
	engine := scheduling.NewEngine(store, unknownProviderDir{}, 0)
	return NewAppointmentsHandler(nil, engine, clock.Fixed{At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		30*time.Minute, logging.NewWithWriter("error", io.Discard))
}

func TestBookRejectsUnparseableStartAt(t *testing.T) {
	h := newSlotsHandler(t)

	body := `{"org_id": "org-1", "provider_id": "` + uuid.NewString() + `", "patient_phone": "+5511987654321", "start_at": "next tuesday-ish"}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid_start_at", resp.Error)
	assert.Contains(t, resp.Message, "02/01/2006 15:04", "the error must name the accepted formats")
}

func TestBookRejectsBadProviderID(t *testing.T) {
	h := newSlotsHandler(t)

	body := `{"org_id": "org-1", "provider_id": "not-a-uuid", "start_at": "02/03/2026 10:00"}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescheduleValidation(t *testing.T) {
	h := newSlotsHandler(t)

	r := chi.NewRouter()
	r.Patch("/appointments/{appointmentID}", h.Reschedule)

	cases := []struct {
		name string
		url  string
		body string
	}{
		{"bad appointment id", "/appointments/nope", `{"start_at": "02/03/2026 10:00"}`},
		{"bad start_at", "/appointments/" + uuid.NewString(), `{"start_at": "whenever"}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPatch, tc.url, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestSlotsUnknownProviderReturnsEmptyList(t *testing.T) {
	h := newSlotsHandler(t)

	r := chi.NewRouter()
	r.Get("/providers/{providerID}/slots", h.Slots)

	req := httptest.NewRequest(http.MethodGet, "/providers/"+uuid.NewString()+"/slots?date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp slotsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "2026-03-02", resp.Date)
	assert.NotNil(t, resp.Slots)
	assert.Empty(t, resp.Slots)
}

func TestSlotsValidation(t *testing.T) {
	h := newSlotsHandler(t)

	r := chi.NewRouter()
	r.Get("/providers/{providerID}/slots", h.Slots)

	cases := []struct {
		name string
		url  string
	}{
		{"bad provider id", "/providers/nope/slots?date=2026-03-02"},
		{"missing date", "/providers/" + uuid.NewString() + "/slots"},
		{"bad date", "/providers/" + uuid.NewString() + "/slots?date=someday"},
		{"bad duration", "/providers/" + uuid.NewString() + "/slots?date=2026-03-02&duration_min=-5"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}
