package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/dateparse"
	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// AppointmentsHandler serves booking and availability endpoints.
type AppointmentsHandler struct {
	booker          *scheduling.Booker
	engine          *scheduling.Engine
	clk             clock.Clock
	defaultDuration time.Duration
	logger          *logging.Logger
}

// NewAppointmentsHandler creates the booking handler. defaultDuration is
// applied when a request omits duration_min.
func NewAppointmentsHandler(booker *scheduling.Booker, engine *scheduling.Engine, clk clock.Clock, defaultDuration time.Duration, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if clk == nil {
		clk = clock.NewClinic("")
	}
	if defaultDuration <= 0 {
		defaultDuration = 30 * time.Minute
	}
	return &AppointmentsHandler{
		booker:          booker,
		engine:          engine,
		clk:             clk,
		defaultDuration: defaultDuration,
		logger:          logger,
	}
}

type bookRequest struct {
	OrgID        string `json:"org_id"`
	ProviderID   string `json:"provider_id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	Insurance    string `json:"insurance,omitempty"`
	StartAt      string `json:"start_at"`
	DurationMin  int    `json:"duration_min,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type conflictResponse struct {
	Error        string   `json:"error"`
	RequestedAt  string   `json:"requested_at"`
	ProviderName string   `json:"provider_name"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// Book handles POST /appointments.
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.OrgID == "" {
		respondError(w, http.StatusBadRequest, "missing_org", "org_id is required")
		return
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_provider", "provider_id must be a uuid")
		return
	}

	startAt, err := dateparse.DateTime(req.StartAt, h.clk.Location())
	if err != nil {
		var parseErr *dateparse.ParseError
		if errors.As(err, &parseErr) {
			respondError(w, http.StatusBadRequest, "invalid_start_at", parseErr.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_start_at", err.Error())
		return
	}

	duration := h.defaultDuration
	if req.DurationMin > 0 {
		duration = time.Duration(req.DurationMin) * time.Minute
	}

	appt, conflict, err := h.booker.Book(r.Context(), scheduling.BookingRequest{
		OrgID:        req.OrgID,
		ProviderID:   providerID,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		Insurance:    req.Insurance,
		StartAt:      startAt,
		Duration:     duration,
		Reason:       req.Reason,
	})
	if err != nil {
		h.writeBookingError(w, err)
		return
	}
	if conflict != nil {
		respondJSON(w, http.StatusConflict, conflictResponse{
			Error:        "slot_taken",
			RequestedAt:  conflict.RequestedAt.Format(time.RFC3339),
			ProviderName: conflict.ProviderName,
			Alternatives: conflict.Alternatives,
		})
		return
	}
	respondJSON(w, http.StatusCreated, appt)
}

type rescheduleRequest struct {
	StartAt string `json:"start_at"`
}

// Reschedule handles PATCH /appointments/{appointmentID}.
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_appointment", "appointment id must be a uuid")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	newStart, err := dateparse.DateTime(req.StartAt, h.clk.Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_start_at", err.Error())
		return
	}

	appt, conflict, err := h.booker.Reschedule(r.Context(), id, newStart)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			respondError(w, http.StatusNotFound, "appointment_not_found", err.Error())
			return
		}
		h.writeBookingError(w, err)
		return
	}
	if conflict != nil {
		respondJSON(w, http.StatusConflict, conflictResponse{
			Error:        "slot_taken",
			RequestedAt:  conflict.RequestedAt.Format(time.RFC3339),
			ProviderName: conflict.ProviderName,
			Alternatives: conflict.Alternatives,
		})
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

func (h *AppointmentsHandler) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrInvalidDuration):
		respondError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, scheduling.ErrMissingProvider), errors.Is(err, scheduling.ErrProviderInactive):
		respondError(w, http.StatusUnprocessableEntity, "provider_unavailable", err.Error())
	case errors.Is(err, patients.ErrInvalidPhone):
		respondError(w, http.StatusBadRequest, "invalid_phone", err.Error())
	default:
		h.logger.Error("booking failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "booking failed")
	}
}

type slotsResponse struct {
	ProviderID  string   `json:"provider_id"`
	Date        string   `json:"date"`
	DurationMin int      `json:"duration_min"`
	Slots       []string `json:"slots"`
}

// Slots handles GET /providers/{providerID}/slots?date=...&duration_min=...
func (h *AppointmentsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_provider", "provider id must be a uuid")
		return
	}

	rawDate := r.URL.Query().Get("date")
	if rawDate == "" {
		respondError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
		return
	}
	date, err := dateparse.Date(rawDate, h.clk.Location(), h.clk.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	duration := h.defaultDuration
	if raw := r.URL.Query().Get("duration_min"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_duration", "duration_min must be a positive integer")
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	slots, err := h.engine.GenerateSlots(r.Context(), providerID, date, duration)
	if err != nil {
		if errors.Is(err, scheduling.ErrInvalidDuration) {
			respondError(w, http.StatusBadRequest, "invalid_duration", err.Error())
			return
		}
		h.logger.Error("slot generation failed", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "slot generation failed")
		return
	}
	if slots == nil {
		slots = []string{}
	}
	respondJSON(w, http.StatusOK, slotsResponse{
		ProviderID:  providerID.String(),
		Date:        date.Format("2006-01-02"),
		DurationMin: int(duration.Minutes()),
		Slots:       slots,
	})
}
