package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/dateparse"
	"github.com/prosaude/scheduling-platform/internal/reminders"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// AdminRemindersHandler serves the JWT-gated reminder admin endpoints.
type AdminRemindersHandler struct {
	store     *reminders.Store
	lifecycle *reminders.Lifecycle
	clk       clock.Clock
	logger    *logging.Logger
}

// NewAdminRemindersHandler creates the admin reminders handler.
func NewAdminRemindersHandler(store *reminders.Store, lifecycle *reminders.Lifecycle, clk clock.Clock, logger *logging.Logger) *AdminRemindersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if clk == nil {
		clk = clock.NewClinic("")
	}
	return &AdminRemindersHandler{store: store, lifecycle: lifecycle, clk: clk, logger: logger}
}

type reminderStatsResponse struct {
	OrgID string          `json:"org_id"`
	From  string          `json:"from"`
	To    string          `json:"to"`
	Stats reminders.Stats `json:"stats"`
}

// Stats handles GET /admin/reminders/stats?org_id=...&from=...&to=...
// The window defaults to the last 30 days.
func (h *AdminRemindersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		respondError(w, http.StatusBadRequest, "missing_org", "org_id query parameter is required")
		return
	}

	now := h.clk.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = dateparse.Date(raw, h.clk.Location(), now); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_from", err.Error())
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = dateparse.Date(raw, h.clk.Location(), now); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_to", err.Error())
			return
		}
		// Inclusive end of day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	stats, err := h.store.CountByStatus(r.Context(), orgID, from, to)
	if err != nil {
		h.logger.Error("reminder stats failed", "org_id", orgID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "stats query failed")
		return
	}
	respondJSON(w, http.StatusOK, reminderStatsResponse{
		OrgID: orgID,
		From:  from.Format(time.RFC3339),
		To:    to.Format(time.RFC3339),
		Stats: stats,
	})
}

type createReminderRequest struct {
	AppointmentID string `json:"appointment_id"`
	Kind          string `json:"kind"`
}

// Create handles POST /admin/reminders, the staff-driven creation of an
// extra reminder kind for one appointment.
func (h *AdminRemindersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_appointment", "appointment_id must be a uuid")
		return
	}

	if err := h.lifecycle.CreateOnDemand(r.Context(), appointmentID, reminders.Kind(req.Kind)); err != nil {
		h.logger.Warn("on-demand reminder creation failed", "appointment_id", appointmentID, "kind", req.Kind, "error", err)
		respondError(w, http.StatusUnprocessableEntity, "creation_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
