package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/reminders"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// ReplyResolver is the slice of the reminder resolver this handler needs.
type ReplyResolver interface {
	HandleReply(ctx context.Context, orgID, phone, text string) (*reminders.ReplyOutcome, error)
}

// RepliesHandler receives inbound WhatsApp reply webhooks.
type RepliesHandler struct {
	resolver ReplyResolver
	logger   *logging.Logger
}

// NewRepliesHandler creates the reply webhook handler.
func NewRepliesHandler(resolver ReplyResolver, logger *logging.Logger) *RepliesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RepliesHandler{resolver: resolver, logger: logger}
}

type replyRequest struct {
	OrgID string `json:"org_id"`
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type replyResponse struct {
	Handled           bool    `json:"handled"`
	Intent            string  `json:"intent,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	AppointmentStatus string  `json:"appointment_status,omitempty"`
}

// Handle processes POST /webhooks/replies.
func (h *RepliesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.OrgID == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "org_id and phone are required")
		return
	}

	outcome, err := h.resolver.HandleReply(r.Context(), req.OrgID, req.Phone, req.Text)
	if err != nil {
		if errors.Is(err, patients.ErrInvalidPhone) {
			respondError(w, http.StatusBadRequest, "invalid_phone", err.Error())
			return
		}
		h.logger.Error("reply handling failed", "org_id", req.OrgID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "reply handling failed")
		return
	}
	if outcome == nil {
		// Not a reminder reply; the caller routes it to the normal flow.
		respondJSON(w, http.StatusOK, replyResponse{Handled: false})
		return
	}
	respondJSON(w, http.StatusOK, replyResponse{
		Handled:           true,
		Intent:            string(outcome.Intent),
		Confidence:        outcome.Confidence,
		AppointmentStatus: string(outcome.AppointmentStatus),
	})
}
