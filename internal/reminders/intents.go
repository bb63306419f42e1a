package reminders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prosaude/scheduling-platform/internal/classify"
	"github.com/prosaude/scheduling-platform/internal/clock"
	"github.com/prosaude/scheduling-platform/internal/observability/metrics"
	"github.com/prosaude/scheduling-platform/internal/patients"
	"github.com/prosaude/scheduling-platform/internal/scheduling"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// AppointmentTransitioner applies reply-driven status changes to
// appointments.
type AppointmentTransitioner interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, from []scheduling.Status, to scheduling.Status) error
}

// ReplyOutcome reports what a patient reply did to the reminder and its
// appointment.
type ReplyOutcome struct {
	Reminder   *Reminder       `json:"reminder"`
	Intent     classify.Intent `json:"intent"`
	Confidence float64         `json:"confidence"`
	// AppointmentStatus is set when the reply transitioned the appointment.
	AppointmentStatus scheduling.Status `json:"appointment_status,omitempty"`
}

// Resolver turns inbound reminder replies into reminder and appointment
// state changes.
type Resolver struct {
	store      *Store
	appts      AppointmentTransitioner
	classifier classify.Classifier
	clk        clock.Clock
	logger     *logging.Logger
	metrics    *metrics.DispatchMetrics
	threshold  float64
}

// NewResolver creates an intent resolver. threshold is the minimum
// classification confidence required to act on a reply; anything below it is
// treated as a question and left for a human. Zero means 0.7.
func NewResolver(store *Store, appts AppointmentTransitioner, classifier classify.Classifier, clk clock.Clock, threshold float64, m *metrics.DispatchMetrics, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	if clk == nil {
		clk = clock.NewClinic("")
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Resolver{
		store:      store,
		appts:      appts,
		classifier: classifier,
		clk:        clk,
		logger:     logger,
		metrics:    m,
		threshold:  threshold,
	}
}

// HandleReply resolves one inbound message from a patient phone. It returns
// (nil, nil) when the patient has no reminder awaiting a reply, leaving the
// message for the regular conversation flow.
func (r *Resolver) HandleReply(ctx context.Context, orgID, phone, text string) (*ReplyOutcome, error) {
	normalized, err := patients.NormalizeE164(phone)
	if err != nil {
		return nil, fmt.Errorf("reminders: handle reply: %w", err)
	}

	reminder, err := r.store.FindAwaitingReply(ctx, orgID, normalized)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, nil
	}

	result, err := r.classifier.Classify(ctx, text)
	if err != nil {
		r.logger.Warn("reply classification failed, treating as question",
			"reminder_id", reminder.ID, "error", err)
		result = classify.Result{Intent: classify.IntentQuestion}
	}
	if result.Confidence < r.threshold && result.Intent != classify.IntentQuestion {
		r.logger.Info("reply confidence below threshold, treating as question",
			"reminder_id", reminder.ID, "intent", result.Intent, "confidence", result.Confidence)
		result.Intent = classify.IntentQuestion
	}

	outcome := &ReplyOutcome{Reminder: reminder, Intent: result.Intent, Confidence: result.Confidence}
	now := r.clk.Now()

	switch result.Intent {
	case classify.IntentConfirm:
		if err := r.store.RegisterReply(ctx, reminder.ID, string(result.Intent), text, StatusConfirmed, now); err != nil {
			return nil, err
		}
		if err := r.appts.UpdateStatus(ctx, reminder.AppointmentID,
			[]scheduling.Status{scheduling.StatusScheduled, scheduling.StatusConfirmed}, scheduling.StatusConfirmed); err != nil {
			return nil, err
		}
		outcome.AppointmentStatus = scheduling.StatusConfirmed

	case classify.IntentCancel:
		if err := r.store.RegisterReply(ctx, reminder.ID, string(result.Intent), text, StatusCancelRequested, now); err != nil {
			return nil, err
		}
		if err := r.appts.UpdateStatus(ctx, reminder.AppointmentID,
			[]scheduling.Status{scheduling.StatusScheduled, scheduling.StatusConfirmed}, scheduling.StatusCancelled); err != nil {
			return nil, err
		}
		outcome.AppointmentStatus = scheduling.StatusCancelled

	case classify.IntentReschedule:
		// The appointment keeps its slot until staff agree on a new time.
		if err := r.store.RegisterReply(ctx, reminder.ID, string(result.Intent), text, StatusRescheduleRequested, now); err != nil {
			return nil, err
		}

	case classify.IntentQuestion:
		// No state change: the reminder stays sent so a follow-up decisive
		// reply can still land.
	}

	r.metrics.ObserveReply(string(result.Intent))
	r.logger.Info("reminder reply resolved",
		"reminder_id", reminder.ID, "intent", result.Intent, "confidence", result.Confidence)
	return outcome, nil
}
