package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prosaude/scheduling-platform/internal/providers"
)

// ProviderDirectory is the slice of the provider store the engine needs.
type ProviderDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*providers.Provider, error)
}

// Engine answers availability questions for providers: free-slot generation
// and conflict checks. It holds no state beyond its collaborators and is safe
// for concurrent use.
type Engine struct {
	store       *Store
	directory   ProviderDirectory
	granularity time.Duration
}

// NewEngine creates an availability engine. granularity is the probe step for
// slot generation; zero means 30 minutes.
func NewEngine(store *Store, directory ProviderDirectory, granularity time.Duration) *Engine {
	if granularity <= 0 {
		granularity = 30 * time.Minute
	}
	return &Engine{store: store, directory: directory, granularity: granularity}
}

// IsAvailable reports whether [start, start+duration) is free for the
// provider. "Taken" is a normal false, never an error; only a non-positive
// duration is rejected. excludeID, when non-nil, ignores that appointment's
// own interval so a reschedule can land on its current slot.
func (e *Engine) IsAvailable(ctx context.Context, providerID uuid.UUID, start time.Time, duration time.Duration, excludeID uuid.UUID) (bool, error) {
	return e.isAvailable(ctx, e.store.DB(), providerID, start, duration, excludeID)
}

// isAvailable is the transaction-aware variant used by the booking path.
func (e *Engine) isAvailable(ctx context.Context, q Queryer, providerID uuid.UUID, start time.Time, duration time.Duration, excludeID uuid.UUID) (bool, error) {
	if duration <= 0 {
		return false, ErrInvalidDuration
	}
	if providerID == uuid.Nil {
		return false, ErrMissingProvider
	}
	n, err := e.store.CountConflicts(ctx, q, providerID, start, duration, excludeID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// GenerateSlots returns the free slot start times ("15:04") for a provider on
// a given date. An unknown or inactive provider, or a weekday outside the
// provider's template, yields an empty list and no error.
func (e *Engine) GenerateSlots(ctx context.Context, providerID uuid.UUID, date time.Time, duration time.Duration) ([]string, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	provider, err := e.directory.GetByID(ctx, providerID)
	if errors.Is(err, providers.ErrProviderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: generate slots: %w", err)
	}
	if !provider.Active {
		return nil, nil
	}

	day := provider.Schedule.Day(date)
	if !day.Active {
		return nil, nil
	}

	var slots []string
	for _, open := range day.Open {
		openStart, err := combine(date, open.Start)
		if err != nil {
			return nil, err
		}
		openEnd, err := combine(date, open.End)
		if err != nil {
			return nil, err
		}

		for t := openStart; !t.Add(duration).After(openEnd); t = t.Add(e.granularity) {
			if overlapsBreak(t, duration, day.Breaks, date) {
				continue
			}
			free, err := e.IsAvailable(ctx, providerID, t, duration, uuid.Nil)
			if err != nil {
				return nil, err
			}
			if free {
				slots = append(slots, t.Format("15:04"))
			}
		}
	}
	return slots, nil
}

// combine anchors a "15:04" wall-clock value on the given date, in the
// date's location.
func combine(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: bad schedule time %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func overlapsBreak(start time.Time, d time.Duration, breaks []providers.TimeRange, date time.Time) bool {
	end := start.Add(d)
	for _, br := range breaks {
		bs, err := combine(date, br.Start)
		if err != nil {
			continue
		}
		be, err := combine(date, br.End)
		if err != nil {
			continue
		}
		if start.Before(be) && bs.Before(end) {
			return true
		}
	}
	return false
}
