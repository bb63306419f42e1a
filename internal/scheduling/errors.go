package scheduling

import "errors"

var (
	// ErrInvalidDuration is returned for non-positive durations.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrMissingProvider is returned when no provider id is supplied.
	ErrMissingProvider = errors.New("provider id is required")

	// ErrProviderInactive is returned when booking against an inactive or
	// unknown provider.
	ErrProviderInactive = errors.New("provider is inactive or unknown")

	// ErrAppointmentNotFound is returned when an appointment id resolves to
	// nothing.
	ErrAppointmentNotFound = errors.New("appointment not found")
)
