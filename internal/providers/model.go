package providers

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeRange is a wall-clock interval within one day, "15:04" formatted,
// half-open: a slot may start at Start and must end by End.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule is a provider's template for one weekday.
type DaySchedule struct {
	Active bool        `json:"active"`
	Open   []TimeRange `json:"open"`
	Breaks []TimeRange `json:"breaks,omitempty"`
}

// WeekSchedule maps weekday names ("monday".."sunday") to day templates.
// Stored as JSONB on the provider row.
type WeekSchedule map[string]DaySchedule

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// Day returns the template for the weekday of t, or an inactive day.
func (w WeekSchedule) Day(t time.Time) DaySchedule {
	if w == nil {
		return DaySchedule{}
	}
	return w[weekdayNames[t.Weekday()]]
}

// InsurancePlan is a named plan the provider accepts, with its agreed price.
type InsurancePlan struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Provider is the bookable professional.
type Provider struct {
	ID                uuid.UUID       `json:"id"`
	OrgID             string          `json:"org_id"`
	Name              string          `json:"name"`
	Active            bool            `json:"active"`
	SelfPayPriceCents int64           `json:"self_pay_price_cents"`
	Plans             []InsurancePlan `json:"plans"`
	Schedule          WeekSchedule    `json:"schedule"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DisplayName prefixes "Dr(a)." unless the stored name already carries a
// doctor prefix.
func (p *Provider) DisplayName() string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return "Provider"
	}
	lower := strings.ToLower(name)
	for _, prefix := range []string{"dr.", "dr ", "dra.", "dra "} {
		if strings.HasPrefix(lower, prefix) {
			return name
		}
	}
	return "Dr(a). " + name
}
