package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking flow.
type BookingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal prometheus.Counter
	supersedeTotal prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"outcome"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Bookings rejected because the slot was taken",
		}),
		supersedeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "superseded_total",
			Help:      "Prior appointments replaced by a rebooking",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.supersedeTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveSuperseded(n int) {
	if m == nil {
		return
	}
	m.supersedeTotal.Add(float64(n))
}

// DispatchMetrics exposes counters/histograms for the reminder dispatch loop.
type DispatchMetrics struct {
	processedTotal *prometheus.CounterVec
	passDuration   prometheus.Histogram
	repliesTotal   *prometheus.CounterVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "processed_total",
			Help:      "Reminders handled by the dispatch loop",
		}, []string{"kind", "result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one dispatch pass",
			Buckets:   prometheus.DefBuckets,
		}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "replies_total",
			Help:      "Inbound reminder replies by resolved intent",
		}, []string{"intent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.processedTotal, m.passDuration, m.repliesTotal)
	return m
}

func (m *DispatchMetrics) ObserveProcessed(kind, result string) {
	if m == nil {
		return
	}
	m.processedTotal.WithLabelValues(kind, result).Inc()
}

func (m *DispatchMetrics) ObservePassDuration(seconds float64) {
	if m == nil {
		return
	}
	m.passDuration.Observe(seconds)
}

func (m *DispatchMetrics) ObserveReply(intent string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(intent).Inc()
}
