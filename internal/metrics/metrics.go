package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters for the scheduling core.
type Metrics struct {
	bookingsTotal        *prometheus.CounterVec
	slotsGenerated       prometheus.Counter
	transitionsTotal     *prometheus.CounterVec
	collaboratorFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicore",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		slotsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicore",
			Subsystem: "schedule",
			Name:      "slots_generated_total",
			Help:      "Slots created by the generator",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicore",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle transitions by target status",
		}, []string{"to"}),
		collaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicore",
			Subsystem: "collaborator",
			Name:      "failures_total",
			Help:      "Degraded collaborator calls by collaborator",
		}, []string{"collaborator"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotsGenerated, m.transitionsTotal, m.collaboratorFailures)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSlotsGenerated(n int) {
	if m == nil {
		return
	}
	m.slotsGenerated.Add(float64(n))
}

func (m *Metrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveCollaboratorFailure(collaborator string) {
	if m == nil {
		return
	}
	m.collaboratorFailures.WithLabelValues(collaborator).Inc()
}
