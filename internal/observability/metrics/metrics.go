package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the scheduling and notification flows.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	conflictsTotal  prometheus.Counter
	transitionsTotal *prometheus.CounterVec
	notifyTasksTotal *prometheus.CounterVec
	paymentsTotal   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Total appointments created",
		}, []string{"source", "assignment"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Total bookings rejected because no dentist was free",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Total appointment status transitions",
		}, []string{"to"}),
		notifyTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "tasks_total",
			Help:      "Total side-effect tasks processed",
		}, []string{"type", "status"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "payment",
			Name:      "ipn_total",
			Help:      "Total gateway IPN callbacks by outcome",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.transitionsTotal, m.notifyTasksTotal, m.paymentsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(source, assignment string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(source, assignment).Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to).Inc()
}

func (m *BookingMetrics) ObserveNotifyTask(taskType, status string) {
	if m == nil {
		return
	}
	m.notifyTasksTotal.WithLabelValues(taskType, status).Inc()
}

func (m *BookingMetrics) ObserveIPN(result string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(result).Inc()
}
