package metrics

import "github.com/prometheus/client_golang/prometheus"

// CallMetrics exposes counters/histograms for the voice call flows.
type CallMetrics struct {
	callsTotal       *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec
	leadsTotal       prometheus.Counter
	webhookLatency   *prometheus.HistogramVec
}

func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "calls",
			Name:      "total",
			Help:      "Total handled calls by outcome",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Total booking attempts by status",
		}, []string{"status"}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "escalations",
			Name:      "total",
			Help:      "Total escalation decisions by branch",
		}, []string{"branch"}),
		leadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "leads",
			Name:      "total",
			Help:      "Total captured leads",
		}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "receptionist",
			Subsystem: "webhooks",
			Name:      "latency_seconds",
			Help:      "Latency of call-routing webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsTotal, m.bookingsTotal, m.escalationsTotal, m.leadsTotal, m.webhookLatency)
	return m
}

func (m *CallMetrics) ObserveCall(outcome string) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(outcome).Inc()
}

func (m *CallMetrics) ObserveBooking(booked bool) {
	if m == nil {
		return
	}
	status := "failed"
	if booked {
		status = "booked"
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *CallMetrics) ObserveEscalation(branch string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(branch).Inc()
}

func (m *CallMetrics) ObserveLead() {
	if m == nil {
		return
	}
	m.leadsTotal.Inc()
}

func (m *CallMetrics) ObserveWebhookLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(route).Observe(seconds)
}
