package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking assistant.
type BookingMetrics struct {
	sinkTotal     *prometheus.CounterVec
	attemptsTotal *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	activeSession prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		sinkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "booking",
			Name:      "sink_total",
			Help:      "Sink calls by sink and outcome",
		}, []string{"sink", "outcome"}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking commits by final result",
		}, []string{"result"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "Time to answer one user turn, by the stage the turn ended in",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		activeSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "assistant",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sinkTotal, m.attemptsTotal, m.turnDuration, m.activeSession)
	return m
}

func (m *BookingMetrics) ObserveSink(sink, outcome string) {
	if m == nil {
		return
	}
	m.sinkTotal.WithLabelValues(sink, outcome).Inc()
}

func (m *BookingMetrics) ObserveAttempt(result string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveTurn(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.turnDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSession.Set(float64(n))
}
