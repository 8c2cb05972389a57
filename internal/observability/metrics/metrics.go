package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics exposes counters/histograms for appointment, patient and notification flows.
type Metrics struct {
	actionsTotal       *prometheus.CounterVec
	actionLatency      *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	summaryCacheTotal  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "actions",
			Name:      "total",
			Help:      "Total appointment and patient actions by outcome",
		}, []string{"action", "outcome"}),
		actionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carepulse",
			Subsystem: "actions",
			Name:      "latency_seconds",
			Help:      "Latency of appointment and patient actions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Notifications handed to a delivery channel",
		}, []string{"channel", "outcome"}),
		summaryCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "appointments",
			Name:      "summary_cache_total",
			Help:      "Admin summary cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.actionsTotal, m.actionLatency, m.notificationsTotal, m.summaryCacheTotal)
	return m
}

// ObserveAction records one action call started at start.
func (m *Metrics) ObserveAction(action string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
	m.actionLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.notificationsTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveSummaryCache records hit, miss or error.
func (m *Metrics) ObserveSummaryCache(result string) {
	if m == nil {
		return
	}
	m.summaryCacheTotal.WithLabelValues(result).Inc()
}
