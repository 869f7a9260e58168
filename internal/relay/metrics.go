package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ipc-alarm-relay/internal/alarm"
	"ipc-alarm-relay/pkg/models"
)

const (
	resultSuccess = "success"
	resultError   = "error"

	outcomeSent   = "sent"
	outcomeFailed = "failed"

	// alarmOther labels every tag the relay has no message line for, so
	// request bodies cannot grow the label set.
	alarmOther = "other"
)

// Metrics counts what the relay does. A nil *Metrics records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	alarms         *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	notifyDuration prometheus.Histogram
}

// NewMetrics creates the relay metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipc_relay_requests_total",
			Help: "Alarm requests handled, by result.",
		}, []string{"result"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipc_relay_alarms_total",
			Help: "Active alarm flags received, by alarm tag (unknown tags as \"other\").",
		}, []string{"alarm"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipc_relay_notifications_total",
			Help: "Webhook notification attempts, by outcome.",
		}, []string{"outcome"}),
		notifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ipc_relay_notification_duration_seconds",
			Help:    "Time taken by the webhook to accept a notification.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	up := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ipc_relay_up",
		Help: "Whether the relay is running.",
	}, func() float64 { return 1 })

	// Pre-create the result series so they export as 0 before traffic.
	m.requests.WithLabelValues(resultSuccess)
	m.requests.WithLabelValues(resultError)
	m.notifications.WithLabelValues(outcomeSent)
	m.notifications.WithLabelValues(outcomeFailed)

	reg.MustRegister(m.requests, m.alarms, m.notifications, m.notifyDuration, up)
	return m
}

func (m *Metrics) request(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

func (m *Metrics) observeAlarms(r models.AlarmReport) {
	if m == nil {
		return
	}
	for _, name := range r.ActiveNames() {
		if !alarm.IsKnown(name) {
			name = alarmOther
		}
		m.alarms.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) observeNotification(err error, took time.Duration) {
	if m == nil {
		return
	}
	m.notifyDuration.Observe(took.Seconds())
	if err != nil {
		m.notifications.WithLabelValues(outcomeFailed).Inc()
		return
	}
	m.notifications.WithLabelValues(outcomeSent).Inc()
}
