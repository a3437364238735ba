// Package metrics exposes Prometheus collectors for the API and worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tutorcenter/internal/tutoring"
)

// Metrics groups the collectors. It implements tutoring.Observer.
type Metrics struct {
	payments        *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	attendance      *prometheus.CounterVec
	absentees       prometheus.Counter
	rejected        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	jobs            *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorcenter",
			Name:      "payments_recorded_total",
			Help:      "Payments recorded, by method.",
		}, []string{"method"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorcenter",
			Name:      "payments_amount_total",
			Help:      "Sum of recorded payment amounts, by method.",
		}, []string{"method"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorcenter",
			Name:      "attendance_marked_total",
			Help:      "Attendance records created, by status.",
		}, []string{"status"}),
		absentees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutorcenter",
			Name:      "absentees_auto_marked_total",
			Help:      "Absent records created by the absentee pass.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorcenter",
			Name:      "operations_rejected_total",
			Help:      "Domain operations rejected, by operation and error kind.",
		}, []string{"op", "kind"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tutorcenter",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorcenter",
			Name:      "worker_jobs_total",
			Help:      "Worker jobs processed, by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.payments, m.paymentAmount, m.attendance, m.absentees, m.rejected, m.requestDuration, m.jobs)
	return m
}

func (m *Metrics) PaymentRecorded(method tutoring.PaymentMethod, amount int64) {
	m.payments.WithLabelValues(string(method)).Inc()
	m.paymentAmount.WithLabelValues(string(method)).Add(float64(amount))
}

func (m *Metrics) AttendanceMarked(status tutoring.AttendanceStatus, systemGenerated bool) {
	m.attendance.WithLabelValues(string(status)).Inc()
	if systemGenerated {
		m.absentees.Inc()
	}
}

func (m *Metrics) Rejected(op string, kind tutoring.Kind) {
	m.rejected.WithLabelValues(op, kind.String()).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

// JobDone records a processed worker job.
func (m *Metrics) JobDone(typ string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobs.WithLabelValues(typ, outcome).Inc()
}
