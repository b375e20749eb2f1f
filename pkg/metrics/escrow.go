package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics records outcomes of ledger core operations.
type EscrowMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	releasedCents prometheus.Counter
	refundedCents prometheus.Counter
}

// NewEscrowMetrics registers the escrow metrics on the provided registerer.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		return &EscrowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escrow_op_duration_seconds",
		Help:    "Duration of escrow ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_op_success",
		Help: "Successful escrow ledger operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_op_failure",
		Help: "Rejected or failed escrow ledger operations.",
	}, []string{"op"})
	releasedCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escrow_released_cents_total",
		Help: "Total cents released from escrow to suppliers.",
	})
	refundedCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escrow_refunded_cents_total",
		Help: "Total cents refunded from escrow to buyers.",
	})
	reg.MustRegister(duration, success, failure, releasedCents, refundedCents)
	return &EscrowMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		releasedCents: releasedCents,
		refundedCents: refundedCents,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *EscrowMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *EscrowMetrics) IncSuccess(op string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *EscrowMetrics) IncFailure(op string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddReleasedCents accumulates supplier payouts.
func (m *EscrowMetrics) AddReleasedCents(cents int64) {
	if m == nil || m.releasedCents == nil || cents <= 0 {
		return
	}
	m.releasedCents.Add(float64(cents))
}

// AddRefundedCents accumulates buyer refunds.
func (m *EscrowMetrics) AddRefundedCents(cents int64) {
	if m == nil || m.refundedCents == nil || cents <= 0 {
		return
	}
	m.refundedCents.Add(float64(cents))
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
