// Copyright 2025 OpenGrantStack
//
// Package metrics exposes Prometheus counters and histograms for the
// ledger engine's operations. The teacher repo carries
// github.com/prometheus/client_golang as a direct dependency without
// wiring it into any visible package; this gives it a home against the
// same operations the teacher instruments elsewhere with ad-hoc
// counters (pkg/execution, pkg/database).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder bundles the instruments one Engine instance reports
// through. Construct one per process and register it with an existing
// prometheus.Registerer, or use NewRegistered for the common case.
type Recorder struct {
	TransactionsCreated       *prometheus.CounterVec
	TransactionsExecuted      *prometheus.CounterVec
	TransactionsRejected      *prometheus.CounterVec
	SignaturesReceived        prometheus.Counter
	IntegrityViolationsTotal  prometheus.Counter
	OperationDuration         *prometheus.HistogramVec
}

// New constructs a Recorder with unregistered instruments.
func New() *Recorder {
	return &Recorder{
		TransactionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantledger",
			Name:      "transactions_created_total",
			Help:      "Transactions assembled, labeled by transaction type.",
		}, []string{"type"}),
		TransactionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantledger",
			Name:      "transactions_executed_total",
			Help:      "Transactions that reached EXECUTED, labeled by type.",
		}, []string{"type"}),
		TransactionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantledger",
			Name:      "transactions_rejected_total",
			Help:      "Transactions that reached REJECTED, labeled by reason class.",
		}, []string{"reason"}),
		SignaturesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grantledger",
			Name:      "signatures_received_total",
			Help:      "Signatures accepted across all transactions.",
		}),
		IntegrityViolationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grantledger",
			Name:      "integrity_violations_total",
			Help:      "Violations surfaced by integrity sweeps, summed across all sweeps.",
		}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grantledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations, labeled by operation name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// NewRegistered constructs a Recorder and registers every instrument
// with reg.
func NewRegistered(reg prometheus.Registerer) (*Recorder, error) {
	r := New()
	for _, c := range []prometheus.Collector{
		r.TransactionsCreated,
		r.TransactionsExecuted,
		r.TransactionsRejected,
		r.SignaturesReceived,
		r.IntegrityViolationsTotal,
		r.OperationDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveDuration records how long operation took.
func (r *Recorder) ObserveDuration(operation string, start time.Time) {
	r.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// TransactionCreated satisfies ledger.MetricsRecorder.
func (r *Recorder) TransactionCreated(transactionType string) {
	r.TransactionsCreated.WithLabelValues(transactionType).Inc()
}

// TransactionExecuted satisfies ledger.MetricsRecorder.
func (r *Recorder) TransactionExecuted(transactionType string) {
	r.TransactionsExecuted.WithLabelValues(transactionType).Inc()
}

// TransactionRejected satisfies ledger.MetricsRecorder. reason should
// be a low-cardinality class such as "sink_submit_failed" or "manual",
// never a raw error message.
func (r *Recorder) TransactionRejected(reason string) {
	r.TransactionsRejected.WithLabelValues(reason).Inc()
}

// SignatureReceived satisfies ledger.MetricsRecorder.
func (r *Recorder) SignatureReceived() {
	r.SignaturesReceived.Inc()
}

// IntegrityViolations satisfies ledger.MetricsRecorder.
func (r *Recorder) IntegrityViolations(count int) {
	if count <= 0 {
		return
	}
	r.IntegrityViolationsTotal.Add(float64(count))
}
