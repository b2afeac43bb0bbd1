// Copyright 2025 OpenGrantStack
//
// MetricsRecorder is the pluggable, out-of-core collaborator for
// operational counters and timings. The core never imports a metrics
// library directly — it only calls this interface, the same pattern
// used for BlockchainSink and SignatureOracle. See pkg/metrics for a
// concrete Prometheus-backed recorder.

package ledger

import "time"

// MetricsRecorder receives counts and timings for engine operations.
// Every method must be safe to call from concurrent goroutines and
// must never block the caller on I/O; a recorder backed by a push
// gateway or a slow exporter is the caller's problem, not the core's.
type MetricsRecorder interface {
	TransactionCreated(transactionType string)
	TransactionExecuted(transactionType string)
	TransactionRejected(reason string)
	SignatureReceived()
	IntegrityViolations(count int)
	ObserveDuration(operation string, start time.Time)
}

// noopMetrics is the zero-value MetricsRecorder: every call is a no-op,
// so an Engine constructed without WithMetrics pays nothing for
// instrumentation it never asked for.
type noopMetrics struct{}

func (noopMetrics) TransactionCreated(string)       {}
func (noopMetrics) TransactionExecuted(string)      {}
func (noopMetrics) TransactionRejected(string)      {}
func (noopMetrics) SignatureReceived()              {}
func (noopMetrics) IntegrityViolations(int)         {}
func (noopMetrics) ObserveDuration(string, time.Time) {}
