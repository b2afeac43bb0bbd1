package ledger

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeMetrics is a MetricsRecorder test double recording every call it
// receives, guarded by a mutex since the engine may call it under its
// own lock from different goroutines across tests.
type fakeMetrics struct {
	mu                 sync.Mutex
	created            []string
	executed           []string
	rejected           []string
	signatures         int
	integrityCalls     []int
	observedOperations []string
}

func (f *fakeMetrics) TransactionCreated(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, t)
}
func (f *fakeMetrics) TransactionExecuted(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, t)
}
func (f *fakeMetrics) TransactionRejected(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, reason)
}
func (f *fakeMetrics) SignatureReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signatures++
}
func (f *fakeMetrics) IntegrityViolations(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrityCalls = append(f.integrityCalls, count)
}
func (f *fakeMetrics) ObserveDuration(operation string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observedOperations = append(f.observedOperations, operation)
}

// fakeSnapshot is a SnapshotSink test double recording every entry it
// was asked to save.
type fakeSnapshot struct {
	mu    sync.Mutex
	saved []Entry
	fail  bool
}

func (f *fakeSnapshot) SaveEntry(e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errSnapshotFailed
	}
	f.saved = append(f.saved, e)
	return nil
}

var errSnapshotFailed = errNotConfiguredError("simulated snapshot failure")

func testEngineWithCollaborators(sink BlockchainSink, metrics MetricsRecorder, snapshot SnapshotSink) *Engine {
	cfg := Config{
		RequiredSignatures:   1,
		SupportedCurrencies:  []string{"USD", "EUR"},
		MaxTransactionAmount: MustParseMoney("1000000.00"),
		DefaultCurrency:      "USD",
	}
	opts := []Option{WithSink(sink)}
	if metrics != nil {
		opts = append(opts, WithMetrics(metrics))
	}
	if snapshot != nil {
		opts = append(opts, WithSnapshotSink(snapshot))
	}
	return New(cfg, opts...)
}

func TestMetricsRecordedAcrossFullLifecycle(t *testing.T) {
	metrics := &fakeMetrics{}
	e := testEngineWithCollaborators(&fakeSink{}, metrics, nil)
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("100.00"), "allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.AddSignature(ctx, tx.ID, "signer-a", "sig-bytes", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if _, err := e.Execute(ctx, tx.ID, "ops-user"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.created) != 1 || metrics.created[0] != string(TxAllocation) {
		t.Errorf("expected one TransactionCreated(ALLOCATION), got %v", metrics.created)
	}
	if metrics.signatures != 1 {
		t.Errorf("expected 1 signature recorded, got %d", metrics.signatures)
	}
	if len(metrics.executed) != 1 {
		t.Errorf("expected one TransactionExecuted, got %v", metrics.executed)
	}
	if len(metrics.observedOperations) == 0 {
		t.Error("expected at least one duration observation")
	}
}

func TestMetricsRecordsRejectionOnSinkFailure(t *testing.T) {
	metrics := &fakeMetrics{}
	e := testEngineWithCollaborators(&fakeSink{failSubmit: true}, metrics, nil)
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("100.00"), "allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.AddSignature(ctx, tx.ID, "signer-a", "sig-bytes", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if _, err := e.Execute(ctx, tx.ID, "ops-user"); err == nil {
		t.Fatal("expected Execute to fail when the sink rejects submission")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.rejected) != 1 || metrics.rejected[0] != "sink_submit_failed" {
		t.Errorf("expected one sink_submit_failed rejection, got %v", metrics.rejected)
	}
}

func TestSnapshotSinkReceivesConfirmedEntries(t *testing.T) {
	snapshot := &fakeSnapshot{}
	e := testEngineWithCollaborators(&fakeSink{}, nil, snapshot)
	ctx := context.Background()

	tx, entries, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("100.00"), "allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.AddSignature(ctx, tx.ID, "signer-a", "sig-bytes", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if _, err := e.Execute(ctx, tx.ID, "ops-user"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	snapshot.mu.Lock()
	defer snapshot.mu.Unlock()
	if len(snapshot.saved) != len(entries) {
		t.Fatalf("expected %d snapshot writes, got %d", len(entries), len(snapshot.saved))
	}
	for _, saved := range snapshot.saved {
		if saved.Status != EntryConfirmed {
			t.Errorf("expected snapshot to receive a CONFIRMED entry, got %s", saved.Status)
		}
	}
}

func TestExecuteSucceedsDespiteSnapshotFailure(t *testing.T) {
	snapshot := &fakeSnapshot{fail: true}
	e := testEngineWithCollaborators(&fakeSink{}, nil, snapshot)
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("100.00"), "allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.AddSignature(ctx, tx.ID, "signer-a", "sig-bytes", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	executed, err := e.Execute(ctx, tx.ID, "ops-user")
	if err != nil {
		t.Fatalf("expected Execute to succeed even though the snapshot sink failed, got %v", err)
	}
	if executed.Status != TxExecuted {
		t.Errorf("expected EXECUTED, got %s", executed.Status)
	}
}

func TestVerifyIntegrityObservesDurationWithoutViolationsOnCleanState(t *testing.T) {
	metrics := &fakeMetrics{}
	e := testEngineWithCollaborators(&fakeSink{}, metrics, nil)
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("100.00"), "allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.AddSignature(ctx, tx.ID, "signer-a", "sig-bytes", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if _, err := e.Execute(ctx, tx.ID, "ops-user"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	result := e.VerifyIntegrity(ctx)
	if !result.Valid {
		t.Fatalf("expected a freshly executed transaction to pass the integrity sweep, got errors: %v", result.Errors)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.integrityCalls) != 0 {
		t.Errorf("expected no IntegrityViolations call on clean state, got %v", metrics.integrityCalls)
	}
	found := false
	for _, op := range metrics.observedOperations {
		if op == "verify_integrity" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a verify_integrity duration observation, got %v", metrics.observedOperations)
	}
}
