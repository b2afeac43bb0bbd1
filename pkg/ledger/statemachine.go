// Copyright 2025 OpenGrantStack
//
// ApprovalStateMachine drives a Transaction through
// DRAFT -> PENDING_APPROVAL -> APPROVED -> EXECUTED, with REJECTED and
// CANCELLED as terminal alternates (spec.md §4.5).

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// transactionRepo is the minimal view ApprovalStateMachine needs of a
// transaction store; Engine implements it directly.
type transactionRepo interface {
	getTransaction(id string) (Transaction, bool)
	putTransaction(tx Transaction)
}

func isTerminal(status TransactionStatus) bool {
	return status == TxExecuted || status == TxRejected || status == TxCancelled
}

// ApprovalStateMachine implements spec.md §4.5's transition table.
type ApprovalStateMachine struct {
	mu        sync.Mutex
	repo      transactionRepo
	store     *EntryStore
	balances  *BalanceIndex
	sink      BlockchainSink
	validator *Validator
	log       cmtlog.Logger
	metrics   MetricsRecorder
	snapshot  SnapshotSink
}

// NewApprovalStateMachine wires the state machine to its collaborators.
func NewApprovalStateMachine(repo transactionRepo, store *EntryStore, balances *BalanceIndex, sink BlockchainSink, validator *Validator, logger cmtlog.Logger, metrics MetricsRecorder, snapshot SnapshotSink) *ApprovalStateMachine {
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if snapshot == nil {
		snapshot = noopSnapshotSink{}
	}
	return &ApprovalStateMachine{
		repo:      repo,
		store:     store,
		balances:  balances,
		sink:      sink,
		validator: validator,
		log:       logger.With("component", "approval_state_machine"),
		metrics:   metrics,
		snapshot:  snapshot,
	}
}

func (m *ApprovalStateMachine) audit(tx *Transaction, action, actor, details string) {
	tx.AuditTrail = append(tx.AuditTrail, AuditEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Details:   details,
	})
}

// Submit moves tx from DRAFT to PENDING_APPROVAL, guarded by a
// Validator pass over the transaction's resolved entries.
func (m *ApprovalStateMachine) Submit(txID, actor string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.repo.getTransaction(txID)
	if !ok {
		return Transaction{}, &NotFoundError{Kind: "transaction", ID: txID}
	}
	if tx.Status != TxDraft {
		return Transaction{}, &IllegalTransactionTransitionError{TransactionID: txID, From: tx.Status, To: TxPendingApproval}
	}

	entries := m.store.ByTransaction(txID)
	result := m.validator.ValidateTransaction(tx, entries)
	if !result.Valid {
		return Transaction{}, &ValidationFailedError{Errors: result.Errors}
	}

	tx.Status = TxPendingApproval
	m.audit(&tx, "STATUS_CHANGE_PENDING_APPROVAL", actor, "")
	m.repo.putTransaction(tx)
	return tx, nil
}

// AddSignature appends sig to the transaction's receivedSignatures and
// to every child entry's signature list (spec.md §4.5 signature
// semantics). It automatically promotes PENDING_APPROVAL to APPROVED
// once the threshold is met.
func (m *ApprovalStateMachine) AddSignature(ctx context.Context, txID, signer, signatureBytes string, sigType SignatureType, oracle SignatureOracle) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.repo.getTransaction(txID)
	if !ok {
		return Transaction{}, &NotFoundError{Kind: "transaction", ID: txID}
	}
	if tx.Status != TxPendingApproval {
		return Transaction{}, &IllegalTransactionTransitionError{TransactionID: txID, From: tx.Status, To: tx.Status}
	}
	if tx.HasSigner(signer) {
		return Transaction{}, &DuplicateSignerError{TransactionID: txID, Signer: signer}
	}

	sig := Signature{
		Signer:        signer,
		Signature:     signatureBytes,
		Timestamp:     time.Now().UTC(),
		SignatureType: sigType,
	}

	entries := m.store.ByTransaction(txID)
	if oracle != nil {
		for _, e := range entries {
			// The oracle's verdict is advisory at this layer; signature
			// structure is validated the same way spec.md §9 says the
			// source does (length > 0), not full cryptographic checks.
			if _, err := oracle.Verify(ctx, e); err != nil {
				m.log.Error("signature oracle call failed", "entry", e.ID, "err", err)
			}
		}
	}

	for _, e := range entries {
		if err := m.store.AppendSignature(e.ID, sig); err != nil {
			return Transaction{}, err
		}
	}

	tx.ReceivedSignatures = append(tx.ReceivedSignatures, signer)
	m.audit(&tx, "SIGNATURE_ADDED", signer, "")
	m.metrics.SignatureReceived()

	if len(tx.ReceivedSignatures) >= tx.RequiredSignatures {
		tx.Status = TxApproved
		m.audit(&tx, "ALL_SIGNATURES_RECEIVED", "system", "")
		m.audit(&tx, "STATUS_CHANGE_APPROVED", "system", "")
	}

	m.repo.putTransaction(tx)
	return tx, nil
}

// Execute submits tx to sink and, on success and verification,
// transitions it to EXECUTED: every child entry is set CONFIRMED and
// the BalanceIndex is notified exactly once (spec.md §4.5, §3 invariant
// 8). On sink or verification failure, tx moves to REJECTED instead
// (spec.md §7 SinkFailure propagation policy).
func (m *ApprovalStateMachine) Execute(ctx context.Context, txID, actor string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	tx, ok := m.repo.getTransaction(txID)
	if !ok {
		return Transaction{}, &NotFoundError{Kind: "transaction", ID: txID}
	}
	if tx.Status != TxApproved {
		return Transaction{}, &IllegalTransactionTransitionError{TransactionID: txID, From: tx.Status, To: TxExecuted}
	}

	entries := m.store.ByTransaction(txID)
	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.Hash
	}
	root := merkleRoot(hashes)

	txHash, err := m.sink.Submit(ctx, tx, root)
	if err != nil {
		return m.reject(tx, actor, "sink_submit_failed", fmt.Sprintf("sink submit failed: %v", err))
	}

	ok2, err := m.sink.Verify(ctx, txHash)
	if err != nil || !ok2 {
		detail := "verification failed"
		if err != nil {
			detail = fmt.Sprintf("verification error: %v", err)
		}
		return m.reject(tx, actor, "sink_verify_failed", detail)
	}

	meta, err := m.sink.Metadata(ctx, txHash)
	if err != nil {
		m.log.Error("sink metadata lookup failed", "tx", txID, "err", err)
		meta = BlockchainMetadata{TxHash: txHash}
	}

	now := time.Now().UTC()
	tx.Status = TxExecuted
	tx.ExecutionTimestamp = &now
	tx.Blockchain = &meta
	m.audit(&tx, "STATUS_CHANGE_EXECUTED", actor, "")

	for _, e := range entries {
		if err := m.store.SetStatus(e.ID, EntryConfirmed); err != nil {
			return Transaction{}, err
		}
	}
	// BalanceIndex is notified exactly once, from the freshly-CONFIRMED
	// entries (spec.md §3 invariant 8).
	confirmed := make([]Entry, len(entries))
	for i, e := range entries {
		e.Status = EntryConfirmed
		confirmed[i] = e
	}
	m.balances.ApplyExecuted(confirmed)

	for _, e := range confirmed {
		if err := m.snapshot.SaveEntry(e); err != nil {
			m.log.Error("snapshot sink failed", "entry", e.ID, "err", err)
		}
	}

	m.repo.putTransaction(tx)
	m.metrics.TransactionExecuted(string(tx.TransactionType))
	m.metrics.ObserveDuration("execute", start)
	return tx, nil
}

// reject moves tx to REJECTED with detail recorded in the audit trail,
// per spec.md §7's SinkFailure propagation policy: no automatic retry.
func (m *ApprovalStateMachine) reject(tx Transaction, actor, reasonClass, detail string) (Transaction, error) {
	tx.Status = TxRejected
	m.audit(&tx, "STATUS_CHANGE_REJECTED", actor, detail)
	m.repo.putTransaction(tx)
	m.metrics.TransactionRejected(reasonClass)
	return tx, &SinkFailureError{TransactionID: tx.ID, Cause: fmt.Errorf("%s", detail)}
}

// Reject moves tx to REJECTED from any non-terminal state.
func (m *ApprovalStateMachine) Reject(txID, actor, reason string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.repo.getTransaction(txID)
	if !ok {
		return Transaction{}, &NotFoundError{Kind: "transaction", ID: txID}
	}
	if isTerminal(tx.Status) {
		return Transaction{}, &IllegalTransactionTransitionError{TransactionID: txID, From: tx.Status, To: TxRejected}
	}
	tx.Status = TxRejected
	m.audit(&tx, "STATUS_CHANGE_REJECTED", actor, reason)
	m.repo.putTransaction(tx)
	m.metrics.TransactionRejected("manual")
	return tx, nil
}

// Cancel moves tx to CANCELLED from any non-terminal state. Per
// spec.md §4.5/§5, a transaction missing from the store entirely is
// non-fatal: cancellation still reports success at the queue level.
func (m *ApprovalStateMachine) Cancel(txID, actor, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.repo.getTransaction(txID)
	if !ok {
		return true
	}
	if isTerminal(tx.Status) {
		// APPROVED may have raced to EXECUTED already; cancellation
		// degrades to a no-op and the caller observes EXECUTED
		// (spec.md §5 "Cancellation").
		return tx.Status == TxCancelled
	}
	tx.Status = TxCancelled
	m.audit(&tx, "STATUS_CHANGE_CANCELLED", actor, reason)
	m.repo.putTransaction(tx)
	return true
}
