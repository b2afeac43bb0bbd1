// Copyright 2025 OpenGrantStack
//
// Engine is the explicit, constructed-once handle wiring every ledger
// component together (spec.md §9 "singleton process state -> explicit
// engine handle"). Callers construct one Engine and thread it through
// request handlers, workers, or CLI commands — never a package-level
// singleton.

package ledger

import (
	"context"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// Config is the configuration surface the core consumes
// (spec.md §6.5).
type Config struct {
	RequiredSignatures   int
	SupportedCurrencies  []string
	MaxTransactionAmount Money
	DefaultCurrency      string
	EnableMultiSignature bool
	EnableZKProofs       bool
}

// Option customizes Engine construction.
type Option func(*Engine)

// WithSink overrides the default no-op BlockchainSink.
func WithSink(sink BlockchainSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithOracle overrides the default StructuralOracle.
func WithOracle(oracle SignatureOracle) Option {
	return func(e *Engine) { e.oracle = oracle }
}

// WithZKProvider attaches a ZKProofProvider for callers that want
// CreateTransaction's entry descriptors pre-populated with proofs.
func WithZKProvider(provider ZKProofProvider) Option {
	return func(e *Engine) { e.zkProvider = provider }
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger cmtlog.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// WithMetrics overrides the default no-op MetricsRecorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithSnapshotSink overrides the default no-op SnapshotSink.
func WithSnapshotSink(snapshot SnapshotSink) Option {
	return func(e *Engine) { e.snapshot = snapshot }
}

// noopSink is the zero-value BlockchainSink: it fails closed rather
// than pretending to anchor anywhere, so Execute cannot silently
// "succeed" against nothing.
type noopSink struct{}

func (noopSink) Submit(context.Context, Transaction, string) (string, error) {
	return "", errNoSinkConfigured
}
func (noopSink) Verify(context.Context, string) (bool, error) { return false, errNoSinkConfigured }
func (noopSink) Metadata(context.Context, string) (BlockchainMetadata, error) {
	return BlockchainMetadata{}, errNoSinkConfigured
}

var errNoSinkConfigured = &SinkFailureError{Cause: errNoSink}
var errNoSink = errNotConfiguredError("no BlockchainSink configured; supply one with ledger.WithSink")

type errNotConfiguredError string

func (e errNotConfiguredError) Error() string { return string(e) }

// Engine wires EntryStore, Validator, TransactionAssembler,
// ApprovalStateMachine, BalanceIndex, and IntegrityVerifier into one
// value.
type Engine struct {
	cfg Config
	log cmtlog.Logger

	store      *EntryStore
	validator  *Validator
	assembler  *TransactionAssembler
	balances   *BalanceIndex
	sm         *ApprovalStateMachine
	verifier   *IntegrityVerifier
	policies   *PolicyRegistry
	sink       BlockchainSink
	oracle     SignatureOracle
	zkProvider ZKProofProvider
	metrics    MetricsRecorder
	snapshot   SnapshotSink

	mu  sync.RWMutex
	txs map[string]Transaction
}

// New constructs an Engine from cfg and options. The Engine is meant to
// be constructed once per process (or per logical shard) and passed by
// reference to every caller.
func New(cfg Config, opts ...Option) *Engine {
	store := NewEntryStore()
	supported := make(map[string]bool, len(cfg.SupportedCurrencies))
	for _, c := range cfg.SupportedCurrencies {
		supported[c] = true
	}
	validator := NewValidator(ValidatorConfig{
		SupportedCurrencies:  supported,
		MaxTransactionAmount: cfg.MaxTransactionAmount,
	})
	balances := NewBalanceIndex(store)

	// enableMultiSignature=false means every transaction needs exactly
	// one signature to approve, regardless of the configured threshold
	// (spec.md §6.5).
	requiredSignatures := cfg.RequiredSignatures
	if !cfg.EnableMultiSignature {
		requiredSignatures = 1
	}

	e := &Engine{
		cfg:       cfg,
		log:       cmtlog.NewNopLogger(),
		store:     store,
		validator: validator,
		assembler: NewTransactionAssembler(store, validator, requiredSignatures),
		balances:  balances,
		policies:  NewPolicyRegistry(),
		sink:      noopSink{},
		oracle:    NewStructuralOracle(),
		metrics:   noopMetrics{},
		snapshot:  noopSnapshotSink{},
		txs:       make(map[string]Transaction),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sm = NewApprovalStateMachine(e, store, balances, e.sink, validator, e.log, e.metrics, e.snapshot)
	e.verifier = NewIntegrityVerifier(store, e, e.oracle, e.metrics)
	return e
}

// transactionRepo implementation — Engine is its own transaction store,
// keyed by id (spec.md §3 Transaction is a logical bundle owned at the
// engine layer, entries owned exclusively by EntryStore).
func (e *Engine) getTransaction(id string) (Transaction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tx, ok := e.txs[id]
	return tx, ok
}

func (e *Engine) putTransaction(tx Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.txs[tx.ID] = tx
}

// CreateTransaction assembles a balanced, chained, DRAFT transaction
// (spec.md §4.4) and records it.
func (e *Engine) CreateTransaction(grantCycleID string, txType TransactionType, descriptors []EntryDescriptor, description string, policyID string) (Transaction, []Entry, error) {
	start := time.Now()
	tx, entries, err := e.assembler.CreateTransaction(grantCycleID, txType, descriptors, description, policyID)
	if err != nil {
		return Transaction{}, nil, err
	}
	if policyID != "" {
		if policy, ok := e.policies.Get(policyID); ok {
			presult := e.validator.ValidateAgainstPolicies(tx, entries, policy)
			if !presult.Valid {
				return Transaction{}, nil, &ValidationFailedError{Errors: presult.Errors}
			}
		}
	}
	e.putTransaction(tx)
	e.metrics.TransactionCreated(string(txType))
	e.metrics.ObserveDuration("create_transaction", start)
	return tx, entries, nil
}

// GetTransaction returns the transaction for id.
func (e *Engine) GetTransaction(id string) (Transaction, bool) { return e.getTransaction(id) }

// Entries returns the resolved entries for a transaction, ordered by
// timestamp ascending.
func (e *Engine) Entries(txID string) []Entry { return e.store.ByTransaction(txID) }

// EntriesByGrantCycle returns every entry across every transaction
// recorded under cycleID, concatenated in transaction order.
func (e *Engine) EntriesByGrantCycle(cycleID string) []Entry {
	txIDs := e.store.ByGrantCycle(cycleID)
	var entries []Entry
	for _, txID := range txIDs {
		entries = append(entries, e.store.ByTransaction(txID)...)
	}
	return entries
}

// Submit moves a transaction from DRAFT to PENDING_APPROVAL.
func (e *Engine) Submit(txID, actor string) (Transaction, error) {
	return e.sm.Submit(txID, actor)
}

// AddSignature appends a signature and promotes the transaction when
// the threshold is met.
func (e *Engine) AddSignature(ctx context.Context, txID, signer, signatureBytes string, sigType SignatureType) (Transaction, error) {
	return e.sm.AddSignature(ctx, txID, signer, signatureBytes, sigType, e.oracle)
}

// Execute submits the transaction to the configured BlockchainSink and
// advances it to EXECUTED or REJECTED.
func (e *Engine) Execute(ctx context.Context, txID, actor string) (Transaction, error) {
	return e.sm.Execute(ctx, txID, actor)
}

// Reject moves the transaction to REJECTED.
func (e *Engine) Reject(txID, actor, reason string) (Transaction, error) {
	return e.sm.Reject(txID, actor, reason)
}

// Cancel moves the transaction to CANCELLED, or reports success
// trivially if the transaction is unknown (spec.md §4.5).
func (e *Engine) Cancel(txID, actor, reason string) bool {
	return e.sm.Cancel(txID, actor, reason)
}

// GetAccountBalance returns the current (indexed or derived) balance
// for an account/currency pair.
func (e *Engine) GetAccountBalance(accountID, currency string) Balance {
	return e.balances.GetAccountBalance(accountID, currency)
}

// ClearBalanceCache forces the next GetAccountBalance call to re-derive
// from the EntryStore (used to test idempotence, spec.md §8 scenario 6).
func (e *Engine) ClearBalanceCache() { e.balances.Clear() }

// VerifyIntegrity runs a read-only end-to-end sweep over every
// transaction this Engine has recorded.
func (e *Engine) VerifyIntegrity(ctx context.Context) IntegrityResult {
	e.mu.RLock()
	ids := make([]string, 0, len(e.txs))
	for id := range e.txs {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	return e.verifier.VerifyIntegrity(ctx, ids)
}

// ProveZK delegates to the configured ZKProofProvider, when
// EnableZKProofs is set and a provider was supplied via
// WithZKProvider. The proof is never constructed inside the core; this
// is a convenience pass-through so callers can attach a descriptor to
// an EntryDescriptor before calling CreateTransaction.
func (e *Engine) ProveZK(ctx context.Context, descriptor EntryDescriptor) (*ZKProofDescriptor, error) {
	if !e.cfg.EnableZKProofs || e.zkProvider == nil {
		return nil, nil
	}
	return e.zkProvider.Prove(ctx, descriptor)
}

// RegisterPolicy adds policy to the engine's PolicyRegistry.
func (e *Engine) RegisterPolicy(policy Policy) { e.policies.Register(policy) }

// GrantCycleSummary aggregates every transaction under cycleID into
// total allocated (CREDIT) and disbursed (DEBIT/ADJUSTMENT) amounts per
// currency (SPEC_FULL.md §5 supplement; exercises EntryStore's
// otherwise-unconsumed byGrantCycle index).
type GrantCycleSummary struct {
	GrantCycleID      string
	TransactionCount  int
	AllocatedByCurrency map[string]Money
	DisbursedByCurrency map[string]Money
}

// GrantCycleSummary computes a read-only aggregate for cycleID.
func (e *Engine) GrantCycleSummary(cycleID string) GrantCycleSummary {
	summary := GrantCycleSummary{
		GrantCycleID:        cycleID,
		AllocatedByCurrency: make(map[string]Money),
		DisbursedByCurrency: make(map[string]Money),
	}
	txIDs := e.store.ByGrantCycle(cycleID)
	summary.TransactionCount = len(txIDs)
	for _, txID := range txIDs {
		for _, entry := range e.store.ByTransaction(txID) {
			if entry.EntryType == EntryCredit {
				summary.AllocatedByCurrency[entry.Currency] = summary.AllocatedByCurrency[entry.Currency].Add(entry.Amount)
			} else {
				summary.DisbursedByCurrency[entry.Currency] = summary.DisbursedByCurrency[entry.Currency].Add(entry.Amount)
			}
		}
	}
	return summary
}
