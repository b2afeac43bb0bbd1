// Copyright 2025 OpenGrantStack
//
// IntegrityVerifier walks the entry log end-to-end, re-deriving hashes
// and checking balances. It is a read-only sweep (spec.md §4.7).

package ledger

import (
	"context"
	"fmt"
	"time"
)

// IntegrityResult is the outcome of a verifyIntegrity sweep.
type IntegrityResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// IntegrityVerifier performs spec.md §4.7's five-step sweep.
type IntegrityVerifier struct {
	store   *EntryStore
	repo    transactionRepo
	oracle  SignatureOracle
	metrics MetricsRecorder
}

// NewIntegrityVerifier constructs a verifier over store and repo,
// using oracle for the per-entry signature check (step 4).
func NewIntegrityVerifier(store *EntryStore, repo transactionRepo, oracle SignatureOracle, metrics MetricsRecorder) *IntegrityVerifier {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &IntegrityVerifier{store: store, repo: repo, oracle: oracle, metrics: metrics}
}

// VerifyIntegrity performs the sweep described in spec.md §4.7.
// Running it twice against unchanged state yields identical results
// (spec.md §8 P8) because it never mutates the store.
func (v *IntegrityVerifier) VerifyIntegrity(ctx context.Context, transactionIDs []string) IntegrityResult {
	start := time.Now()
	result := IntegrityResult{Valid: true}

	// Step 1: order all entries by (timestamp ascending, creation
	// sequence).
	entries := v.store.All()

	// Step 2 + 3: recompute hash and check chain continuity.
	for i, e := range entries {
		recomputed, err := hashEntry(e)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("InvalidHash(%s): %v", e.ID, err))
			continue
		}
		if recomputed != e.Hash {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("InvalidHash(%s)", e.ID))
		}
		if i == 0 {
			if e.PreviousHash != "" {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("BrokenChain(%s): first entry has a previousHash", e.ID))
			}
			continue
		}
		if e.PreviousHash != entries[i-1].Hash {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("BrokenChain(%s)", e.ID))
		}
	}

	// Step 4: per-entry signature oracle.
	if v.oracle != nil {
		for _, e := range entries {
			oracleResult, err := v.oracle.Verify(ctx, e)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("signature oracle error for %s: %v", e.ID, err))
				continue
			}
			if !oracleResult.Valid {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("InvalidSignature(%s)", e.ID))
			}
		}
	}

	// Step 5: per-transaction balance recomputation.
	for _, txID := range transactionIDs {
		tx, ok := v.repo.getTransaction(txID)
		if !ok {
			continue
		}
		txEntries := v.store.ByTransaction(txID)
		var credit, debit Money
		for _, e := range txEntries {
			if e.EntryType == EntryCredit {
				credit = credit.Add(e.Amount)
			} else {
				debit = debit.Add(e.Amount)
			}
		}
		net := credit.Sub(debit)
		tolerance := MustParseMoney("0.01")
		if !net.WithinTolerance(tolerance) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("UnbalancedTransaction(%s, %s)", tx.ID, net))
		}
	}

	if len(result.Errors) > 0 {
		v.metrics.IntegrityViolations(len(result.Errors))
	}
	v.metrics.ObserveDuration("verify_integrity", start)
	return result
}
