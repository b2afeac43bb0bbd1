// Copyright 2025 OpenGrantStack
//
// BalanceIndex is the derived (account,currency) -> signed amount
// projection, updated on transaction execution (spec.md §4.6).

package ledger

import (
	"fmt"
	"sync"
	"time"
)

func balanceKey(accountID, currency string) string {
	return fmt.Sprintf("%s:%s", accountID, currency)
}

// BalanceIndex may be recomputed from an EntryStore at any time; it is
// a cache over the authoritative entry log, never itself authoritative
// (spec.md §3 "Ownership & lifecycle").
type BalanceIndex struct {
	mu    sync.RWMutex
	byKey map[string]Balance
	store *EntryStore
}

// NewBalanceIndex constructs an empty index backed by store for
// on-demand derivation (spec.md §4.6 getAccountBalance fallback).
func NewBalanceIndex(store *EntryStore) *BalanceIndex {
	return &BalanceIndex{byKey: make(map[string]Balance), store: store}
}

// ApplyExecuted adjusts the index for every confirmed entry of a
// just-executed transaction: +amount for CREDIT, -amount otherwise
// (spec.md §4.6). Called exactly once per execution, from
// ApprovalStateMachine.Execute (spec.md §3 invariant 8).
func (b *BalanceIndex) ApplyExecuted(entries []Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	for _, e := range entries {
		key := balanceKey(e.Account.ID, e.Currency)
		cur := b.byKey[key]
		if cur.Currency == "" {
			cur = Balance{AccountID: e.Account.ID, Currency: e.Currency}
		}
		if e.EntryType == EntryCredit {
			cur.Balance = cur.Balance.Add(e.Amount)
		} else {
			cur.Balance = cur.Balance.Sub(e.Amount)
		}
		cur.AsOf = now
		cur.Verified = false
		b.byKey[key] = cur
	}
}

// GetAccountBalance returns the indexed balance if present; otherwise
// it derives the balance by scanning CONFIRMED entries matching
// (accountID, currency), memoizes the result, and returns it with
// Verified=false (spec.md §4.6).
func (b *BalanceIndex) GetAccountBalance(accountID, currency string) Balance {
	key := balanceKey(accountID, currency)

	b.mu.RLock()
	cur, ok := b.byKey[key]
	b.mu.RUnlock()
	if ok {
		return cur
	}

	derived := b.derive(accountID, currency)

	b.mu.Lock()
	b.byKey[key] = derived
	b.mu.Unlock()

	return derived
}

// derive recomputes a balance from scratch by scanning the EntryStore,
// independent of any cached state — this is what makes balance
// derivation idempotent (spec.md §8 P7/P8, scenario 6).
func (b *BalanceIndex) derive(accountID, currency string) Balance {
	var sum Money
	for _, e := range b.store.All() {
		if e.Status != EntryConfirmed {
			continue
		}
		if e.Account.ID != accountID || e.Currency != currency {
			continue
		}
		if e.EntryType == EntryCredit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return Balance{
		AccountID: accountID,
		Balance:   sum,
		Currency:  currency,
		AsOf:      time.Now().UTC(),
		Verified:  false,
	}
}

// Clear empties the cached index, forcing every subsequent
// GetAccountBalance call to re-derive from the EntryStore. Exposed for
// testing invariant P7/idempotence (spec.md §8 scenario 6).
func (b *BalanceIndex) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKey = make(map[string]Balance)
}
