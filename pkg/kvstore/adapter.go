// Copyright 2025 OpenGrantStack
//
// Package kvstore provides an optional, out-of-core durable snapshot
// store for the ledger. It is never in the core's write path — the
// core (pkg/ledger) operates purely in memory, per spec.md §1's
// non-goal of durable storage. This package exists so an operator can
// periodically snapshot confirmed state to a real key-value backend
// without the core knowing or caring that it happened.
package kvstore

import (
	"encoding/json"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// KV is the minimal interface a snapshot consumer needs.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Adapter wraps a CometBFT dbm.DB and exposes the minimal KV interface
// pkg/ledger-adjacent snapshot code depends on, so the backend (MemDB,
// GoLevelDB, BadgerDB, ...) is swappable without touching callers.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps db.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// NewMemAdapter constructs an Adapter over an in-process MemDB, useful
// for tests and local operation without a real storage dependency.
func NewMemAdapter() *Adapter {
	return &Adapter{db: dbm.NewMemDB()}
}

// Get implements KV.Get.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("kvstore get: %w", err)
	}
	return v, nil
}

// Set implements KV.Set, writing through synchronously so a snapshot
// is durable by the time Set returns.
func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	if err := a.db.SetSync(key, value); err != nil {
		return fmt.Errorf("kvstore set: %w", err)
	}
	return nil
}

// SnapshotEntry is the serialized shape written for one ledger entry
// snapshot; kept distinct from ledger.Entry so this package has no
// import-time dependency on pkg/ledger's internal layout.
type SnapshotEntry struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	AccountID     string `json:"accountId"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	EntryType     string `json:"entryType"`
	Hash          string `json:"hash"`
	PreviousHash  string `json:"previousHash,omitempty"`
	Status        string `json:"status"`
}

func entryKey(id string) []byte {
	return []byte("ledger:entry:" + id)
}

// PutSnapshotEntry writes one entry snapshot.
func (a *Adapter) PutSnapshotEntry(e SnapshotEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal snapshot entry: %w", err)
	}
	return a.Set(entryKey(e.ID), b)
}

// GetSnapshotEntry reads back one entry snapshot, or (SnapshotEntry{}, false)
// if absent.
func (a *Adapter) GetSnapshotEntry(id string) (SnapshotEntry, bool, error) {
	b, err := a.Get(entryKey(id))
	if err != nil {
		return SnapshotEntry{}, false, err
	}
	if b == nil {
		return SnapshotEntry{}, false, nil
	}
	var e SnapshotEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return SnapshotEntry{}, false, fmt.Errorf("unmarshal snapshot entry: %w", err)
	}
	return e, true, nil
}
