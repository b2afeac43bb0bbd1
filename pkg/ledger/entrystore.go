// Copyright 2025 OpenGrantStack
//
// EntryStore: the append-only log of Entry records. EntryStore is the
// exclusive owner of every Entry; Transaction holds only entry ids
// resolved back through the store (spec.md §3 "Ownership & lifecycle").

package ledger

import (
	"sort"
	"sync"
	"time"
)

// EntryDraft is the caller-supplied subset of an Entry's fields; the
// store assigns id, timestamp, previousHash, and hash on append.
type EntryDraft struct {
	GrantCycleID  string
	TransactionID string
	Account       Account
	Amount        Money
	Currency      string
	EntryType     EntryType
	Description   string
	Metadata      map[string]string
	ZKProof       *ZKProofDescriptor
}

// EntryStore is a process-wide, exclusive-writer/shared-reader append
// log. All mutations are serialized through mu (spec.md §5).
type EntryStore struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	order       []string // append order, authoritative for chain/tip
	byTx        map[string][]string
	byCycle     map[string][]string // transaction ids, de-duplicated, in first-seen order
	cycleSeen   map[string]map[string]bool
	tip         string
	nextSeq     uint64
}

// NewEntryStore constructs an empty store with no chain tip.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries:   make(map[string]Entry),
		byTx:      make(map[string][]string),
		byCycle:   make(map[string][]string),
		cycleSeen: make(map[string]map[string]bool),
	}
}

// Append assigns id, timestamp, previousHash (the current tip), and
// hash to draft, stores the resulting Entry as PENDING, advances the
// tip, and returns the finalized Entry. Append never fails within the
// core (spec.md §4.2).
func (s *EntryStore) Append(draft EntryDraft) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		ID:            newID(),
		Timestamp:     time.Now().UTC(),
		GrantCycleID:  draft.GrantCycleID,
		TransactionID: draft.TransactionID,
		Account:       draft.Account,
		Amount:        draft.Amount,
		Currency:      draft.Currency,
		EntryType:     draft.EntryType,
		Description:   draft.Description,
		Metadata:      draft.Metadata,
		ZKProof:       draft.ZKProof,
		Status:        EntryPending,
		creationSeq:   s.nextSeq,
	}
	if s.tip != "" {
		e.PreviousHash = s.tip
	}
	s.nextSeq++

	hash, err := hashEntry(e)
	if err != nil {
		return Entry{}, err
	}
	e.Hash = hash

	s.entries[e.ID] = e
	s.order = append(s.order, e.ID)
	s.tip = e.Hash
	s.byTx[e.TransactionID] = append(s.byTx[e.TransactionID], e.ID)

	if s.cycleSeen[e.GrantCycleID] == nil {
		s.cycleSeen[e.GrantCycleID] = make(map[string]bool)
	}
	if e.TransactionID != "" && !s.cycleSeen[e.GrantCycleID][e.TransactionID] {
		s.cycleSeen[e.GrantCycleID][e.TransactionID] = true
		s.byCycle[e.GrantCycleID] = append(s.byCycle[e.GrantCycleID], e.TransactionID)
	}

	return e, nil
}

// AppendBatch stages every draft into a chained sequence of entries
// off the current tip, without making any of it visible, then invokes
// validate on the staged (not-yet-stored) entries. If validate returns
// an error, the store is left completely untouched — no entries are
// appended and the tip does not move. Only on success are the entries
// committed atomically and the tip advanced.
//
// This is the spec.md §9 "safe redesign" for the otherwise-unspecified
// partial-append/rewind question: entries are staged in a scratch
// buffer and appended atomically on validation success, so a
// validation failure never leaves orphaned chained entries behind.
func (s *EntryStore) AppendBatch(drafts []EntryDraft, validate func([]Entry) error) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip := s.tip
	seq := s.nextSeq
	now := time.Now().UTC()

	staged := make([]Entry, 0, len(drafts))
	for _, d := range drafts {
		e := Entry{
			ID:            newID(),
			Timestamp:     now,
			GrantCycleID:  d.GrantCycleID,
			TransactionID: d.TransactionID,
			Account:       d.Account,
			Amount:        d.Amount,
			Currency:      d.Currency,
			EntryType:     d.EntryType,
			Description:   d.Description,
			Metadata:      d.Metadata,
			ZKProof:       d.ZKProof,
			Status:        EntryPending,
			creationSeq:   seq,
		}
		if tip != "" {
			e.PreviousHash = tip
		}
		seq++

		hash, err := hashEntry(e)
		if err != nil {
			return nil, err
		}
		e.Hash = hash
		tip = hash

		staged = append(staged, e)
	}

	if validate != nil {
		if err := validate(staged); err != nil {
			return nil, err
		}
	}

	for _, e := range staged {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
		s.byTx[e.TransactionID] = append(s.byTx[e.TransactionID], e.ID)

		if s.cycleSeen[e.GrantCycleID] == nil {
			s.cycleSeen[e.GrantCycleID] = make(map[string]bool)
		}
		if e.TransactionID != "" && !s.cycleSeen[e.GrantCycleID][e.TransactionID] {
			s.cycleSeen[e.GrantCycleID][e.TransactionID] = true
			s.byCycle[e.GrantCycleID] = append(s.byCycle[e.GrantCycleID], e.TransactionID)
		}
	}
	s.tip = tip
	s.nextSeq = seq

	return staged, nil
}

// Get returns the entry for id, or false if it does not exist.
func (s *EntryStore) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// ByTransaction returns the entries belonging to txID, ordered by
// timestamp ascending (spec.md §4.2).
func (s *EntryStore) ByTransaction(txID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTx[txID]
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id])
	}
	sortEntriesByOrder(out)
	return out
}

// ByGrantCycle returns the ids of transactions that have at least one
// entry under cycleID, in first-seen order.
func (s *EntryStore) ByGrantCycle(cycleID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byCycle[cycleID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// All returns every entry ordered by (timestamp ascending, creation
// sequence), the order spec.md §4.7 walks for verification.
func (s *EntryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	sortEntriesByOrder(out)
	return out
}

// Tip returns the current chain tip hash, or "" if the store is empty.
func (s *EntryStore) Tip() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip
}

// entryTerminal reports whether an entry status is terminal.
func entryTerminal(st EntryStatus) bool {
	return st == EntryConfirmed || st == EntryRejected || st == EntryCancelled
}

// SetStatus transitions id's status per the Entry state machine:
// PENDING -> {CONFIRMED, REJECTED, CANCELLED}; CONFIRMED is terminal.
// Moving out of any terminal state fails with IllegalEntryTransition.
func (s *EntryStore) SetStatus(id string, status EntryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return &NotFoundError{Kind: "entry", ID: id}
	}
	if entryTerminal(e.Status) {
		return &IllegalEntryTransitionError{EntryID: id, From: e.Status, To: status}
	}
	e.Status = status
	s.entries[id] = e
	return nil
}

// AppendSignature adds sig to entry id's signature list. This is the
// sole exception to post-CONFIRMED entry immutability (spec.md §3
// invariant 1): signatures may still be appended once the parent
// transaction's StateMachine advances, even after the entry reaches
// CONFIRMED.
func (s *EntryStore) AppendSignature(id string, sig Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return &NotFoundError{Kind: "entry", ID: id}
	}
	e.Signatures = append(e.Signatures, sig)
	s.entries[id] = e
	return nil
}

// sortEntriesByOrder sorts in place by (Timestamp ascending, creation
// sequence ascending), the total order spec.md §3 invariant 3 and §4.7
// require.
func sortEntriesByOrder(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].creationSeq < entries[j].creationSeq
	})
}
