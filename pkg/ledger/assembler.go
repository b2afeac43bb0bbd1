// Copyright 2025 OpenGrantStack
//
// TransactionAssembler constructs balanced transactions and links their
// entries into the chain (spec.md §4.4).

package ledger

import (
	"time"
)

// EntryDescriptor is the caller-supplied shape for one entry of a
// to-be-assembled transaction.
type EntryDescriptor struct {
	Account     Account
	Amount      Money
	Currency    string
	EntryType   EntryType
	Description string
	Metadata    map[string]string
	ZKProof     *ZKProofDescriptor
}

// signedMagnitude returns d's contribution to the balance check: +1 for
// CREDIT, -1 for everything else (including ADJUSTMENT). spec.md §9
// flags this as an unresolved ambiguity in the source and instructs
// implementers to preserve it verbatim rather than guess a "fairer"
// rule.
func signedMagnitude(d EntryDescriptor) Money {
	if d.EntryType == EntryCredit {
		return d.Amount
	}
	return d.Amount.Neg()
}

// TransactionAssembler builds balanced, chained transactions and hands
// them to the Validator before returning a DRAFT Transaction
// (spec.md §4.4).
type TransactionAssembler struct {
	store              *EntryStore
	validator          *Validator
	requiredSignatures int
}

// NewTransactionAssembler constructs an assembler bound to store and
// validator, using requiredSignatures as every new transaction's
// approval threshold (spec.md §6.5 configuration surface).
func NewTransactionAssembler(store *EntryStore, validator *Validator, requiredSignatures int) *TransactionAssembler {
	return &TransactionAssembler{store: store, validator: validator, requiredSignatures: requiredSignatures}
}

// CreateTransaction performs, in order: balance check, chained entry
// creation, total aggregation, Transaction construction, and Validator
// acceptance (spec.md §4.4, steps 1-6).
//
// Per spec.md §9's "safe redesign" for the unspecified rewind question,
// entries are only appended to the store after the balance check and
// the post-construction Validator pass both succeed; a failure never
// advances the chain tip.
func (a *TransactionAssembler) CreateTransaction(grantCycleID string, txType TransactionType, descriptors []EntryDescriptor, description string, policyID string) (Transaction, []Entry, error) {
	// Step 1: balance check, before anything touches the store.
	var net Money
	for _, d := range descriptors {
		net = net.Add(signedMagnitude(d))
	}
	tolerance := MustParseMoney("0.01")
	if !net.WithinTolerance(tolerance) {
		return Transaction{}, nil, &UnbalancedEntriesError{Net: net}
	}

	txID := newID()

	drafts := make([]EntryDraft, len(descriptors))
	for i, d := range descriptors {
		drafts[i] = EntryDraft{
			GrantCycleID:  grantCycleID,
			TransactionID: txID,
			Account:       d.Account,
			Amount:        d.Amount,
			Currency:      d.Currency,
			EntryType:     d.EntryType,
			Description:   d.Description,
			Metadata:      d.Metadata,
			ZKProof:       d.ZKProof,
		}
	}

	var tx Transaction
	var validationErr error

	// Steps 2-5 run inside AppendBatch's validate callback so that a
	// Validator rejection leaves the chain tip untouched (spec.md §9
	// "safe redesign").
	entries, err := a.store.AppendBatch(drafts, func(staged []Entry) error {
		// Step 3: aggregate CREDIT magnitudes into totalAmount.
		var total Money
		for _, e := range staged {
			if e.EntryType == EntryCredit {
				total = total.Add(e.Amount)
			}
		}

		currency := ""
		if len(staged) > 0 {
			currency = staged[0].Currency
		}

		// Step 4: construct the DRAFT transaction.
		tx = Transaction{
			ID:                 txID,
			Timestamp:          time.Now().UTC(),
			GrantCycleID:       grantCycleID,
			TransactionType:    txType,
			Description:        description,
			EntryIDs:           entryIDs(staged),
			TotalAmount:        total,
			Currency:           currency,
			PolicyID:           policyID,
			RequiredSignatures: a.requiredSignatures,
			ReceivedSignatures: []string{},
			Status:             TxDraft,
			AuditTrail: []AuditEntry{
				{Timestamp: time.Now().UTC(), Action: "CREATED", Actor: "system"},
			},
		}

		// Step 5: Validator acceptance.
		result := a.validator.ValidateTransaction(tx, staged)
		if !result.Valid {
			validationErr = &ValidationFailedError{Errors: result.Errors}
			return validationErr
		}
		return nil
	})
	if err != nil {
		if validationErr != nil {
			return Transaction{}, nil, validationErr
		}
		return Transaction{}, nil, err
	}

	return tx, entries, nil
}

func entryIDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
