// Copyright 2025 OpenGrantStack
//
// Package ledger sentinel and structured errors. Errors carry the
// offending entity's id where the spec calls for it, and support
// errors.Is against the sentinels below.

package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Structured errors below wrap these so callers can
// use errors.Is(err, ledger.ErrValidationFailed) regardless of payload.
var (
	ErrUnbalancedEntries          = errors.New("entries do not balance")
	ErrCurrencyMismatch           = errors.New("entries use more than one currency")
	ErrValidationFailed           = errors.New("validation failed")
	ErrNotFound                   = errors.New("not found")
	ErrDuplicateSigner            = errors.New("signer already recorded")
	ErrIllegalEntryTransition     = errors.New("illegal entry status transition")
	ErrIllegalTransactionTransition = errors.New("illegal transaction status transition")
	ErrAmountOutOfRange           = errors.New("amount out of range")
	ErrSinkFailure                = errors.New("blockchain sink failure")
	ErrIntegrityViolation         = errors.New("integrity violation")
)

// UnbalancedEntriesError reports the net imbalance detected while
// assembling a transaction.
type UnbalancedEntriesError struct {
	Net Money
}

func (e *UnbalancedEntriesError) Error() string {
	return fmt.Sprintf("unbalanced entries: net %s", e.Net)
}

func (e *UnbalancedEntriesError) Unwrap() error { return ErrUnbalancedEntries }

// ValidationFailedError carries the full error list from a Validator
// run; it is never auto-retried by the core.
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// NotFoundError identifies the missing entity kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateSignerError names the signer and transaction already signed.
type DuplicateSignerError struct {
	TransactionID string
	Signer        string
}

func (e *DuplicateSignerError) Error() string {
	return fmt.Sprintf("signer %s already signed transaction %s", e.Signer, e.TransactionID)
}

func (e *DuplicateSignerError) Unwrap() error { return ErrDuplicateSigner }

// IllegalEntryTransitionError names the entry and the attempted move.
type IllegalEntryTransitionError struct {
	EntryID string
	From    EntryStatus
	To      EntryStatus
}

func (e *IllegalEntryTransitionError) Error() string {
	return fmt.Sprintf("entry %s cannot move from %s to %s", e.EntryID, e.From, e.To)
}

func (e *IllegalEntryTransitionError) Unwrap() error { return ErrIllegalEntryTransition }

// IllegalTransactionTransitionError names the transaction and the
// attempted move.
type IllegalTransactionTransitionError struct {
	TransactionID string
	From          TransactionStatus
	To            TransactionStatus
}

func (e *IllegalTransactionTransitionError) Error() string {
	return fmt.Sprintf("transaction %s cannot move from %s to %s", e.TransactionID, e.From, e.To)
}

func (e *IllegalTransactionTransitionError) Unwrap() error {
	return ErrIllegalTransactionTransition
}

// AmountOutOfRangeError names the entry and the configured ceiling.
type AmountOutOfRangeError struct {
	EntryID string
	Amount  Money
	Max     Money
}

func (e *AmountOutOfRangeError) Error() string {
	return fmt.Sprintf("entry %s amount %s exceeds maximum %s", e.EntryID, e.Amount, e.Max)
}

func (e *AmountOutOfRangeError) Unwrap() error { return ErrAmountOutOfRange }

// SinkFailureError wraps the underlying transport/submission error.
type SinkFailureError struct {
	TransactionID string
	Cause         error
}

func (e *SinkFailureError) Error() string {
	return fmt.Sprintf("sink failure for transaction %s: %v", e.TransactionID, e.Cause)
}

func (e *SinkFailureError) Unwrap() error { return ErrSinkFailure }

// IntegrityViolationError carries every violation found during a sweep.
type IntegrityViolationError struct {
	Violations []string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation: %s", strings.Join(e.Violations, "; "))
}

func (e *IntegrityViolationError) Unwrap() error { return ErrIntegrityViolation }
