// Copyright 2025 OpenGrantStack
//
// Validator performs structural and business-rule checks over entries
// and transactions, plus an optional policy overlay (spec.md §4.3).
// All checks are pure; no I/O.

package ledger

import (
	"fmt"
	"regexp"
	"time"
)

var (
	uuidV4Pattern    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	entryAmountRe    = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
	txAmountRe       = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	currencyCodeRe   = regexp.MustCompile(`^[A-Z]{3}$`)
	hashHexRe        = regexp.MustCompile(`^[a-f0-9]{64}$`)
)

const (
	maxEntryDescriptionLen = 1000
	maxTxDescriptionLen    = 2000
	minEntriesPerTx        = 2
	minRequiredSignatures  = 1
	maxRequiredSignatures  = 10
)

// ValidationResult is the outcome of a Validator pass (spec.md §4.3).
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// merge folds other's errors/warnings into r, prefixing each with
// prefix (spec.md §4.3: "entry errors are prefixed with the entry id").
func (r *ValidationResult) merge(prefix string, other *ValidationResult) {
	for _, e := range other.Errors {
		r.addError("%s: %s", prefix, e)
	}
	for _, w := range other.Warnings {
		r.addWarning("%s: %s", prefix, w)
	}
}

// ValidatorConfig supplies the business-rule parameters the Validator
// enforces (spec.md §6.5 configuration surface).
type ValidatorConfig struct {
	SupportedCurrencies map[string]bool
	MaxTransactionAmount Money
}

// Validator performs spec.md §4.3's structural and business checks.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator constructs a Validator bound to cfg.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateLedgerEntry performs structural and business checks on a
// single entry, independent of its parent transaction's balance.
func (v *Validator) ValidateLedgerEntry(e Entry) *ValidationResult {
	r := newValidationResult()

	if !uuidV4Pattern.MatchString(e.ID) {
		r.addError("id is not a valid UUIDv4")
	}
	if e.Timestamp.IsZero() {
		r.addError("timestamp is required")
	}
	if !entryAmountRe.MatchString(e.Amount.String()) {
		r.addError("amount %q does not match required format", e.Amount.String())
	}
	if !currencyCodeRe.MatchString(e.Currency) {
		r.addError("currency %q is not a valid ISO-4217 code", e.Currency)
	}
	if e.Hash != "" && !hashHexRe.MatchString(e.Hash) {
		r.addError("hash %q is not 64 lowercase hex characters", e.Hash)
	}
	if len(e.Description) > maxEntryDescriptionLen {
		r.addError("description exceeds %d characters", maxEntryDescriptionLen)
	}
	if !e.EntryType.IsValid() {
		r.addError("entryType %q is not recognized", e.EntryType)
	}
	if !e.Account.Type.IsValid() {
		r.addError("account type %q is not recognized", e.Account.Type)
	}
	if !e.Account.Owner.Type.IsValid() {
		r.addError("owner type %q is not recognized", e.Account.Owner.Type)
	}
	if zr := ValidateZKProof(e.ZKProof); !zr.Valid {
		for _, msg := range zr.Errors {
			r.addError("%s", msg)
		}
	}

	// Business rules.
	if e.Amount.Cmp(Zero) <= 0 {
		r.addError("amount must be strictly positive")
	}
	if v.cfg.SupportedCurrencies != nil && !v.cfg.SupportedCurrencies[e.Currency] {
		r.addWarning("currency %q is not in the supported currency set", e.Currency)
	}
	if !v.cfg.MaxTransactionAmount.IsZero() && e.Amount.Abs().Cmp(v.cfg.MaxTransactionAmount) > 0 {
		r.addError("amount %s exceeds configured maximum %s", e.Amount, v.cfg.MaxTransactionAmount)
	}

	return r
}

// ValidateTransaction performs structural and business checks on tx
// given its resolved entries, including balance and currency-uniformity
// invariants (spec.md §3 invariants 4-6).
func (v *Validator) ValidateTransaction(tx Transaction, entries []Entry) *ValidationResult {
	r := newValidationResult()

	if !uuidV4Pattern.MatchString(tx.ID) {
		r.addError("id is not a valid UUIDv4")
	}
	if !txAmountRe.MatchString(tx.TotalAmount.String()) {
		r.addError("totalAmount %q does not match required format", tx.TotalAmount.String())
	}
	if !currencyCodeRe.MatchString(tx.Currency) {
		r.addError("currency %q is not a valid ISO-4217 code", tx.Currency)
	}
	if len(tx.Description) > maxTxDescriptionLen {
		r.addError("description exceeds %d characters", maxTxDescriptionLen)
	}
	if !tx.TransactionType.IsValid() {
		r.addError("transactionType %q is not recognized", tx.TransactionType)
	}
	if len(entries) < minEntriesPerTx {
		r.addError("transaction requires at least %d entries, has %d", minEntriesPerTx, len(entries))
	}
	if tx.RequiredSignatures < minRequiredSignatures || tx.RequiredSignatures > maxRequiredSignatures {
		r.addError("requiredSignatures %d is outside [%d,%d]", tx.RequiredSignatures, minRequiredSignatures, maxRequiredSignatures)
	}

	for _, e := range entries {
		er := v.ValidateLedgerEntry(e)
		r.merge(e.ID, er)
	}

	currencies := map[string]bool{}
	var credit, debit Money
	for _, e := range entries {
		currencies[e.Currency] = true
		switch {
		case e.EntryType == EntryCredit:
			credit = credit.Add(e.Amount)
		default:
			// ADJUSTMENT treated as DEBIT for balancing, per spec.md §4.4
			// and the verbatim-preserved ambiguity in §9.
			debit = debit.Add(e.Amount)
		}
	}
	if len(currencies) > 1 {
		r.addError("entries use more than one currency")
	}
	net := credit.Sub(debit)
	tolerance := MustParseMoney("0.01")
	if !net.WithinTolerance(tolerance) {
		r.addError("transaction does not balance: net %s", net)
	}
	if credit.Cmp(tx.TotalAmount) != 0 {
		r.addError("totalAmount %s does not match sum of credits %s", tx.TotalAmount, credit)
	}
	if len(tx.ReceivedSignatures) > tx.RequiredSignatures {
		r.addWarning("receivedSignatures (%d) exceeds requiredSignatures (%d)", len(tx.ReceivedSignatures), tx.RequiredSignatures)
	}

	return r
}

// Policy is the optional validation overlay referenced by
// Transaction.PolicyID (spec.md §4.3, §9 supplement).
type Policy struct {
	ID                     string
	AllowedTransactionTypes map[TransactionType]bool
	MaxAmount              Money
	BusinessHoursStart     time.Duration // offset from midnight UTC, inclusive
	BusinessHoursEnd       time.Duration // offset from midnight UTC, inclusive
	BeneficiaryBlocklist   map[string]bool
}

// ValidateAgainstPolicies checks tx and its entries against policy,
// returning warnings (not errors) for anything advisory, per spec.md
// §4.3 ("warning only when outside business-hour window").
func (v *Validator) ValidateAgainstPolicies(tx Transaction, entries []Entry, policy Policy) *ValidationResult {
	r := newValidationResult()

	if policy.AllowedTransactionTypes != nil && !policy.AllowedTransactionTypes[tx.TransactionType] {
		r.addError("transaction type %q is not permitted by policy %s", tx.TransactionType, policy.ID)
	}
	if !policy.MaxAmount.IsZero() && tx.TotalAmount.Cmp(policy.MaxAmount) > 0 {
		r.addError("totalAmount %s exceeds policy %s maximum %s", tx.TotalAmount, policy.ID, policy.MaxAmount)
	}

	if policy.BusinessHoursEnd > 0 || policy.BusinessHoursStart > 0 {
		offset := time.Duration(tx.Timestamp.UTC().Hour())*time.Hour +
			time.Duration(tx.Timestamp.UTC().Minute())*time.Minute
		if offset < policy.BusinessHoursStart || offset > policy.BusinessHoursEnd {
			r.addWarning("transaction timestamp %s falls outside policy %s business hours", tx.Timestamp.UTC().Format(time.RFC3339), policy.ID)
		}
	}

	if policy.BeneficiaryBlocklist != nil {
		for _, e := range entries {
			if e.Account.Type == AccountBeneficiary && policy.BeneficiaryBlocklist[e.Account.Owner.ID] {
				r.addError("beneficiary %s is blocked by policy %s", e.Account.Owner.ID, policy.ID)
			}
		}
	}

	return r
}
