package ledger

import (
	"testing"
	"time"
)

var referenceTime = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func validConfig() ValidatorConfig {
	return ValidatorConfig{
		SupportedCurrencies: map[string]bool{"USD": true, "EUR": true},
	}
}

func validEntryNoHash() Entry {
	return Entry{
		ID:        "11111111-1111-4111-8111-111111111111",
		Timestamp: referenceTime,
		Account:   fundingAccount(),
		Amount:    MustParseMoney("50.00"),
		Currency:  "USD",
		EntryType: EntryDebit,
	}
}

func validEntry() Entry {
	e := validEntryNoHash()
	h, err := hashEntry(e)
	if err != nil {
		panic(err)
	}
	e.Hash = h
	return e
}

func TestValidateLedgerEntry(t *testing.T) {
	v := NewValidator(validConfig())

	t.Run("accepts a well-formed entry", func(t *testing.T) {
		r := v.ValidateLedgerEntry(validEntry())
		if !r.Valid {
			t.Errorf("expected valid entry, got errors: %v", r.Errors)
		}
	})

	t.Run("rejects non-UUID id", func(t *testing.T) {
		e := validEntry()
		e.ID = "not-a-uuid"
		r := v.ValidateLedgerEntry(e)
		if r.Valid {
			t.Error("expected invalid result for malformed id")
		}
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		e := validEntry()
		e.Amount = Zero
		r := v.ValidateLedgerEntry(e)
		if r.Valid {
			t.Error("expected invalid result for zero amount")
		}
	})

	t.Run("rejects malformed currency code", func(t *testing.T) {
		e := validEntry()
		e.Currency = "dollars"
		r := v.ValidateLedgerEntry(e)
		if r.Valid {
			t.Error("expected invalid result for malformed currency")
		}
	})

	t.Run("warns rather than rejects unsupported currency", func(t *testing.T) {
		e := validEntry()
		e.Currency = "JPY"
		r := v.ValidateLedgerEntry(e)
		if !r.Valid {
			t.Error("expected unsupported currency to only warn, not invalidate")
		}
		if len(r.Warnings) == 0 {
			t.Error("expected a warning for unsupported currency")
		}
	})

	t.Run("enforces configured maximum amount", func(t *testing.T) {
		cfg := validConfig()
		cfg.MaxTransactionAmount = MustParseMoney("10.00")
		r := NewValidator(cfg).ValidateLedgerEntry(validEntry())
		if r.Valid {
			t.Error("expected amount exceeding configured maximum to be rejected")
		}
	})
}

func TestValidateTransactionCurrencyUniformity(t *testing.T) {
	v := NewValidator(validConfig())

	tx := Transaction{
		ID:                 "22222222-2222-4222-8222-222222222222",
		TransactionType:     TxAllocation,
		Currency:            "USD",
		TotalAmount:         MustParseMoney("100.00"),
		RequiredSignatures:  1,
		ReceivedSignatures:  []string{},
	}
	entries := []Entry{
		{ID: "33333333-3333-4333-8333-333333333333", Account: fundingAccount(), Amount: MustParseMoney("100.00"), Currency: "USD", EntryType: EntryDebit, Timestamp: referenceTime},
		{ID: "44444444-4444-4444-8444-444444444444", Account: beneficiaryAccount(), Amount: MustParseMoney("100.00"), Currency: "EUR", EntryType: EntryCredit, Timestamp: referenceTime},
	}

	r := v.ValidateTransaction(tx, entries)
	if r.Valid {
		t.Error("expected mixed-currency entries to fail validation")
	}
}

func TestValidateAgainstPoliciesBlocklist(t *testing.T) {
	v := NewValidator(validConfig())
	policy := Policy{
		ID:                   "policy-1",
		BeneficiaryBlocklist: map[string]bool{"person-1": true},
	}
	tx := Transaction{ID: "tx-1", TransactionType: TxDisbursement, Timestamp: referenceTime}
	entries := []Entry{{Account: beneficiaryAccount(), EntryType: EntryCredit}}

	r := v.ValidateAgainstPolicies(tx, entries, policy)
	if r.Valid {
		t.Error("expected blocklisted beneficiary to fail policy validation")
	}
}
