package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeSink is a BlockchainSink test double that anchors successfully
// unless failSubmit or failVerify is set, recording every accepted
// submission.
type fakeSink struct {
	submissions []Transaction
	failSubmit  bool
	failVerify  bool
}

func (f *fakeSink) Submit(_ context.Context, tx Transaction, merkleRoot string) (string, error) {
	if f.failSubmit {
		return "", fmt.Errorf("simulated submit failure")
	}
	f.submissions = append(f.submissions, tx)
	return "0xfakehash:" + merkleRoot[:8], nil
}

func (f *fakeSink) Verify(_ context.Context, txHash string) (bool, error) {
	if f.failVerify {
		return false, nil
	}
	return true, nil
}

func (f *fakeSink) Metadata(_ context.Context, txHash string) (BlockchainMetadata, error) {
	return BlockchainMetadata{Blockchain: "fakechain", TxHash: txHash, BlockNumber: 1}, nil
}

func testEngine(sink BlockchainSink) *Engine {
	cfg := Config{
		RequiredSignatures:   2,
		SupportedCurrencies:  []string{"USD", "EUR"},
		MaxTransactionAmount: MustParseMoney("1000000.00"),
		DefaultCurrency:      "USD",
		EnableMultiSignature: true,
	}
	opts := []Option{}
	if sink != nil {
		opts = append(opts, WithSink(sink))
	}
	return New(cfg, opts...)
}

func fundingAccount() Account {
	return Account{ID: "acct-funding-1", Type: AccountFunding, Owner: Owner{ID: "org-1", Type: OwnerOrganization}}
}

func beneficiaryAccount() Account {
	return Account{ID: "acct-beneficiary-1", Type: AccountBeneficiary, Owner: Owner{ID: "person-1", Type: OwnerIndividual}}
}

func balancedDescriptors(amount string) []EntryDescriptor {
	return []EntryDescriptor{
		{Account: fundingAccount(), Amount: MustParseMoney(amount), Currency: "USD", EntryType: EntryDebit},
		{Account: beneficiaryAccount(), Amount: MustParseMoney(amount), Currency: "USD", EntryType: EntryCredit},
	}
}

// TestSimpleAllocation covers scenario 1: a balanced two-entry
// allocation assembles cleanly into a DRAFT transaction.
func TestSimpleAllocation(t *testing.T) {
	e := testEngine(&fakeSink{})

	tx, entries, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("500.00"), "initial allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Status != TxDraft {
		t.Errorf("expected DRAFT status, got %s", tx.Status)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if tx.TotalAmount.String() != "500.00" {
		t.Errorf("expected totalAmount 500.00, got %s", tx.TotalAmount)
	}
	if entries[1].PreviousHash != entries[0].Hash {
		t.Error("second entry does not chain off the first entry's hash")
	}
}

// TestUnbalancedEntriesRejected covers scenario 2: entries whose net
// magnitude exceeds tolerance are rejected before anything is appended.
func TestUnbalancedEntriesRejected(t *testing.T) {
	e := testEngine(&fakeSink{})

	descriptors := []EntryDescriptor{
		{Account: fundingAccount(), Amount: MustParseMoney("500.00"), Currency: "USD", EntryType: EntryDebit},
		{Account: beneficiaryAccount(), Amount: MustParseMoney("400.00"), Currency: "USD", EntryType: EntryCredit},
	}

	_, _, err := e.CreateTransaction("cycle-1", TxAllocation, descriptors, "unbalanced", "")
	if err == nil {
		t.Fatal("expected an error for unbalanced entries")
	}
	if !errors.As(err, new(*UnbalancedEntriesError)) {
		t.Errorf("expected *UnbalancedEntriesError, got %T: %v", err, err)
	}

	if got := e.store.Tip(); got != "" {
		t.Errorf("expected chain tip untouched after rejection, got %q", got)
	}
}

// TestMultiSignaturePromotion covers scenario 3: a transaction moves
// DRAFT -> PENDING_APPROVAL -> APPROVED only once its signature
// threshold is met.
func TestMultiSignaturePromotion(t *testing.T) {
	e := testEngine(&fakeSink{})
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("250.00"), "two-signer allocation", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	tx, err = e.Submit(tx.ID, "ops-user")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tx.Status != TxPendingApproval {
		t.Fatalf("expected PENDING_APPROVAL, got %s", tx.Status)
	}

	tx, err = e.AddSignature(ctx, tx.ID, "signer-a", "sig-a-bytes", SignatureECDSA)
	if err != nil {
		t.Fatalf("AddSignature(signer-a): %v", err)
	}
	if tx.Status != TxPendingApproval {
		t.Fatalf("expected still PENDING_APPROVAL after one of two signatures, got %s", tx.Status)
	}

	if _, err := e.AddSignature(ctx, tx.ID, "signer-a", "sig-again", SignatureECDSA); !errors.Is(err, ErrDuplicateSigner) {
		t.Errorf("expected duplicate signer to be rejected with ErrDuplicateSigner, got %v", err)
	}

	tx, err = e.AddSignature(ctx, tx.ID, "signer-b", "sig-b-bytes", SignatureECDSA)
	if err != nil {
		t.Fatalf("AddSignature(signer-b): %v", err)
	}
	if tx.Status != TxApproved {
		t.Fatalf("expected APPROVED once threshold met, got %s", tx.Status)
	}
}

// TestExecutionUpdatesBalances covers scenario 4: executing an approved
// transaction submits to the sink, confirms every entry, and updates
// the balance index exactly once.
func TestExecutionUpdatesBalances(t *testing.T) {
	sink := &fakeSink{}
	e := testEngine(sink)
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxDisbursement, balancedDescriptors("300.00"), "disbursement", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx, err = e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tx, err = e.AddSignature(ctx, tx.ID, "signer-a", "sig-a", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature(signer-a): %v", err)
	}
	if tx, err = e.AddSignature(ctx, tx.ID, "signer-b", "sig-b", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature(signer-b): %v", err)
	}
	if tx.Status != TxApproved {
		t.Fatalf("expected APPROVED before execution, got %s", tx.Status)
	}

	tx, err = e.Execute(ctx, tx.ID, "ops-user")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if tx.Status != TxExecuted {
		t.Fatalf("expected EXECUTED, got %s", tx.Status)
	}
	if tx.Blockchain == nil || tx.Blockchain.Blockchain != "fakechain" {
		t.Error("expected blockchain metadata to be attached")
	}
	if len(sink.submissions) != 1 {
		t.Fatalf("expected exactly one sink submission, got %d", len(sink.submissions))
	}

	fundingBalance := e.GetAccountBalance(fundingAccount().ID, "USD")
	if fundingBalance.Balance.String() != "-300.00" {
		t.Errorf("expected funding account balance -300.00, got %s", fundingBalance.Balance)
	}
	beneficiaryBalance := e.GetAccountBalance(beneficiaryAccount().ID, "USD")
	if beneficiaryBalance.Balance.String() != "300.00" {
		t.Errorf("expected beneficiary balance 300.00, got %s", beneficiaryBalance.Balance)
	}
}

// TestSinkFailureRejectsTransaction: a submission failure moves the
// transaction to REJECTED rather than leaving it stuck in APPROVED.
func TestSinkFailureRejectsTransaction(t *testing.T) {
	sink := &fakeSink{failSubmit: true}
	e := testEngine(sink)
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxDisbursement, balancedDescriptors("100.00"), "will fail", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx, err = e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tx, err = e.AddSignature(ctx, tx.ID, "signer-a", "sig-a", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature(signer-a): %v", err)
	}
	if tx, err = e.AddSignature(ctx, tx.ID, "signer-b", "sig-b", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature(signer-b): %v", err)
	}

	tx, err = e.Execute(ctx, tx.ID, "ops-user")
	if err == nil {
		t.Fatal("expected an error from a failing sink")
	}
	if tx.Status != TxRejected {
		t.Fatalf("expected REJECTED after sink failure, got %s", tx.Status)
	}
}

// TestChainTamperDetection covers scenario 5: mutating a stored
// entry's hash in place is caught by VerifyIntegrity.
func TestChainTamperDetection(t *testing.T) {
	e := testEngine(&fakeSink{})
	ctx := context.Background()

	tx, entries, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("200.00"), "tamper target", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	result := e.VerifyIntegrity(ctx)
	if !result.Valid {
		t.Fatalf("expected clean ledger to verify, got errors: %v", result.Errors)
	}

	// Reach into the store directly to simulate a tampered record —
	// something the public API never allows.
	tampered := entries[0]
	tampered.Hash = strings.Repeat("0", 64)
	e.store.mu.Lock()
	e.store.entries[tampered.ID] = tampered
	e.store.mu.Unlock()

	result = e.VerifyIntegrity(ctx)
	if result.Valid {
		t.Fatal("expected tampered entry to fail integrity verification")
	}
	if len(result.Errors) == 0 {
		t.Error("expected at least one integrity error to be reported")
	}
	_ = tx
}

// TestIdempotentBalanceDerivation covers scenario 6: clearing the
// balance cache and re-deriving from the entry store yields an
// identical result.
func TestIdempotentBalanceDerivation(t *testing.T) {
	e := testEngine(&fakeSink{})
	ctx := context.Background()

	tx, _, err := e.CreateTransaction("cycle-1", TxDisbursement, balancedDescriptors("75.00"), "idempotence check", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx, err = e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tx, err = e.AddSignature(ctx, tx.ID, "signer-a", "sig-a", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature(signer-a): %v", err)
	}
	if tx, err = e.AddSignature(ctx, tx.ID, "signer-b", "sig-b", SignatureECDSA); err != nil {
		t.Fatalf("AddSignature(signer-b): %v", err)
	}
	if _, err = e.Execute(ctx, tx.ID, "ops-user"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	first := e.GetAccountBalance(beneficiaryAccount().ID, "USD")
	e.ClearBalanceCache()
	second := e.GetAccountBalance(beneficiaryAccount().ID, "USD")

	if first.Balance.Cmp(second.Balance) != 0 {
		t.Errorf("expected derived balance to match cached balance: cached=%s derived=%s", first.Balance, second.Balance)
	}
}

// TestRejectAndCancel covers the REJECTED/CANCELLED terminal
// transitions and Cancel's trivial-success behavior for unknown ids.
func TestRejectAndCancel(t *testing.T) {
	e := testEngine(&fakeSink{})

	tx, _, err := e.CreateTransaction("cycle-1", TxAllocation, balancedDescriptors("50.00"), "to reject", "")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err = e.Submit(tx.ID, "ops-user"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rejected, err := e.Reject(tx.ID, "ops-user", "policy violation")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != TxRejected {
		t.Errorf("expected REJECTED, got %s", rejected.Status)
	}

	if _, err := e.Reject(tx.ID, "ops-user", "again"); err == nil {
		t.Error("expected rejecting a terminal transaction to fail")
	}

	if ok := e.Cancel("does-not-exist", "ops-user", "n/a"); !ok {
		t.Error("expected Cancel on an unknown id to report trivial success")
	}
}

// TestGrantCycleSummary exercises the EntryStore's grant-cycle index
// via Engine.GrantCycleSummary.
func TestGrantCycleSummary(t *testing.T) {
	e := testEngine(&fakeSink{})

	if _, _, err := e.CreateTransaction("cycle-9", TxAllocation, balancedDescriptors("1000.00"), "alloc", ""); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, _, err := e.CreateTransaction("cycle-9", TxDisbursement, balancedDescriptors("400.00"), "disb", ""); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	summary := e.GrantCycleSummary("cycle-9")
	if summary.TransactionCount != 2 {
		t.Errorf("expected 2 transactions, got %d", summary.TransactionCount)
	}
	if summary.AllocatedByCurrency["USD"].String() != "1400.00" {
		t.Errorf("expected allocated 1400.00, got %s", summary.AllocatedByCurrency["USD"])
	}
	if summary.DisbursedByCurrency["USD"].String() != "1400.00" {
		t.Errorf("expected disbursed 1400.00, got %s", summary.DisbursedByCurrency["USD"])
	}
}
