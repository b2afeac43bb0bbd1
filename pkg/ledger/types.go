// Copyright 2025 OpenGrantStack
//
// Package ledger implements the append-only, hash-chained double-entry
// ledger engine for grant disbursement: entry construction, chain
// linking, balanced transaction assembly, multi-signature approval, and
// end-to-end integrity verification.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AccountType identifies the role an account plays in a transaction.
type AccountType string

const (
	AccountFunding        AccountType = "FUNDING"
	AccountDisbursement   AccountType = "DISBURSEMENT"
	AccountBeneficiary    AccountType = "BENEFICIARY"
	AccountAdministrative AccountType = "ADMINISTRATIVE"
	AccountReserve        AccountType = "RESERVE"
)

// IsValid reports whether a is a known account type.
func (a AccountType) IsValid() bool {
	switch a {
	case AccountFunding, AccountDisbursement, AccountBeneficiary, AccountAdministrative, AccountReserve:
		return true
	default:
		return false
	}
}

// OwnerType identifies the kind of entity that owns an account.
type OwnerType string

const (
	OwnerOrganization OwnerType = "ORGANIZATION"
	OwnerIndividual   OwnerType = "INDIVIDUAL"
	OwnerSystem       OwnerType = "SYSTEM"
)

// IsValid reports whether o is a known owner type.
func (o OwnerType) IsValid() bool {
	switch o {
	case OwnerOrganization, OwnerIndividual, OwnerSystem:
		return true
	default:
		return false
	}
}

// Owner describes the entity behind an account.
type Owner struct {
	ID   string    `json:"id"`
	Type OwnerType `json:"type"`
	Name string    `json:"name,omitempty"`
}

// Account is the credit/debit party of an entry.
type Account struct {
	ID    string      `json:"id"`
	Type  AccountType `json:"type"`
	Owner Owner       `json:"owner"`
}

// EntryType classifies the movement an entry represents.
type EntryType string

const (
	EntryDebit      EntryType = "DEBIT"
	EntryCredit     EntryType = "CREDIT"
	EntryAdjustment EntryType = "ADJUSTMENT"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryDebit, EntryCredit, EntryAdjustment:
		return true
	default:
		return false
	}
}

// EntryStatus is the lifecycle state of a single Entry.
type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryConfirmed EntryStatus = "CONFIRMED"
	EntryRejected  EntryStatus = "REJECTED"
	EntryCancelled EntryStatus = "CANCELLED"
)

// SignatureType identifies the cryptographic scheme of a Signature.
type SignatureType string

const (
	SignatureECDSA SignatureType = "ECDSA"
	SignatureEdDSA SignatureType = "EdDSA"
	SignatureRSA   SignatureType = "RSA"
)

// Signature is one signer's attestation over an Entry or Transaction.
type Signature struct {
	Signer        string        `json:"signer"`
	Signature     string        `json:"signature"`
	Timestamp     time.Time     `json:"timestamp"`
	SignatureType SignatureType `json:"signatureType"`
}

// ZKProofDescriptor is a structural placeholder for an attached
// zero-knowledge proof. The core never constructs or verifies proofs —
// it only stores and structurally validates this descriptor. See
// pkg/zkproof for a concrete, out-of-core provider.
type ZKProofDescriptor struct {
	CircuitID    string   `json:"circuitId"`
	Proof        string   `json:"proof"`        // hex-encoded proof bytes
	PublicInputs []string `json:"publicInputs"` // hex-encoded public inputs
}

// Entry is a single atomic credit/debit/adjustment record, owned
// exclusively by the EntryStore once appended.
type Entry struct {
	ID              string             `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	GrantCycleID    string             `json:"grantCycleId"`
	TransactionID   string             `json:"transactionId"`
	Account         Account            `json:"account"`
	Amount          Money              `json:"amount"`
	Currency        string             `json:"currency"`
	EntryType       EntryType          `json:"entryType"`
	Description     string             `json:"description"`
	Metadata        map[string]string  `json:"metadata,omitempty"`
	PreviousHash    string             `json:"previousHash,omitempty"`
	Hash            string             `json:"hash"`
	Signatures      []Signature        `json:"signatures"`
	ZKProof         *ZKProofDescriptor `json:"zkProof,omitempty"`
	Status          EntryStatus        `json:"status"`
	creationSeq     uint64             // tiebreaker for entries sharing a timestamp
}

// CreationSequence returns the monotonic append order of the entry,
// used only to break timestamp ties when ordering the chain.
func (e Entry) CreationSequence() uint64 { return e.creationSeq }

// TransactionType classifies the economic event a Transaction represents.
type TransactionType string

const (
	TxAllocation   TransactionType = "ALLOCATION"
	TxDisbursement TransactionType = "DISBURSEMENT"
	TxReturn       TransactionType = "RETURN"
	TxAdjustment   TransactionType = "ADJUSTMENT"
	TxClosure      TransactionType = "CLOSURE"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TxAllocation, TxDisbursement, TxReturn, TxAdjustment, TxClosure:
		return true
	default:
		return false
	}
}

// TransactionStatus is the approval-state-machine state of a Transaction.
type TransactionStatus string

const (
	TxDraft             TransactionStatus = "DRAFT"
	TxPendingApproval   TransactionStatus = "PENDING_APPROVAL"
	TxApproved          TransactionStatus = "APPROVED"
	TxExecuted          TransactionStatus = "EXECUTED"
	TxRejected          TransactionStatus = "REJECTED"
	TxCancelled         TransactionStatus = "CANCELLED"
)

// AuditEntry is one append-only record in a Transaction's audit trail.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details,omitempty"`
}

// BlockchainMetadata records the outcome of a sink submission.
type BlockchainMetadata struct {
	Blockchain    string `json:"blockchain"`
	TxHash        string `json:"txHash"`
	BlockNumber   uint64 `json:"blockNumber,omitempty"`
	GasUsed       uint64 `json:"gasUsed,omitempty"`
	Confirmations uint64 `json:"confirmations,omitempty"`
}

// Transaction is a balanced bundle of entries representing one
// economic event. Entry ownership lives in the EntryStore; Transaction
// holds only the ordered entry ids.
type Transaction struct {
	ID                  string              `json:"id"`
	Timestamp           time.Time           `json:"timestamp"`
	GrantCycleID        string              `json:"grantCycleId"`
	TransactionType     TransactionType     `json:"transactionType"`
	Description         string              `json:"description"`
	EntryIDs            []string            `json:"entryIds"`
	TotalAmount         Money               `json:"totalAmount"`
	Currency            string              `json:"currency"`
	PolicyID            string              `json:"policyId,omitempty"`
	RequiredSignatures  int                 `json:"requiredSignatures"`
	ReceivedSignatures  []string            `json:"receivedSignatures"`
	Status              TransactionStatus   `json:"status"`
	ExecutionTimestamp  *time.Time          `json:"executionTimestamp,omitempty"`
	Blockchain          *BlockchainMetadata `json:"blockchain,omitempty"`
	AuditTrail          []AuditEntry        `json:"auditTrail"`
}

// HasSigner reports whether signer already appears in ReceivedSignatures.
func (t *Transaction) HasSigner(signer string) bool {
	for _, s := range t.ReceivedSignatures {
		if s == signer {
			return true
		}
	}
	return false
}

// Balance is a derived, signed account balance for one currency.
type Balance struct {
	AccountID string    `json:"accountId"`
	Balance   Money     `json:"balance"`
	Currency  string    `json:"currency"`
	AsOf      time.Time `json:"asOf"`
	Verified  bool      `json:"verified"`
}

// GrantCycleStatus is the lifecycle state of a GrantCycle envelope.
type GrantCycleStatus string

const (
	CycleActive   GrantCycleStatus = "ACTIVE"
	CycleClosed   GrantCycleStatus = "CLOSED"
	CycleArchived GrantCycleStatus = "ARCHIVED"
)

// GrantCycle is a reference envelope grouping related transactions.
// Its own lifecycle is managed outside the core; the core only reads
// its id to index entries and transactions.
type GrantCycle struct {
	ID          string           `json:"id"`
	GrantID     string           `json:"grantId"`
	StartDate   time.Time        `json:"startDate"`
	EndDate     time.Time        `json:"endDate"`
	TotalAmount Money            `json:"totalAmount"`
	Currency    string           `json:"currency"`
	Status      GrantCycleStatus `json:"status"`
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// newID returns a random 128-bit v4 UUID string, the id scheme used
// throughout the entry and transaction model.
func newID() string {
	return uuid.NewString()
}
