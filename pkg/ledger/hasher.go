// Copyright 2025 OpenGrantStack
//
// Canonical serialization and hashing for chain entries.
//
// The source this spec was distilled from sorts JSON object keys only
// at the top level, leaving nested object key order as JSON.Marshal
// produced it (Go's encoding/json already sorts map keys, but struct
// field order is preserved as declared). That quirk is load-bearing for
// hash compatibility and is reproduced exactly here rather than
// "fixed" with a fully-recursive canonicalizer — see pkg/commitment in
// the teacher repo for the fully-recursive version this deliberately
// does not match.

package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// hashableEntry is the subset of Entry fields that participate in the
// hash: everything except hash, signatures, status, and the internal
// creation sequence (spec.md §4.1).
type hashableEntry struct {
	ID           string             `json:"id"`
	Timestamp    string             `json:"timestamp"`
	GrantCycleID string             `json:"grantCycleId"`
	TransactionID string            `json:"transactionId"`
	Account      Account            `json:"account"`
	Amount       string             `json:"amount"`
	Currency     string             `json:"currency"`
	EntryType    EntryType          `json:"entryType"`
	Description  string             `json:"description"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
	PreviousHash string             `json:"previousHash,omitempty"`
	ZKProof      *ZKProofDescriptor `json:"zkProof,omitempty"`
}

// canonicalPayload renders e's hashable fields as JSON with keys sorted
// lexicographically at the top level only; nested structs (Account,
// ZKProofDescriptor) keep their declared field order, and the nested
// Metadata map comes out key-sorted because encoding/json sorts map
// keys.
func canonicalPayload(e Entry) ([]byte, error) {
	h := hashableEntry{
		ID:            e.ID,
		Timestamp:     e.Timestamp.UTC().Format(rfc3339Micro),
		GrantCycleID:  e.GrantCycleID,
		TransactionID: e.TransactionID,
		Account:       e.Account,
		Amount:        e.Amount.String(),
		Currency:      e.Currency,
		EntryType:     e.EntryType,
		Description:   e.Description,
		Metadata:      e.Metadata,
		PreviousHash:  e.PreviousHash,
		ZKProof:       e.ZKProof,
	}

	raw, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(generic))
	for k := range generic {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, generic[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

const rfc3339Micro = "2006-01-02T15:04:05.000000Z07:00"

// hashEntry computes the hex-encoded SHA-256 digest of e's canonical
// payload (spec.md §4.1, invariant P1).
func hashEntry(e Entry) (string, error) {
	payload, err := canonicalPayload(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// merkleRoot computes SHA-256 of the concatenation of entry hashes in
// entry order, the payload BlockchainSink.submit expects (spec.md §6.2).
func merkleRoot(entryHashes []string) string {
	h := sha256.New()
	for _, eh := range entryHashes {
		decoded, err := hex.DecodeString(eh)
		if err != nil {
			// Defensive: a malformed stored hash should never reach
			// here past the Validator, but never panic on it.
			h.Write([]byte(eh))
			continue
		}
		h.Write(decoded)
	}
	return hex.EncodeToString(h.Sum(nil))
}
