// Copyright 2025 OpenGrantStack
//
// BlockchainSink is the opaque external submission endpoint referenced
// by spec.md §6.2. The core depends only on this interface; it never
// knows which chain is behind it. See pkg/chainsink for a concrete
// EVM-backed implementation.

package ledger

import "context"

// BlockchainSink is the opaque external endpoint a transaction is
// submitted to on execution.
type BlockchainSink interface {
	// Submit sends the transaction (identified by its merkle root of
	// entry hashes, spec.md §6.2) and returns a chain-side tx hash.
	Submit(ctx context.Context, tx Transaction, merkleRoot string) (txHash string, err error)
	// Verify reports whether txHash is confirmed on-chain.
	Verify(ctx context.Context, txHash string) (bool, error)
	// Metadata returns chain-side details for txHash.
	Metadata(ctx context.Context, txHash string) (BlockchainMetadata, error)
}

// MerkleRoot computes SHA-256 of the concatenation of entries' hashes
// in entry order (spec.md §6.2), the payload a BlockchainSink submits.
func MerkleRoot(entries []Entry) string {
	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.Hash
	}
	return merkleRoot(hashes)
}
