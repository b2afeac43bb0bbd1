// Copyright 2025 OpenGrantStack
//
// ZKProofProvider is the pluggable, out-of-core collaborator that
// constructs ZKProofDescriptor values. Zero-knowledge proof
// construction is explicitly a core non-goal (spec.md §1); the core
// only stores and structurally validates the resulting descriptor
// (non-empty CircuitID/Proof). See pkg/zkproof for a concrete
// Groth16-backed provider, used only when enableZKProofs is set.

package ledger

import "context"

// ZKProofProvider produces a ZKProofDescriptor for an entry about to
// be assembled. It is consulted by callers of CreateTransaction, never
// by the core itself.
type ZKProofProvider interface {
	Prove(ctx context.Context, descriptor EntryDescriptor) (*ZKProofDescriptor, error)
}

// ValidateZKProof performs the core's only responsibility toward a ZK
// proof: structural presence, never verification of the proof itself.
func ValidateZKProof(d *ZKProofDescriptor) *ValidationResult {
	r := newValidationResult()
	if d == nil {
		return r
	}
	if d.CircuitID == "" {
		r.addError("zkProof.circuitId is required when a proof is attached")
	}
	if d.Proof == "" {
		r.addError("zkProof.proof is required when a proof is attached")
	}
	return r
}
