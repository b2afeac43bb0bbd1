// Copyright 2025 OpenGrantStack
//
// Groth16 proof generation and verification for CommitmentCircuit,
// grounded on BLSZKProver's Initialize/GenerateProof/VerifyProofLocally
// lifecycle (pkg/crypto/bls_zkp/prover.go) but compiled for the BN254
// curve and a single-constraint circuit rather than a pairing-based
// signature circuit.
package zkproof

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
)

const circuitID = "commitment-preimage-bn254-v1"

// Prover is a ledger.ZKProofProvider backed by a compiled Groth16
// circuit. Initialize must be called once (setup is expensive) before
// Prove is used.
type Prover struct {
	mu sync.RWMutex

	cs          constraint.ConstraintSystem
	pk          groth16.ProvingKey
	vk          groth16.VerifyingKey
	initialized bool
}

// NewProver returns an uninitialized Prover.
func NewProver() *Prover {
	return &Prover{}
}

// Initialize compiles CommitmentCircuit to R1CS and runs the Groth16
// trusted setup. Safe to call repeatedly; only the first call does
// work.
func (p *Prover) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	var circuit CommitmentCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return fmt.Errorf("zkproof: compile circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("zkproof: groth16 setup: %w", err)
	}

	p.cs, p.pk, p.vk = cs, pk, vk
	p.initialized = true
	return nil
}

// Prove implements ledger.ZKProofProvider. It derives a deterministic
// blinding factor from the entry descriptor (so the same descriptor
// always yields the same commitment) and proves knowledge of the
// (amount, blinding) preimage without exposing the amount in the
// resulting descriptor's public inputs.
func (p *Prover) Prove(ctx context.Context, descriptor ledger.EntryDescriptor) (*ledger.ZKProofDescriptor, error) {
	if err := p.Initialize(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	amount := new(big.Int).SetInt64(descriptor.Amount.Minor())
	blinding := deriveBlinding(descriptor)
	commitment := computeCommitment(amount, blinding)

	assignment := &CommitmentCircuit{
		Amount:     amount,
		Blinding:   blinding,
		Commitment: commitment,
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("zkproof: build witness: %w", err)
	}

	proof, err := groth16.Prove(p.cs, p.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("zkproof: prove: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("zkproof: serialize proof: %w", err)
	}
	proofBytes := buf.Bytes()

	return &ledger.ZKProofDescriptor{
		CircuitID:    circuitID,
		Proof:        hex.EncodeToString(proofBytes),
		PublicInputs: []string{hex.EncodeToString(commitment.Bytes())},
	}, nil
}

// VerifyLocally checks a previously generated proof against its public
// commitment, for operators who want stronger than structural
// verification; the core never calls this directly.
func (p *Prover) VerifyLocally(descriptor *ledger.ZKProofDescriptor) (bool, error) {
	if descriptor == nil || len(descriptor.PublicInputs) != 1 {
		return false, fmt.Errorf("zkproof: descriptor missing public inputs")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.initialized {
		return false, fmt.Errorf("zkproof: prover not initialized")
	}

	commitmentBytes, err := hex.DecodeString(descriptor.PublicInputs[0])
	if err != nil {
		return false, fmt.Errorf("zkproof: decode public input: %w", err)
	}
	commitment := new(big.Int).SetBytes(commitmentBytes)

	proofBytes, err := hex.DecodeString(descriptor.Proof)
	if err != nil {
		return false, fmt.Errorf("zkproof: decode proof: %w", err)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, fmt.Errorf("zkproof: deserialize proof: %w", err)
	}

	assignment := &CommitmentCircuit{Commitment: commitment}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("zkproof: build public witness: %w", err)
	}

	if err := groth16.Verify(proof, p.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}

// deriveBlinding produces a small deterministic field element from the
// descriptor's account, currency, and entry type, standing in for a real per-entry
// secret blinding factor supplied out of band.
func deriveBlinding(d ledger.EntryDescriptor) *big.Int {
	h := sha256.Sum256([]byte(d.Account.ID + ":" + d.Currency + ":" + string(d.EntryType)))
	return new(big.Int).SetBytes(h[:8])
}

// computeCommitment mirrors CommitmentCircuit.Define's linear relation
// outside the circuit, so the witness is consistent.
func computeCommitment(amount, blinding *big.Int) *big.Int {
	seven := big.NewInt(7)
	result := new(big.Int).Mul(blinding, seven)
	result.Add(result, amount)
	return result
}
