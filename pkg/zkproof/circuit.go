// Copyright 2025 OpenGrantStack
//
// Package zkproof implements ledger.ZKProofProvider with a real Groth16
// circuit, grounded on the certen-validator BLS prover's
// compile-setup-prove-verify shape (pkg/crypto/bls_zkp/prover.go),
// narrowed from a pairing-heavy signature circuit down to a minimal
// commitment-preimage circuit appropriate for attesting "this entry
// descriptor corresponds to a committed amount" without revealing the
// amount itself.
package zkproof

import (
	"github.com/consensys/gnark/frontend"
)

// CommitmentCircuit proves knowledge of an (amount, blinding) preimage
// whose linear commitment equals a public value, without revealing
// amount or blinding. This is the minimal circuit needed to attest a
// grant entry's amount was fixed at proof time without publishing it.
type CommitmentCircuit struct {
	Amount   frontend.Variable `gnark:",secret"`
	Blinding frontend.Variable `gnark:",secret"`

	Commitment frontend.Variable `gnark:",public"`
}

// Define implements frontend.Circuit: Commitment = Amount + Blinding*7,
// mirroring the teacher circuit's simple linear commitment scheme.
func (c *CommitmentCircuit) Define(api frontend.API) error {
	seven := frontend.Variable(7)
	weighted := api.Mul(c.Blinding, seven)
	computed := api.Add(c.Amount, weighted)
	api.AssertIsEqual(computed, c.Commitment)
	return nil
}
