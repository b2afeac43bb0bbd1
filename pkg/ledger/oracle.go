// Copyright 2025 OpenGrantStack
//
// SignatureOracle structurally checks a signed entry (spec.md §6.3).
// The core never parses signature bytes; real cryptographic
// verification is explicitly out of scope (spec.md §1 non-goals, §9).

package ledger

import "context"

// SignatureOracle is consulted by ApprovalStateMachine.AddSignature to
// structurally check a signed entry. The core treats it as opaque.
type SignatureOracle interface {
	Verify(ctx context.Context, entry Entry) (OracleResult, error)
}

// OracleResult is the per-entry outcome of a SignatureOracle pass.
type OracleResult struct {
	Valid   bool
	Details []SignerVerdict
}

// SignerVerdict is one signer's structural verification outcome.
type SignerVerdict struct {
	Signer string
	Valid  bool
}

// StructuralOracle is the default SignatureOracle: it checks only that
// each recorded signature is non-empty, matching spec.md §9's
// description of the source ("signature verification is mocked;
// length > 0"). Real signature verification is a pluggable concern,
// never required by the core.
type StructuralOracle struct{}

// NewStructuralOracle constructs the default mock oracle.
func NewStructuralOracle() StructuralOracle { return StructuralOracle{} }

// Verify implements SignatureOracle.
func (StructuralOracle) Verify(_ context.Context, entry Entry) (OracleResult, error) {
	details := make([]SignerVerdict, 0, len(entry.Signatures))
	allValid := true
	for _, sig := range entry.Signatures {
		valid := len(sig.Signature) > 0
		if !valid {
			allValid = false
		}
		details = append(details, SignerVerdict{Signer: sig.Signer, Valid: valid})
	}
	return OracleResult{Valid: allValid, Details: details}, nil
}
