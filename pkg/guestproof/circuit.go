// Copyright 2025 Certen Protocol
//
// RangeCommitmentCircuit is the arithmetic circuit a Groth16 proof attests
// to: that the voting power behind a skip's signatures meets the 2/3
// trust threshold. The hash chain and Merkle root (both SHA256-based) are
// computed and checked in plain Go by BuildCommitment, not inside the
// circuit — SHA256 in-circuit runs to the millions of constraints for
// data this size, the same tradeoff that keeps pairing checks out of the
// BLS circuit this generalizes. What goes into the circuit instead is the
// cheap, high-value check: the power tally backing the signatures the
// host already verified. The hash/root/height fields are carried as
// public inputs purely to bind the proof to one exact journal; the
// settlement contract is what ties that binding to the corresponding
// on-chain commitment.
package guestproof

import (
	"github.com/consensys/gnark/frontend"
)

// RangeCommitmentCircuit proves that SignedVotingPower, out of
// TotalVotingPower, meets the 2/3 threshold required to finalize the skip
// whose journal is fixed by the public fields.
type RangeCommitmentCircuit struct {
	TrustedHeaderHashHi frontend.Variable `gnark:",public"`
	TrustedHeaderHashLo frontend.Variable `gnark:",public"`
	NewHeight           frontend.Variable `gnark:",public"`
	NewHeaderHashHi     frontend.Variable `gnark:",public"`
	NewHeaderHashLo     frontend.Variable `gnark:",public"`
	MerkleRootHi        frontend.Variable `gnark:",public"`
	MerkleRootLo        frontend.Variable `gnark:",public"`

	SignedVotingPower frontend.Variable
	TotalVotingPower  frontend.Variable
}

// Define asserts 3*SignedVotingPower >= 2*TotalVotingPower, the same
// integer-inequality encoding the BLS threshold circuit uses for its
// Byzantine-fault-tolerance check.
func (c *RangeCommitmentCircuit) Define(api frontend.API) error {
	lhs := api.Mul(c.SignedVotingPower, 3)
	rhs := api.Mul(c.TotalVotingPower, 2)
	api.AssertIsLessOrEqual(rhs, lhs)
	return nil
}

// HashLimbs splits a 32-byte hash into two 128-bit field-sized limbs, the
// packing BuildWitness uses for every hash-valued public input.
func HashLimbs(h [32]byte) (hi, lo [16]byte) {
	copy(hi[:], h[:16])
	copy(lo[:], h[16:])
	return hi, lo
}
