// Copyright 2025 Certen Protocol
package guestproof

import (
	"math/big"

	"github.com/certen/blobstream0/pkg/blobstream"
)

// BuildWitness assembles the circuit assignment for one proven
// commitment, given the voting-power tally the trust verifier already
// computed while checking the skip.
func BuildWitness(c blobstream.RangeCommitment, signedPower, totalPower int64) *RangeCommitmentCircuit {
	trustedHi, trustedLo := HashLimbs(c.TrustedHeaderHash)
	newHi, newLo := HashLimbs(c.NewHeaderHash)
	rootHi, rootLo := HashLimbs(c.MerkleRoot)

	return &RangeCommitmentCircuit{
		TrustedHeaderHashHi: new(big.Int).SetBytes(trustedHi[:]),
		TrustedHeaderHashLo: new(big.Int).SetBytes(trustedLo[:]),
		NewHeight:           new(big.Int).SetUint64(c.NewHeight),
		NewHeaderHashHi:     new(big.Int).SetBytes(newHi[:]),
		NewHeaderHashLo:     new(big.Int).SetBytes(newLo[:]),
		MerkleRootHi:        new(big.Int).SetBytes(rootHi[:]),
		MerkleRootLo:        new(big.Int).SetBytes(rootLo[:]),
		SignedVotingPower:   new(big.Int).SetInt64(signedPower),
		TotalVotingPower:    new(big.Int).SetInt64(totalPower),
	}
}
