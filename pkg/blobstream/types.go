// Copyright 2025 Certen Protocol
//
// Core data types shared across the bridge: the on-chain journal shapes,
// the Tendermint light-client block bundles the prover consumes, and the
// ABI surface downstream consumers rely on. It imports no other package of
// this module, so every other package can import it without cycles.
package blobstream

import (
	"encoding/hex"
	"fmt"
	"time"

	cmtypes "github.com/cometbft/cometbft/types"
)

// Hash is a 32-byte SHA-256 digest. The zero value is never a valid hash
// produced by this codebase; callers that encounter one treat it as a bug.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Height is a Tendermint block height.
type Height uint64

// Validator is a single entry of a ValidatorSet.
type Validator struct {
	Address     [20]byte
	PubKey      cmtypes.PubKey
	VotingPower int64
}

// ValidatorSet is an ordered set of validators with its canonical hash and
// total voting power, as returned by a paginated `validators` RPC call.
type ValidatorSet struct {
	Set *cmtypes.ValidatorSet
}

// Hash returns the canonical Tendermint hash of the validator set.
func (v ValidatorSet) Hash() Hash {
	var h Hash
	copy(h[:], v.Set.Hash())
	return h
}

// TotalVotingPower returns the sum of voting power across all validators.
func (v ValidatorSet) TotalVotingPower() int64 {
	return v.Set.TotalVotingPower()
}

// SignedHeader is a Tendermint header plus the commit of signatures over it.
type SignedHeader struct {
	Header *cmtypes.Header
	Commit *cmtypes.Commit
}

// Hash returns the header hash.
func (s SignedHeader) Hash() Hash {
	var h Hash
	copy(h[:], s.Header.Hash())
	return h
}

// TrustedLightBlock is a signed header together with the *next* validator
// set: the set that will sign the following height.
type TrustedLightBlock struct {
	SignedHeader    SignedHeader
	NextValidators  ValidatorSet
}

// Height returns the trusted block's height.
func (t TrustedLightBlock) Height() Height { return Height(t.SignedHeader.Header.Height) }

// CheckNextValidatorsBinding verifies invariant: next_validators.hash() ==
// signed_header.next_validators_hash.
func (t TrustedLightBlock) CheckNextValidatorsBinding() error {
	got := t.NextValidators.Hash()
	var want Hash
	copy(want[:], t.SignedHeader.Header.NextValidatorsHash)
	if got != want {
		return fmt.Errorf("trusted block next-validators hash mismatch: set hashes to %s, header expects %s", got, want)
	}
	return nil
}

// UntrustedLightBlock is a signed header together with the validator set
// that signed it.
type UntrustedLightBlock struct {
	SignedHeader SignedHeader
	Validators   ValidatorSet
}

// Height returns the untrusted block's height.
func (u UntrustedLightBlock) Height() Height { return Height(u.SignedHeader.Header.Height) }

// CheckValidatorsBinding verifies invariant: validators.hash() ==
// signed_header.validators_hash.
func (u UntrustedLightBlock) CheckValidatorsBinding() error {
	got := u.Validators.Hash()
	var want Hash
	copy(want[:], u.SignedHeader.Header.ValidatorsHash)
	if got != want {
		return fmt.Errorf("untrusted block validators hash mismatch: set hashes to %s, header expects %s", got, want)
	}
	return nil
}

// LightBlockProveData is the bundle the prover consumes for a single skip:
// a trusted anchor, zero or more headers strictly between trusted and
// untrusted (hash-chained but not individually verified against the
// validator set), and the untrusted target of the skip.
type LightBlockProveData struct {
	Trusted         TrustedLightBlock
	IntervalHeaders []*cmtypes.Header
	Untrusted       UntrustedLightBlock
}

// Validate checks the structural invariant from spec §3: the interval
// header count must exactly bridge trusted+1 .. untrusted-1.
func (d LightBlockProveData) Validate() error {
	trustedH := uint64(d.Trusted.Height())
	untrustedH := uint64(d.Untrusted.Height())
	if untrustedH <= trustedH {
		return fmt.Errorf("untrusted height %d must exceed trusted height %d", untrustedH, trustedH)
	}
	want := untrustedH - trustedH - 1
	if uint64(len(d.IntervalHeaders)) != want {
		return fmt.Errorf("expected %d interval headers, got %d", want, len(d.IntervalHeaders))
	}
	next := trustedH + 1
	for _, h := range d.IntervalHeaders {
		if uint64(h.Height) != next {
			return fmt.Errorf("interval header out of order: expected height %d, got %d", next, h.Height)
		}
		next++
	}
	return nil
}

// DataRootTuple is the ABI-encoded (height, dataRoot) pair that is the
// Merkle leaf payload and the external unit downstream verifiers check
// inclusion of.
type DataRootTuple struct {
	Height   uint64
	DataRoot Hash
}

// RangeCommitment is the journal the guest/circuit emits and the contract
// expects. Field order and widths are load-bearing (spec §3/§6).
type RangeCommitment struct {
	TrustedHeaderHash Hash
	NewHeight         uint64
	NewHeaderHash     Hash
	MerkleRoot        Hash
}

// LightClientCommit is the legacy single-block journal shape kept only for
// interop with older single-block guests (spec §4.9); new code paths never
// produce it.
type LightClientCommit struct {
	FirstBlockHash Hash
	NextBlockHash  Hash
}

// ProofNode is one step of a BinaryMerkleProof.
type ProofNode struct {
	Hash  Hash
	Right bool // true if this sibling is the right-hand operand
}

// BinaryMerkleProof is the inclusion proof shape `verifyAttestation`
// expects, unchanged from the external contract surface.
type BinaryMerkleProof struct {
	LeafIndex uint64
	NumLeaves uint64
	Path      []ProofNode
}

// VerifyTimeAfter returns the verify-time used for a skip: one second after
// the untrusted header's time, matching spec §4.3 step 4.
func VerifyTimeAfter(untrusted SignedHeader) time.Time {
	return untrusted.Header.Time.Add(time.Second)
}
