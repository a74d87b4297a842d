// Copyright 2025 Certen Protocol
//
// Builds the RangeCommitment journal for a single skip: links the
// interval headers into the trusted/untrusted hash chain, builds the
// Merkle root over every data root in the range, and runs the trust
// verifier. This is the logic that would run inside the zk guest; the
// circuit in circuit.go does not repeat these checks and only asserts the
// voting-power threshold behind the resulting commitment.
package guestproof

import (
	"fmt"

	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/lightclient"
	"github.com/certen/blobstream0/pkg/merkle"
)

// BuildCommitment validates one skip and produces the RangeCommitment that
// a proof attests to. verifyTime is the moment the trust verifier
// evaluates the trusting period and clock-drift bounds against (spec
// §4.3 step 4: one second after the untrusted header's own time).
func BuildCommitment(data blobstream.LightBlockProveData, opts lightclient.Options) (blobstream.RangeCommitment, error) {
	if err := data.Validate(); err != nil {
		return blobstream.RangeCommitment{}, fmt.Errorf("invalid prove data: %w", err)
	}

	if err := checkHashChain(data); err != nil {
		return blobstream.RangeCommitment{}, fmt.Errorf("hash chain broken: %w", err)
	}

	root, err := buildMerkleRoot(data)
	if err != nil {
		return blobstream.RangeCommitment{}, fmt.Errorf("build merkle root: %w", err)
	}

	verifyTime := blobstream.VerifyTimeAfter(data.Untrusted.SignedHeader)
	verdict := lightclient.VerifySkip(data.Trusted, data.Untrusted, opts, verifyTime)
	if !verdict.Success() {
		return blobstream.RangeCommitment{}, fmt.Errorf("light client verification failed: %s", verdict.Reason)
	}

	return blobstream.RangeCommitment{
		TrustedHeaderHash: data.Trusted.SignedHeader.Hash(),
		NewHeight:         uint64(data.Untrusted.Height()),
		NewHeaderHash:     data.Untrusted.SignedHeader.Hash(),
		MerkleRoot:        root,
	}, nil
}

// checkHashChain verifies that every header in the range, from the first
// interval header through the untrusted header, correctly references its
// predecessor via LastBlockID. This is what lets the guest trust interval
// headers it never individually checks signatures for: each one is bound
// into the chain whose endpoint (untrusted) IS checked against the
// validator set.
func checkHashChain(data blobstream.LightBlockProveData) error {
	prev := data.Trusted.SignedHeader.Header
	chain := append(append([]*cmtypes.Header{}, data.IntervalHeaders...), data.Untrusted.SignedHeader.Header)

	for _, h := range chain {
		var lastHash blobstream.Hash
		copy(lastHash[:], h.LastBlockID.Hash)
		var prevHash blobstream.Hash
		copy(prevHash[:], prev.Hash())
		if lastHash != prevHash {
			return fmt.Errorf("header at height %d does not chain to height %d", h.Height, prev.Height)
		}
		prev = h
	}
	return nil
}

// buildMerkleRoot builds the range's Merkle tree over one DataRootTuple
// leaf per height from trusted+1 through untrusted, in height order.
func buildMerkleRoot(data blobstream.LightBlockProveData) (blobstream.Hash, error) {
	headers := append(append([]*cmtypes.Header{}, data.IntervalHeaders...), data.Untrusted.SignedHeader.Header)

	leaves := make([][]byte, 0, len(headers))
	for _, h := range headers {
		var dataRoot blobstream.Hash
		copy(dataRoot[:], h.DataHash)
		encoded, err := blobstream.EncodeLeaf(blobstream.DataRootTuple{
			Height:   uint64(h.Height),
			DataRoot: dataRoot,
		})
		if err != nil {
			return blobstream.Hash{}, fmt.Errorf("encode leaf for height %d: %w", h.Height, err)
		}
		leaves = append(leaves, encoded)
	}

	tree, err := merkle.New(leaves)
	if err != nil {
		return blobstream.Hash{}, err
	}
	return blobstream.Hash(tree.Root()), nil
}
