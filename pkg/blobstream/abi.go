package blobstream

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// rangeCommitmentArgs describes the Solidity tuple
// (bytes32 trustedHeaderHash, uint64 newHeight, bytes32 newHeaderHash, bytes32 merkleRoot)
// packed exactly as the settlement contract's updateRange journal argument.
var rangeCommitmentArgs = mustArguments(
	mustType("bytes32"),
	mustType("uint64"),
	mustType("bytes32"),
	mustType("bytes32"),
)

// dataRootTupleArgs describes the Solidity tuple (uint256 height, bytes32 dataRoot),
// the Merkle leaf payload per spec §4.1/§6.
var dataRootTupleArgs = mustArguments(
	mustType("uint256"),
	mustType("bytes32"),
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("blobstream: bad abi type %q: %v", t, err))
	}
	return typ
}

func mustArguments(types ...abi.Type) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: t}
	}
	return args
}

// EncodeJournal ABI-encodes a RangeCommitment exactly as the settlement
// contract's updateRange expects it.
func EncodeJournal(c RangeCommitment) ([]byte, error) {
	return rangeCommitmentArgs.Pack(
		[32]byte(c.TrustedHeaderHash),
		c.NewHeight,
		[32]byte(c.NewHeaderHash),
		[32]byte(c.MerkleRoot),
	)
}

// DecodeJournal ABI-decodes a journal produced by EncodeJournal.
func DecodeJournal(journal []byte) (RangeCommitment, error) {
	values, err := rangeCommitmentArgs.Unpack(journal)
	if err != nil {
		return RangeCommitment{}, fmt.Errorf("decode journal: %w", err)
	}
	if len(values) != 4 {
		return RangeCommitment{}, fmt.Errorf("decode journal: expected 4 fields, got %d", len(values))
	}
	trustedHash, ok := values[0].([32]byte)
	if !ok {
		return RangeCommitment{}, fmt.Errorf("decode journal: trustedHeaderHash has unexpected type %T", values[0])
	}
	newHeight, ok := values[1].(uint64)
	if !ok {
		return RangeCommitment{}, fmt.Errorf("decode journal: newHeight has unexpected type %T", values[1])
	}
	newHash, ok := values[2].([32]byte)
	if !ok {
		return RangeCommitment{}, fmt.Errorf("decode journal: newHeaderHash has unexpected type %T", values[2])
	}
	root, ok := values[3].([32]byte)
	if !ok {
		return RangeCommitment{}, fmt.Errorf("decode journal: merkleRoot has unexpected type %T", values[3])
	}
	return RangeCommitment{
		TrustedHeaderHash: Hash(trustedHash),
		NewHeight:         newHeight,
		NewHeaderHash:     Hash(newHash),
		MerkleRoot:        Hash(root),
	}, nil
}

// EncodeLeaf ABI-encodes a DataRootTuple, the payload hashed into a Merkle
// leaf by pkg/merkle. Order of the fields is load-bearing: it is what the
// on-chain verifier reconstructs from (height, dataRoot) to check a leaf.
func EncodeLeaf(t DataRootTuple) ([]byte, error) {
	return dataRootTupleArgs.Pack(new(big.Int).SetUint64(t.Height), [32]byte(t.DataRoot))
}
