// Copyright 2025 Certen Protocol
//
// Hand-written ABI binding for the settlement contract, in the same
// abigen-wrapper style the teacher's contract bindings use, but built
// directly from a literal ABI rather than generated code: the surface is
// small enough (four methods) that codegen would add more ceremony than
// it saves.
package contractbind

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/blobstream0/pkg/blobstream"
)

// contractABIJSON describes the settlement contract's external surface:
// reading the current range head, posting a new proven range, and
// checking a single data root's inclusion against a previously posted
// Merkle root.
const contractABIJSON = `[
	{"type":"function","name":"latestHeight","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"latestBlockHash","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"updateRange","stateMutability":"nonpayable","inputs":[{"name":"journal","type":"bytes"},{"name":"seal","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"verifyAttestation",
		"stateMutability":"view",
		"inputs":[
			{"name":"proofNonce","type":"uint256"},
			{"name":"tuple","type":"tuple","components":[{"name":"height","type":"uint256"},{"name":"dataRoot","type":"bytes32"}]},
			{"name":"proof","type":"tuple","components":[{"name":"leafIndex","type":"uint256"},{"name":"numLeaves","type":"uint256"},{"name":"sideNodes","type":"bytes32[]"}]}
		],
		"outputs":[{"name":"","type":"bool"}]}
]`

var parsedABI = mustParseABI()

func mustParseABI() abi.ABI {
	a, err := abi.JSON(strings.NewReader(contractABIJSON))
	if err != nil {
		panic(fmt.Sprintf("contractbind: invalid embedded ABI: %v", err))
	}
	return a
}

// Contract is a thin, typed wrapper over the settlement contract's ABI,
// bound to a live backend (an *ethclient.Client satisfies
// bind.ContractBackend directly).
type Contract struct {
	address common.Address
	bound   *bind.BoundContract
}

// New binds a Contract at address to backend.
func New(address common.Address, backend bind.ContractBackend) *Contract {
	return &Contract{
		address: address,
		bound:   bind.NewBoundContract(address, parsedABI, backend, backend, backend),
	}
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address { return c.address }

// LatestHeight reads the contract's current range head height.
func (c *Contract) LatestHeight(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "latestHeight"); err != nil {
		return 0, fmt.Errorf("contractbind: call latestHeight: %w", err)
	}
	height, ok := out[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("contractbind: latestHeight returned unexpected type %T", out[0])
	}
	return height, nil
}

// LatestBlockHash reads the contract's current range head header hash.
func (c *Contract) LatestBlockHash(ctx context.Context) (blobstream.Hash, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "latestBlockHash"); err != nil {
		return blobstream.Hash{}, fmt.Errorf("contractbind: call latestBlockHash: %w", err)
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return blobstream.Hash{}, fmt.Errorf("contractbind: latestBlockHash returned unexpected type %T", out[0])
	}
	return blobstream.Hash(raw), nil
}

// PackUpdateRange ABI-encodes a call to updateRange(journal, seal).
func (c *Contract) PackUpdateRange(journal, seal []byte) ([]byte, error) {
	data, err := parsedABI.Pack("updateRange", journal, seal)
	if err != nil {
		return nil, fmt.Errorf("contractbind: pack updateRange: %w", err)
	}
	return data, nil
}

// VerifyAttestation calls the view method checking a DataRootTuple's
// inclusion under a previously posted Merkle root.
func (c *Contract) VerifyAttestation(ctx context.Context, proofNonce *big.Int, tuple blobstream.DataRootTuple, proof blobstream.BinaryMerkleProof) (bool, error) {
	sideNodes := make([][32]byte, len(proof.Path))
	for i, n := range proof.Path {
		sideNodes[i] = [32]byte(n.Hash)
	}
	tupleArg := struct {
		Height   *big.Int
		DataRoot [32]byte
	}{Height: new(big.Int).SetUint64(tuple.Height), DataRoot: [32]byte(tuple.DataRoot)}
	proofArg := struct {
		LeafIndex *big.Int
		NumLeaves *big.Int
		SideNodes [][32]byte
	}{
		LeafIndex: new(big.Int).SetUint64(proof.LeafIndex),
		NumLeaves: new(big.Int).SetUint64(proof.NumLeaves),
		SideNodes: sideNodes,
	}

	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "verifyAttestation", proofNonce, tupleArg, proofArg); err != nil {
		return false, fmt.Errorf("contractbind: call verifyAttestation: %w", err)
	}
	ok, typeOk := out[0].(bool)
	if !typeOk {
		return false, fmt.Errorf("contractbind: verifyAttestation returned unexpected type %T", out[0])
	}
	return ok, nil
}
