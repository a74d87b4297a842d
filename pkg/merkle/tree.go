// Copyright 2025 Certen Protocol
//
// Tendermint-style binary Merkle tree over ABI-encoded DataRootTuple
// leaves. Domain-separated leaf/inner hashing and power-of-two splitting
// match the Celestia/Tendermint reference algorithm bit-for-bit, which is
// what lets a host-built root and a guest-rebuilt root agree.
package merkle

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

var (
	ErrEmptyTree    = errors.New("merkle: cannot build a tree from zero leaves")
	ErrInvalidProof = errors.New("merkle: proof does not reconstruct to the expected root")
)

const (
	leafPrefix  = 0x00
	innerPrefix = 0x01
)

// leafHash computes SHA256(0x00 || x).
func leafHash(data []byte) [32]byte {
	buf := make([]byte, 0, 1+len(data))
	buf = append(buf, leafPrefix)
	buf = append(buf, data...)
	return sha256.Sum256(buf)
}

// innerHash computes SHA256(0x01 || left || right).
func innerHash(left, right [32]byte) [32]byte {
	buf := make([]byte, 0, 65)
	buf = append(buf, innerPrefix)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sha256.Sum256(buf)
}

// splitPoint returns the largest power of two strictly less than n, for
// n > 1. This is where an unbalanced subtree splits: left gets splitPoint
// leaves, right gets the remainder. Unlike a balanced/padded tree, no leaf
// is ever duplicated.
func splitPoint(n int) int {
	if n < 2 {
		panic("merkle: splitPoint requires n >= 2")
	}
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}

// rootOf computes the Merkle root of the given leaves (already leaf-hashed).
func rootOf(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return sha256.Sum256(nil)
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	k := splitPoint(len(leaves))
	left := rootOf(leaves[:k])
	right := rootOf(leaves[k:])
	return innerHash(left, right)
}

// Tree is a built, queryable Merkle tree. Construction is not thread-safe;
// once built a Tree is read-only and safe for concurrent use.
type Tree struct {
	leafData [][]byte   // original leaf payloads, in order
	leaves   [][32]byte // leaf-hashed values
	root     [32]byte
}

// New builds a Merkle tree over the given leaf payloads (already
// ABI-encoded DataRootTuple bytes, in range order). At least one leaf is
// required; callers must never pass an empty range (spec §4.1).
func New(leafPayloads [][]byte) (*Tree, error) {
	if len(leafPayloads) == 0 {
		return nil, ErrEmptyTree
	}
	leaves := make([][32]byte, len(leafPayloads))
	for i, p := range leafPayloads {
		leaves[i] = leafHash(p)
	}
	return &Tree{
		leafData: leafPayloads,
		leaves:   leaves,
		root:     rootOf(leaves),
	}, nil
}

// Root returns the 32-byte Merkle root.
func (t *Tree) Root() [32]byte { return t.root }

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int { return len(t.leaves) }

// Path is the structural description of one Merkle inclusion proof.
type Path struct {
	LeafIndex int
	NumLeaves int
	Siblings  []sibling
}

type sibling struct {
	hash  [32]byte
	right bool // true if this sibling is consumed as the right-hand operand
}

// Prove generates an inclusion proof for the leaf at index i.
func (t *Tree) Prove(i int) (Path, error) {
	if i < 0 || i >= len(t.leaves) {
		return Path{}, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", i, len(t.leaves))
	}
	var sibs []sibling
	collectPath(t.leaves, i, &sibs)
	return Path{LeafIndex: i, NumLeaves: len(t.leaves), Siblings: sibs}, nil
}

// collectPath recurses the same split used by rootOf, recording the
// sibling subtree root encountered at each level on the way down to leaf i.
func collectPath(leaves [][32]byte, i int, out *[]sibling) [32]byte {
	if len(leaves) == 1 {
		return leaves[0]
	}
	k := splitPoint(len(leaves))
	if i < k {
		left := collectPath(leaves[:k], i, out)
		right := rootOf(leaves[k:])
		*out = append(*out, sibling{hash: right, right: true})
		return innerHash(left, right)
	}
	right := collectPath(leaves[k:], i-k, out)
	left := rootOf(leaves[:k])
	*out = append(*out, sibling{hash: left, right: false})
	return innerHash(left, right)
}

// Verify checks that leafPayload is included under root according to path,
// using a constant-time comparison on the final root match.
func Verify(leafPayload []byte, path Path, root [32]byte) (bool, error) {
	h := leafHash(leafPayload)
	for _, s := range path.Siblings {
		if s.right {
			h = innerHash(h, s.hash)
		} else {
			h = innerHash(s.hash, h)
		}
	}
	return subtle.ConstantTimeCompare(h[:], root[:]) == 1, nil
}

// LeafAt returns the original (unhashed) payload for leaf i.
func (t *Tree) LeafAt(i int) ([]byte, error) {
	if i < 0 || i >= len(t.leafData) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", i, len(t.leafData))
	}
	return t.leafData[i], nil
}
