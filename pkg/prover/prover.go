// Copyright 2025 Certen Protocol
//
// Drives the Groth16 proving backend for RangeCommitmentCircuit: one-time
// circuit compilation and trusted setup, key persistence, and per-range
// proof generation. Mirrors the mutex-guarded constraint-system/key
// lifecycle the BLS ZK prover uses, generalized from a single fixed
// circuit to the range-commitment one.
package prover

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"golang.org/x/sync/semaphore"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/guestproof"
	"github.com/certen/blobstream0/pkg/lightclient"
)

// devSealSelector marks a dev-mode seal: a proof that attests only to the
// claim digest, never verified on-chain by the real verifier contract.
// Used for local iteration before a trusted setup exists.
var devSealSelector = [4]byte{0x00, 0x00, 0x00, 0x00}

// Receipt is the output of a proving run: the commitment that was proven,
// and its seal (either a dev-mode digest marker or a real Groth16 proof).
type Receipt struct {
	Commitment blobstream.RangeCommitment
	Seal       []byte
}

// Prover holds the compiled circuit and Groth16 keys, and serializes
// access to them across concurrent ProveBlock calls via a bounded
// semaphore rather than a single mutex, so independent ranges can be
// proven in parallel up to a configured limit.
type Prover struct {
	mu      sync.Mutex
	ccs     constraint.ConstraintSystem
	pk      groth16.ProvingKey
	vk      groth16.VerifyingKey
	devMode bool
	sem     *semaphore.Weighted
}

// New constructs a Prover. In devMode, ProveBlock never touches the
// circuit or keys at all: it produces a digest-only seal so the rest of
// the pipeline (range iteration, settlement posting) can be exercised
// without a trusted setup.
func New(devMode bool, maxConcurrentProofs int64) *Prover {
	if maxConcurrentProofs < 1 {
		maxConcurrentProofs = 1
	}
	return &Prover{devMode: devMode, sem: semaphore.NewWeighted(maxConcurrentProofs)}
}

// Setup compiles RangeCommitmentCircuit and runs a fresh Groth16 trusted
// setup. Intended for cmd/proofkey-setup, not for the running service.
func (p *Prover) Setup() error {
	var circuit guestproof.RangeCommitmentCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return fmt.Errorf("prover: compile circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return fmt.Errorf("prover: groth16 setup: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ccs, p.pk, p.vk = ccs, pk, vk
	return nil
}

// SaveKeys persists the compiled circuit and proving/verifying keys to
// disk, in gnark's own binary serialization format.
func (p *Prover) SaveKeys(ccsPath, pkPath, vkPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ccs == nil || p.pk == nil || p.vk == nil {
		return fmt.Errorf("prover: no keys to save; call Setup first")
	}
	if err := writeTo(ccsPath, p.ccs); err != nil {
		return fmt.Errorf("prover: save constraint system: %w", err)
	}
	if err := writeTo(pkPath, p.pk); err != nil {
		return fmt.Errorf("prover: save proving key: %w", err)
	}
	if err := writeTo(vkPath, p.vk); err != nil {
		return fmt.Errorf("prover: save verifying key: %w", err)
	}
	return nil
}

// LoadKeys loads a previously saved circuit and key pair from disk.
func (p *Prover) LoadKeys(ccsPath, pkPath, vkPath string) error {
	ccs := groth16.NewCS(ecc.BN254)
	pk := groth16.NewProvingKey(ecc.BN254)
	vk := groth16.NewVerifyingKey(ecc.BN254)

	if err := readFrom(ccsPath, ccs); err != nil {
		return fmt.Errorf("prover: load constraint system: %w", err)
	}
	if err := readFrom(pkPath, pk); err != nil {
		return fmt.Errorf("prover: load proving key: %w", err)
	}
	if err := readFrom(vkPath, vk); err != nil {
		return fmt.Errorf("prover: load verifying key: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ccs, p.pk, p.vk = ccs, pk, vk
	return nil
}

// ProveBlock validates one skip, builds its RangeCommitment, and (unless
// running in dev mode) produces a Groth16 proof attesting to the voting
// power tally behind it. signedPower/totalPower are the tallies the
// caller already computed while running the trust verifier.
func (p *Prover) ProveBlock(ctx context.Context, data blobstream.LightBlockProveData, signedPower, totalPower int64) (*Receipt, error) {
	// The guest never sees the host's in-memory structs directly: it
	// observes exactly the framed byte stream EncodeProveInput produces,
	// decoded back out here the same way the guest binary would. Round-
	// tripping through the wire format on the host side keeps that
	// boundary real instead of aspirational.
	wire, err := guestproof.EncodeProveInput(data)
	if err != nil {
		return nil, fmt.Errorf("prover: encode prove input: %w", err)
	}
	decoded, err := guestproof.DecodeProveInput(wire)
	if err != nil {
		return nil, fmt.Errorf("prover: decode prove input: %w", err)
	}

	commitment, err := guestproof.BuildCommitment(decoded, lightclient.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("prover: build commitment: %w", err)
	}
	if commitment.TrustedHeaderHash != data.Trusted.SignedHeader.Hash() ||
		commitment.NewHeaderHash != data.Untrusted.SignedHeader.Hash() ||
		commitment.NewHeight != uint64(data.Untrusted.Height()) {
		return nil, fmt.Errorf("prover: commitment does not bind the requested range %d -> %d", data.Trusted.Height(), data.Untrusted.Height())
	}

	if p.devMode {
		seal, err := devSeal(commitment)
		if err != nil {
			return nil, err
		}
		return &Receipt{Commitment: commitment, Seal: seal}, nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	witness := guestproof.BuildWitness(commitment, signedPower, totalPower)
	fullWitness, err := frontend.NewWitness(witness, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("prover: build witness: %w", err)
	}

	p.mu.Lock()
	ccs, pk := p.ccs, p.pk
	p.mu.Unlock()
	if ccs == nil || pk == nil {
		return nil, fmt.Errorf("prover: no proving key loaded")
	}

	proof, err := groth16.Prove(ccs, pk, fullWitness)
	if err != nil {
		return nil, fmt.Errorf("prover: groth16 prove: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("prover: serialize proof: %w", err)
	}
	return &Receipt{Commitment: commitment, Seal: buf.Bytes()}, nil
}

// devSeal encodes a dev-mode seal: a 4-byte zero selector followed by the
// SHA-256 digest of the ABI-encoded journal. A settlement contract
// running in dev mode checks only this digest, skipping Groth16
// verification entirely.
func devSeal(c blobstream.RangeCommitment) ([]byte, error) {
	journal, err := blobstream.EncodeJournal(c)
	if err != nil {
		return nil, fmt.Errorf("prover: encode journal for dev seal: %w", err)
	}
	digest := sha256.Sum256(journal)
	seal := make([]byte, 0, 4+len(digest))
	seal = append(seal, devSealSelector[:]...)
	seal = append(seal, digest[:]...)
	return seal, nil
}

func writeTo(path string, v io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = v.WriteTo(f)
	return err
}

func readFrom(path string, v io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = v.ReadFrom(f)
	return err
}
