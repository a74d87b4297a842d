package guestproof

import (
	"testing"
	"time"

	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"
	cmtversionpb "github.com/cometbft/cometbft/proto/tendermint/version"
	cmtypes "github.com/cometbft/cometbft/types"
	cmtversion "github.com/cometbft/cometbft/version"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/lightclient"
	"github.com/certen/blobstream0/pkg/merkle"
)

const testChainID = "blobstream-test"

func buildValidatorSet(t *testing.T, n int, power int64) ([]cmted25519.PrivKey, *cmtypes.ValidatorSet) {
	t.Helper()
	keys := make([]cmted25519.PrivKey, n)
	vals := make([]*cmtypes.Validator, n)
	for i := 0; i < n; i++ {
		keys[i] = cmted25519.GenPrivKey()
		vals[i] = cmtypes.NewValidator(keys[i].PubKey(), power)
	}
	set := cmtypes.NewValidatorSet(vals)
	sorted := make([]cmted25519.PrivKey, n)
	for i, v := range set.Validators {
		for _, k := range keys {
			if k.PubKey().Address().String() == v.Address.String() {
				sorted[i] = k
				break
			}
		}
	}
	return sorted, set
}

func signedHeaderAt(t *testing.T, height int64, valTime time.Time, lastBlockHash []byte, dataHash []byte, keys []cmted25519.PrivKey, set *cmtypes.ValidatorSet) blobstream.SignedHeader {
	t.Helper()
	header := &cmtypes.Header{
		Version:            cmtversionpb.Consensus{Block: cmtversion.BlockProtocol},
		ChainID:            testChainID,
		Height:             height,
		Time:               valTime,
		LastBlockID:        cmtypes.BlockID{Hash: lastBlockHash},
		ValidatorsHash:     set.Hash(),
		NextValidatorsHash: set.Hash(),
		DataHash:           dataHash,
		ProposerAddress:    set.Validators[0].Address,
	}
	blockID := cmtypes.BlockID{Hash: header.Hash()}
	sigs := make([]cmtypes.CommitSig, len(set.Validators))
	for i, v := range set.Validators {
		sigs[i] = cmtypes.NewCommitSigForBlock(nil, v.Address, valTime)
	}
	commit := &cmtypes.Commit{Height: height, Round: 0, BlockID: blockID, Signatures: sigs}
	for i := range set.Validators {
		signBytes := commit.VoteSignBytes(testChainID, int32(i))
		commit.Signatures[i].Signature = keys[i].Sign(signBytes)
	}
	return blobstream.SignedHeader{Header: header, Commit: commit}
}

func TestBuildCommitmentSingleStep(t *testing.T) {
	keys, set := buildValidatorSet(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedSH := signedHeaderAt(t, 100, now, nil, []byte("data-100-filler-32-bytes-long!!!"), keys, set)
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   trustedSH,
		NextValidators: blobstream.ValidatorSet{Set: set},
	}

	untrustedTime := now.Add(6 * time.Second)
	untrustedSH := signedHeaderAt(t, 101, untrustedTime, trustedSH.Header.Hash(), []byte("data-101-filler-32-bytes-long!!!"), keys, set)
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: untrustedSH,
		Validators:   blobstream.ValidatorSet{Set: set},
	}

	data := blobstream.LightBlockProveData{Trusted: trusted, Untrusted: untrusted}
	commitment, err := BuildCommitment(data, lightclient.DefaultOptions())
	if err != nil {
		t.Fatalf("BuildCommitment: %v", err)
	}

	leaf, err := blobstream.EncodeLeaf(blobstream.DataRootTuple{
		Height:   101,
		DataRoot: func() (h blobstream.Hash) { copy(h[:], untrustedSH.Header.DataHash); return }(),
	})
	if err != nil {
		t.Fatalf("encode leaf: %v", err)
	}
	wantTree, err := merkle.New([][]byte{leaf})
	if err != nil {
		t.Fatalf("merkle.New: %v", err)
	}
	if commitment.MerkleRoot != blobstream.Hash(wantTree.Root()) {
		t.Fatalf("merkle root mismatch: got %s, want %s", commitment.MerkleRoot, blobstream.Hash(wantTree.Root()))
	}
	if commitment.NewHeight != 101 {
		t.Fatalf("new height = %d, want 101", commitment.NewHeight)
	}
}

func TestBuildCommitmentRejectsBrokenChain(t *testing.T) {
	keys, set := buildValidatorSet(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedSH := signedHeaderAt(t, 100, now, nil, []byte("data-100-filler-32-bytes-long!!!"), keys, set)
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   trustedSH,
		NextValidators: blobstream.ValidatorSet{Set: set},
	}

	untrustedTime := now.Add(6 * time.Second)
	// LastBlockID does not reference trusted's header hash.
	untrustedSH := signedHeaderAt(t, 101, untrustedTime, []byte("wrong-hash-not-trusted-header!!"), []byte("data-101-filler-32-bytes-long!!!"), keys, set)
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: untrustedSH,
		Validators:   blobstream.ValidatorSet{Set: set},
	}

	data := blobstream.LightBlockProveData{Trusted: trusted, Untrusted: untrusted}
	if _, err := BuildCommitment(data, lightclient.DefaultOptions()); err == nil {
		t.Fatal("expected hash-chain error")
	}
}
