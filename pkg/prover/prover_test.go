package prover

import (
	"bytes"
	"context"
	"testing"
	"time"

	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"
	cmtversionpb "github.com/cometbft/cometbft/proto/tendermint/version"
	cmtypes "github.com/cometbft/cometbft/types"
	cmtversion "github.com/cometbft/cometbft/version"

	"github.com/certen/blobstream0/pkg/blobstream"
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

func signedHeaderAt(t *testing.T, height int64, valTime time.Time, lastBlockHash []byte, keys []cmted25519.PrivKey, set *cmtypes.ValidatorSet) blobstream.SignedHeader {
	t.Helper()
	header := &cmtypes.Header{
		Version:            cmtversionpb.Consensus{Block: cmtversion.BlockProtocol},
		ChainID:            testChainID,
		Height:             height,
		Time:               valTime,
		LastBlockID:        cmtypes.BlockID{Hash: lastBlockHash},
		ValidatorsHash:     set.Hash(),
		NextValidatorsHash: set.Hash(),
		DataHash:           []byte("data-filler-32-bytes-long-here!!"),
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

func TestProveBlockDevModeProducesDigestSeal(t *testing.T) {
	keys, set := buildValidatorSet(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedSH := signedHeaderAt(t, 100, now, nil, keys, set)
	trusted := blobstream.TrustedLightBlock{SignedHeader: trustedSH, NextValidators: blobstream.ValidatorSet{Set: set}}

	untrustedTime := now.Add(6 * time.Second)
	untrustedSH := signedHeaderAt(t, 101, untrustedTime, trustedSH.Header.Hash(), keys, set)
	untrusted := blobstream.UntrustedLightBlock{SignedHeader: untrustedSH, Validators: blobstream.ValidatorSet{Set: set}}

	data := blobstream.LightBlockProveData{Trusted: trusted, Untrusted: untrusted}

	p := New(true, 4)
	receipt, err := p.ProveBlock(context.Background(), data, 40, 40)
	if err != nil {
		t.Fatalf("ProveBlock: %v", err)
	}
	if len(receipt.Seal) != 4+32 {
		t.Fatalf("dev seal length = %d, want 36", len(receipt.Seal))
	}
	if !bytes.Equal(receipt.Seal[:4], []byte{0, 0, 0, 0}) {
		t.Fatalf("dev seal selector = %x, want zero", receipt.Seal[:4])
	}
	if receipt.Commitment.NewHeight != 101 {
		t.Fatalf("commitment new height = %d, want 101", receipt.Commitment.NewHeight)
	}
}

func TestProveBlockProductionModeWithoutKeysFails(t *testing.T) {
	keys, set := buildValidatorSet(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedSH := signedHeaderAt(t, 100, now, nil, keys, set)
	trusted := blobstream.TrustedLightBlock{SignedHeader: trustedSH, NextValidators: blobstream.ValidatorSet{Set: set}}
	untrustedSH := signedHeaderAt(t, 101, now.Add(6*time.Second), trustedSH.Header.Hash(), keys, set)
	untrusted := blobstream.UntrustedLightBlock{SignedHeader: untrustedSH, Validators: blobstream.ValidatorSet{Set: set}}

	data := blobstream.LightBlockProveData{Trusted: trusted, Untrusted: untrusted}

	p := New(false, 4)
	if _, err := p.ProveBlock(context.Background(), data, 40, 40); err == nil {
		t.Fatal("expected an error with no proving key loaded")
	}
}
