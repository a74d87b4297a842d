package lightclient

import (
	"testing"
	"time"

	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"
	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
)

const testChainID = "blobstream-test"

// fixtureValidators creates n validators with equal voting power and
// returns them alongside their private keys, in the deterministic order
// ValidatorSet sorts them into.
func fixtureValidators(t *testing.T, n int, power int64) ([]cmted25519.PrivKey, *cmtypes.ValidatorSet) {
	t.Helper()
	keys := make([]cmted25519.PrivKey, n)
	vals := make([]*cmtypes.Validator, n)
	for i := 0; i < n; i++ {
		keys[i] = cmted25519.GenPrivKey()
		vals[i] = cmtypes.NewValidator(keys[i].PubKey(), power)
	}
	set := cmtypes.NewValidatorSet(vals)
	// NewValidatorSet sorts by address; re-derive the key slice in the same
	// order so signBlock can find each validator's key by position.
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

// signBlock builds a fully signed header/commit pair at the given height,
// signed by signers (a subset, by index into keys/set, may be nil to skip).
func signBlock(t *testing.T, height int64, chainID string, valTime time.Time, keys []cmted25519.PrivKey, set *cmtypes.ValidatorSet, validatorsHash, nextValidatorsHash []byte, signerMask []bool) blobstream.SignedHeader {
	t.Helper()

	header := &cmtypes.Header{
		ChainID:            chainID,
		Height:             height,
		Time:               valTime,
		ValidatorsHash:     validatorsHash,
		NextValidatorsHash: nextValidatorsHash,
	}
	blockID := cmtypes.BlockID{Hash: header.Hash()}

	sigs := make([]cmtypes.CommitSig, len(set.Validators))
	for i, v := range set.Validators {
		if signerMask != nil && !signerMask[i] {
			sigs[i] = cmtypes.NewCommitSigAbsent()
			continue
		}
		sigs[i] = cmtypes.NewCommitSigForBlock(nil, v.Address, valTime)
	}

	commit := &cmtypes.Commit{Height: height, Round: 0, BlockID: blockID, Signatures: sigs}
	for i, v := range set.Validators {
		if signerMask != nil && !signerMask[i] {
			continue
		}
		signBytes := commit.VoteSignBytes(chainID, int32(i))
		commit.Signatures[i].Signature = keys[i].Sign(signBytes)
		_ = v
	}

	return blobstream.SignedHeader{Header: header, Commit: commit}
}

func allTrue(n int) []bool {
	m := make([]bool, n)
	for i := range m {
		m[i] = true
	}
	return m
}

func TestVerifySkipSingleStepSucceedsWithFullSignatures(t *testing.T) {
	keys, set := fixtureValidators(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	nextSet := set // next validators == same set, for a minimal single-step fixture
	trustedHeader := signBlock(t, 100, testChainID, now, keys, set, set.Hash(), nextSet.Hash(), allTrue(4))
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   trustedHeader,
		NextValidators: blobstream.ValidatorSet{Set: nextSet},
	}

	untrustedTime := now.Add(6 * time.Second)
	untrustedHeader := signBlock(t, 101, testChainID, untrustedTime, keys, nextSet, nextSet.Hash(), nextSet.Hash(), allTrue(4))
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: untrustedHeader,
		Validators:   blobstream.ValidatorSet{Set: nextSet},
	}

	verdict := VerifySkip(trusted, untrusted, DefaultOptions(), untrustedTime.Add(time.Second))
	if !verdict.Success() {
		t.Fatalf("expected success, got %+v", verdict)
	}
}

func TestVerifySkipSingleStepFailsWithInsufficientSignatures(t *testing.T) {
	keys, set := fixtureValidators(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedHeader := signBlock(t, 100, testChainID, now, keys, set, set.Hash(), set.Hash(), allTrue(4))
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   trustedHeader,
		NextValidators: blobstream.ValidatorSet{Set: set},
	}

	untrustedTime := now.Add(6 * time.Second)
	// Only 1 of 4 equal-power validators signs: 25% << required >2/3.
	mask := []bool{true, false, false, false}
	untrustedHeader := signBlock(t, 101, testChainID, untrustedTime, keys, set, set.Hash(), set.Hash(), mask)
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: untrustedHeader,
		Validators:   blobstream.ValidatorSet{Set: set},
	}

	verdict := VerifySkip(trusted, untrusted, DefaultOptions(), untrustedTime.Add(time.Second))
	if verdict.Kind != VerdictNotEnoughTrust {
		t.Fatalf("expected VerdictNotEnoughTrust, got %+v", verdict)
	}
	if verdict.Missing <= 0 {
		t.Fatalf("expected positive missing voting power, got %d", verdict.Missing)
	}
}

func TestVerifySkipRejectsStaleTrustedHeader(t *testing.T) {
	keys, set := fixtureValidators(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedHeader := signBlock(t, 100, testChainID, now, keys, set, set.Hash(), set.Hash(), allTrue(4))
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   trustedHeader,
		NextValidators: blobstream.ValidatorSet{Set: set},
	}

	untrustedTime := now.Add(15 * 24 * time.Hour) // past the 14-day trusting period
	untrustedHeader := signBlock(t, 101, testChainID, untrustedTime, keys, set, set.Hash(), set.Hash(), allTrue(4))
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: untrustedHeader,
		Validators:   blobstream.ValidatorSet{Set: set},
	}

	verdict := VerifySkip(trusted, untrusted, DefaultOptions(), untrustedTime.Add(time.Second))
	if verdict.Kind != VerdictExpired {
		t.Fatalf("expected VerdictExpired, got %+v", verdict)
	}
}

func TestVerifySkipRejectsNonIncreasingHeight(t *testing.T) {
	keys, set := fixtureValidators(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	header := signBlock(t, 100, testChainID, now, keys, set, set.Hash(), set.Hash(), allTrue(4))
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   header,
		NextValidators: blobstream.ValidatorSet{Set: set},
	}
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: header, // same height as trusted
		Validators:   blobstream.ValidatorSet{Set: set},
	}

	verdict := VerifySkip(trusted, untrusted, DefaultOptions(), now.Add(time.Second))
	if verdict.Success() {
		t.Fatal("expected failure for non-increasing height")
	}
}

func TestThresholdArithmeticHelpers(t *testing.T) {
	if !exceedsStrict(7, 10, 2, 3) {
		t.Fatal("7/10 should exceed 2/3")
	}
	if exceedsStrict(6, 9, 2, 3) {
		t.Fatal("6/9 == 2/3 exactly, should not exceed")
	}
	if !meetsOrExceeds(6, 9, 2, 3) {
		t.Fatal("6/9 should meet 2/3")
	}
	if requiredStrict(9, 2, 3) != 7 {
		t.Fatalf("requiredStrict(9,2,3) = %d, want 7", requiredStrict(9, 2, 3))
	}
	if requiredAtLeast(9, 2, 3) != 6 {
		t.Fatalf("requiredAtLeast(9,2,3) = %d, want 6", requiredAtLeast(9, 2, 3))
	}
}
