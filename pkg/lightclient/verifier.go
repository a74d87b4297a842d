// Copyright 2025 Certen Protocol
//
// Tendermint light-client skip verifier. Checks one trusted->untrusted
// transition against Tendermint voting-power and trust-threshold rules,
// per spec §4.2. This is the logic the guest circuit's host-side
// preparation calls before a proof is ever attempted — a Verdict other
// than Success means no proof can be produced for this transition.
package lightclient

import (
	"time"

	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
)

// Options are the fixed (non-configurable-at-runtime) trust parameters,
// per spec §4.2.
type Options struct {
	// TrustThresholdNum/Den express trust_threshold as a fraction; 2/3 is
	// the IBC-compatible default this bridge uses, overriding Tendermint's
	// own 1/3 default.
	TrustThresholdNum, TrustThresholdDen int64
	TrustingPeriod                      time.Duration
	ClockDrift                          time.Duration
}

// DefaultOptions returns the policy fixed by spec §4.2: 2/3 trust
// threshold, 14-day trusting period, zero clock drift.
func DefaultOptions() Options {
	return Options{
		TrustThresholdNum: 2,
		TrustThresholdDen: 3,
		TrustingPeriod:    14 * 24 * time.Hour,
		ClockDrift:        0,
	}
}

// VerdictKind tags the outcome of VerifySkip.
type VerdictKind int

const (
	VerdictSuccess VerdictKind = iota
	VerdictNotEnoughTrust
	VerdictInvalidSignature
	VerdictExpired
	VerdictOther
)

// Verdict is the tagged outcome of a skip verification. Only Success
// permits a receipt to be produced; any other kind is a fatal assertion in
// the guest (spec §4.2).
type Verdict struct {
	Kind    VerdictKind
	Missing int64  // for VerdictNotEnoughTrust: voting power still needed
	Reason  string // human-readable detail, always set for non-Success
}

func (v Verdict) Success() bool { return v.Kind == VerdictSuccess }

func success() Verdict { return Verdict{Kind: VerdictSuccess} }

func other(reason string) Verdict {
	return Verdict{Kind: VerdictOther, Reason: reason}
}

// VerifySkip checks the transition trusted -> untrusted against the fixed
// policy in opts, evaluated as of verifyTime. It never itself fetches
// data; callers (pkg/rangeiter, pkg/guestproof) supply fully hydrated
// light blocks.
func VerifySkip(trusted blobstream.TrustedLightBlock, untrusted blobstream.UntrustedLightBlock, opts Options, verifyTime time.Time) Verdict {
	// Precondition 1: trusted bundle's next-validators binding.
	if err := trusted.CheckNextValidatorsBinding(); err != nil {
		return other(err.Error())
	}
	// Precondition 2: untrusted bundle's validators binding.
	if err := untrusted.CheckValidatorsBinding(); err != nil {
		return other(err.Error())
	}
	// Precondition 3: height strictly increasing.
	if untrusted.Height() <= trusted.Height() {
		return other("untrusted height does not exceed trusted height")
	}
	// Precondition 4: chain ID equality.
	if untrusted.SignedHeader.Header.ChainID != trusted.SignedHeader.Header.ChainID {
		return other("chain_id mismatch between trusted and untrusted headers")
	}

	trustedTime := trusted.SignedHeader.Header.Time
	untrustedTime := untrusted.SignedHeader.Header.Time

	// Precondition 5: trusting period.
	if verifyTime.Sub(trustedTime) > opts.TrustingPeriod {
		return Verdict{Kind: VerdictExpired, Reason: "trusted header is older than the trusting period"}
	}
	// Precondition 6: monotone header time and bounded clock drift.
	if !untrustedTime.After(trustedTime) {
		return other("untrusted header time does not advance past trusted header time")
	}
	if untrustedTime.After(verifyTime.Add(opts.ClockDrift)) {
		return other("untrusted header time is too far in the future")
	}

	// Signature / voting-power check: the heart of the protocol.
	if untrusted.Height() == trusted.Height()+1 {
		return verifySingleStep(trusted, untrusted, opts)
	}
	return verifySkipStep(trusted, untrusted, opts)
}

// verifySingleStep handles untrusted.height == trusted.height+1: validators
// from trusted.next_validators signing untrusted must exceed 2/3 of that
// set's total voting power.
func verifySingleStep(trusted blobstream.TrustedLightBlock, untrusted blobstream.UntrustedLightBlock, opts Options) Verdict {
	signed, err := signedPowerFromSet(trusted.NextValidators.Set, untrusted)
	if err != nil {
		return Verdict{Kind: VerdictInvalidSignature, Reason: err.Error()}
	}
	total := trusted.NextValidators.TotalVotingPower()
	if !exceedsStrict(signed, total, 2, 3) {
		return Verdict{
			Kind:    VerdictNotEnoughTrust,
			Missing: requiredStrict(total, 2, 3) - signed,
			Reason:  "signers of untrusted header hold <= 2/3 of trusted.next_validators voting power",
		}
	}
	return success()
}

// verifySkipStep handles untrusted.height > trusted.height+1: the
// intersection of trusted.next_validators and untrusted.validators,
// restricted to signers of untrusted, must hold >= trust_threshold (2/3) of
// trusted.next_validators total power, AND signatures on untrusted must
// independently account for > 2/3 of untrusted.validators voting power
// (the commit itself must be valid).
func verifySkipStep(trusted blobstream.TrustedLightBlock, untrusted blobstream.UntrustedLightBlock, opts Options) Verdict {
	// Overlap check against the trusted next-validator set.
	overlapPower, err := signedPowerFromSet(trusted.NextValidators.Set, untrusted)
	if err != nil {
		return Verdict{Kind: VerdictInvalidSignature, Reason: err.Error()}
	}
	trustedTotal := trusted.NextValidators.TotalVotingPower()
	if !meetsOrExceeds(overlapPower, trustedTotal, opts.TrustThresholdNum, opts.TrustThresholdDen) {
		return Verdict{
			Kind:    VerdictNotEnoughTrust,
			Missing: requiredAtLeast(trustedTotal, opts.TrustThresholdNum, opts.TrustThresholdDen) - overlapPower,
			Reason:  "signer overlap with trusted.next_validators is below the trust threshold",
		}
	}

	// Commit validity check against untrusted's own validator set.
	ownPower, err := signedPowerFromSet(untrusted.Validators.Set, untrusted)
	if err != nil {
		return Verdict{Kind: VerdictInvalidSignature, Reason: err.Error()}
	}
	ownTotal := untrusted.Validators.TotalVotingPower()
	if !exceedsStrict(ownPower, ownTotal, 2, 3) {
		return Verdict{
			Kind:    VerdictNotEnoughTrust,
			Missing: requiredStrict(ownTotal, 2, 3) - ownPower,
			Reason:  "untrusted commit is not valid: signers hold <= 2/3 of untrusted.validators voting power",
		}
	}
	return success()
}

// TallyVotingPower returns the voting power that signed untrusted's commit
// out of trusted.NextValidators, and that set's total voting power. It
// exists so a caller that has already run VerifySkip successfully (and so
// knows the tally is sufficient) can feed the same tally into the guest
// circuit's witness without recomputing verification.
func TallyVotingPower(trusted blobstream.TrustedLightBlock, untrusted blobstream.UntrustedLightBlock) (signed, total int64, err error) {
	signed, err = signedPowerFromSet(trusted.NextValidators.Set, untrusted)
	if err != nil {
		return 0, 0, err
	}
	return signed, trusted.NextValidators.TotalVotingPower(), nil
}

// signedPowerFromSet sums the voting power, within validatorSet, of
// validators whose signature over the untrusted commit verifies. Absent or
// nil votes, and any non-Commit BlockIDFlag variant, contribute nothing.
func signedPowerFromSet(validatorSet *cmtypes.ValidatorSet, untrusted blobstream.UntrustedLightBlock) (int64, error) {
	commit := untrusted.SignedHeader.Commit
	chainID := untrusted.SignedHeader.Header.ChainID

	var total int64
	for idx, sig := range commit.Signatures {
		if sig.BlockIDFlag != cmtypes.BlockIDFlagCommit {
			continue // absent or nil vote: does not contribute
		}
		_, val := validatorSet.GetByAddress(sig.ValidatorAddress)
		if val == nil {
			continue // this validator is not a member of the set we're summing over
		}
		signBytes := commit.VoteSignBytes(chainID, int32(idx))
		if !val.PubKey.VerifySignature(signBytes, sig.Signature) {
			return 0, errInvalidSig(val.Address)
		}
		total += val.VotingPower
	}
	return total, nil
}

func errInvalidSig(addr []byte) error {
	return &invalidSignatureError{addr: addr}
}

type invalidSignatureError struct{ addr []byte }

func (e *invalidSignatureError) Error() string {
	return "invalid signature from validator " + cmtypes.Address(e.addr).String()
}

// exceedsStrict reports whether num/den > numReq/denReq, using only
// integer arithmetic: num*denReq > numReq*den.
func exceedsStrict(num, den int64, numReq, denReq int64) bool {
	return num*denReq > numReq*den
}

// meetsOrExceeds reports whether num/den >= numReq/denReq.
func meetsOrExceeds(num, den int64, numReq, denReq int64) bool {
	return num*denReq >= numReq*den
}

// requiredStrict returns the minimum integer power strictly exceeding
// numReq/denReq of total (i.e. the smallest x with x*denReq > numReq*total).
func requiredStrict(total int64, numReq, denReq int64) int64 {
	x := (numReq*total)/denReq + 1
	return x
}

// requiredAtLeast returns the minimum integer power meeting or exceeding
// numReq/denReq of total.
func requiredAtLeast(total int64, numReq, denReq int64) int64 {
	x := (numReq * total) / denReq
	if x*denReq < numReq*total {
		x++
	}
	return x
}
