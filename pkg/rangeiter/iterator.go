// Copyright 2025 Certen Protocol
//
// Splits a long run of untrusted blocks into the largest skippable
// sub-ranges the trust verifier will accept, advancing the trusted cursor
// one sub-range at a time. Ported from the reference range iterator:
// check whether the whole remaining range verifies in a single skip
// first (the common case when the validator set is stable), and only
// fall back to a binary search for the largest verifiable index when it
// doesn't.
package rangeiter

import (
	"context"
	"fmt"

	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/lightclient"
)

// Fetcher resolves the validator set that will sign the block right after
// a given height, needed to advance the trusted cursor after a skip.
type Fetcher interface {
	NextValidators(ctx context.Context, afterHeight blobstream.Height) (blobstream.ValidatorSet, error)
}

// Iterator walks a fixed slice of untrusted blocks (ascending by height,
// contiguous, already fetched) from a starting trusted cursor to the end
// of the slice, yielding one LightBlockProveData per Next call.
type Iterator struct {
	trusted blobstream.TrustedLightBlock
	blocks  []blobstream.UntrustedLightBlock
	opts    lightclient.Options
	fetcher Fetcher
}

// New constructs an Iterator. blocks must be ordered by strictly
// increasing height and contiguous; it is the caller's (pkg/service's)
// job to fetch them that way.
func New(trusted blobstream.TrustedLightBlock, blocks []blobstream.UntrustedLightBlock, fetcher Fetcher, opts lightclient.Options) *Iterator {
	return &Iterator{trusted: trusted, blocks: blocks, fetcher: fetcher, opts: opts}
}

// Done reports whether every block has been consumed.
func (it *Iterator) Done() bool { return len(it.blocks) == 0 }

// TrustedHeight returns the iterator's current trusted cursor height.
func (it *Iterator) TrustedHeight() blobstream.Height { return it.trusted.Height() }

// Next produces the next provable range and advances the trusted cursor
// past it. Callers must not call Next again after Done reports true.
func (it *Iterator) Next(ctx context.Context) (blobstream.LightBlockProveData, error) {
	if it.Done() {
		return blobstream.LightBlockProveData{}, fmt.Errorf("rangeiter: no blocks remain")
	}

	idx, err := it.lastValidIndex()
	if err != nil {
		return blobstream.LightBlockProveData{}, err
	}

	target := it.blocks[idx]
	interval := make([]*cmtypes.Header, idx)
	for i := 0; i < idx; i++ {
		interval[i] = it.blocks[i].SignedHeader.Header
	}

	data := blobstream.LightBlockProveData{
		Trusted:         it.trusted,
		IntervalHeaders: interval,
		Untrusted:       target,
	}
	if err := data.Validate(); err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("rangeiter: built an invalid range: %w", err)
	}

	nextVals, err := it.fetcher.NextValidators(ctx, target.Height())
	if err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("rangeiter: fetch next validators after height %d: %w", target.Height(), err)
	}
	it.trusted = blobstream.TrustedLightBlock{SignedHeader: target.SignedHeader, NextValidators: nextVals}
	it.blocks = it.blocks[idx+1:]
	return data, nil
}

// lastValidIndex finds the largest index i such that blocks[i] verifies
// against the current trusted cursor in a single skip. It first checks
// the last block directly: if the whole remaining range is one valid
// skip, no search is needed. Verifiability is assumed monotone in index
// (a nearer untrusted height is never harder to verify than a farther
// one against the same trusted cursor), so a binary search is safe when
// the short-circuit fails.
func (it *Iterator) lastValidIndex() (int, error) {
	last := len(it.blocks) - 1
	if it.verifies(last) {
		return last, nil
	}

	lo, hi := 0, last-1
	best := -1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if it.verifies(mid) {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == -1 {
		return 0, fmt.Errorf("rangeiter: no block at or before height %d is verifiable from trusted height %d",
			it.blocks[last].Height(), it.trusted.Height())
	}
	return best, nil
}

func (it *Iterator) verifies(idx int) bool {
	block := it.blocks[idx]
	verifyTime := blobstream.VerifyTimeAfter(block.SignedHeader)
	return lightclient.VerifySkip(it.trusted, block, it.opts, verifyTime).Success()
}
