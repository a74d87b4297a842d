// Copyright 2025 Certen Protocol
//
// Tendermint RPC client wrapper: fetches signed headers, paginated
// validator sets, and chunked header ranges, bounding concurrency so a
// wide backfill never opens more than a handful of RPC connections at
// once.
package tmfetch

import (
	"context"
	"fmt"
	"sort"

	cmthttp "github.com/cometbft/cometbft/rpc/client/http"
	cmtypes "github.com/cometbft/cometbft/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/certen/blobstream0/pkg/blobstream"
)

const (
	// maxConcurrentFetches bounds how many RPC calls pkg/tmfetch issues at
	// once during a wide backfill.
	maxConcurrentFetches = 16
	// headerChunkSize is the largest span the RPC's blockchain endpoint
	// will return in a single call.
	headerChunkSize = 20
	validatorsPerPage = 100
)

// Client wraps a single Tendermint/CometBFT RPC endpoint.
type Client struct {
	rpc *cmthttp.HTTP
	sem *semaphore.Weighted
}

// NewClient dials the given RPC address (e.g. "http://localhost:26657").
func NewClient(rpcAddr string) (*Client, error) {
	c, err := cmthttp.New(rpcAddr, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("tmfetch: dial %s: %w", rpcAddr, err)
	}
	return &Client{rpc: c, sem: semaphore.NewWeighted(maxConcurrentFetches)}, nil
}

// LatestHeight returns the node's current (possibly not-yet-final) chain
// height, the upper bound pkg/service iterates toward.
func (c *Client) LatestHeight(ctx context.Context) (blobstream.Height, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer c.sem.Release(1)

	res, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("tmfetch: status: %w", err)
	}
	return blobstream.Height(res.SyncInfo.LatestBlockHeight), nil
}

// FetchValidators retrieves the full validator set at a height, paging
// through the RPC's validators endpoint until every validator has been
// collected.
func (c *Client) FetchValidators(ctx context.Context, height blobstream.Height) (blobstream.ValidatorSet, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return blobstream.ValidatorSet{}, err
	}
	defer c.sem.Release(1)

	h := int64(height)
	page := 1
	perPage := validatorsPerPage
	var all []*cmtypes.Validator
	for {
		res, err := c.rpc.Validators(ctx, &h, &page, &perPage)
		if err != nil {
			return blobstream.ValidatorSet{}, fmt.Errorf("tmfetch: validators at height %d page %d: %w", height, page, err)
		}
		all = append(all, res.Validators...)
		if len(all) >= res.Total {
			break
		}
		page++
	}
	return blobstream.ValidatorSet{Set: cmtypes.NewValidatorSet(all)}, nil
}

// FetchSignedHeader retrieves the header and commit at a height.
func (c *Client) FetchSignedHeader(ctx context.Context, height blobstream.Height) (blobstream.SignedHeader, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return blobstream.SignedHeader{}, err
	}
	defer c.sem.Release(1)

	h := int64(height)
	res, err := c.rpc.Commit(ctx, &h)
	if err != nil {
		return blobstream.SignedHeader{}, fmt.Errorf("tmfetch: commit at height %d: %w", height, err)
	}
	return blobstream.SignedHeader{Header: &res.Header, Commit: res.Commit}, nil
}

// FetchTrustedLightBlock fetches the signed header at height plus the
// validator set that will sign height+1, forming a trust anchor.
func (c *Client) FetchTrustedLightBlock(ctx context.Context, height blobstream.Height) (blobstream.TrustedLightBlock, error) {
	var sh blobstream.SignedHeader
	var next blobstream.ValidatorSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sh, err = c.FetchSignedHeader(gctx, height); return })
	g.Go(func() (err error) { next, err = c.FetchValidators(gctx, height+1); return })
	if err := g.Wait(); err != nil {
		return blobstream.TrustedLightBlock{}, err
	}
	return blobstream.TrustedLightBlock{SignedHeader: sh, NextValidators: next}, nil
}

// FetchUntrustedLightBlock fetches the signed header at height plus the
// validator set that signed it.
func (c *Client) FetchUntrustedLightBlock(ctx context.Context, height blobstream.Height) (blobstream.UntrustedLightBlock, error) {
	var sh blobstream.SignedHeader
	var vals blobstream.ValidatorSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sh, err = c.FetchSignedHeader(gctx, height); return })
	g.Go(func() (err error) { vals, err = c.FetchValidators(gctx, height); return })
	if err := g.Wait(); err != nil {
		return blobstream.UntrustedLightBlock{}, err
	}
	return blobstream.UntrustedLightBlock{SignedHeader: sh, Validators: vals}, nil
}

// FetchUntrustedLightBlocks fetches every height in [from, to] inclusive
// as a full UntrustedLightBlock, one goroutine per height. The client's
// semaphore (shared with every other fetch method) still bounds the
// total number of in-flight RPC calls to maxConcurrentFetches regardless
// of how many heights are requested, so advanceRange's candidate window
// gets the same bounded-concurrency guarantee FetchHeaders gives plain
// header backfills, without losing the per-candidate commit and
// validator data the range iterator's binary search needs.
func (c *Client) FetchUntrustedLightBlocks(ctx context.Context, from, to blobstream.Height) ([]blobstream.UntrustedLightBlock, error) {
	if to < from {
		return nil, fmt.Errorf("tmfetch: invalid range [%d,%d]", from, to)
	}

	n := int(to-from) + 1
	blocks := make([]blobstream.UntrustedLightBlock, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		h := from + blobstream.Height(i)
		g.Go(func() error {
			ub, err := c.FetchUntrustedLightBlock(gctx, h)
			if err != nil {
				return err
			}
			blocks[i] = ub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// headerChunk is one contiguous span of heights to fetch in a single
// BlockchainInfo call.
type headerChunk struct {
	lo, hi blobstream.Height
}

// splitHeaderChunks divides [from, to] into ascending, non-overlapping
// spans of at most headerChunkSize heights each. Pulled out of
// FetchHeaders so the chunk-boundary arithmetic is exercisable without an
// RPC endpoint.
func splitHeaderChunks(from, to blobstream.Height) []headerChunk {
	var chunks []headerChunk
	for lo := from; lo <= to; lo += headerChunkSize {
		hi := lo + headerChunkSize - 1
		if hi > to {
			hi = to
		}
		chunks = append(chunks, headerChunk{lo: lo, hi: hi})
	}
	return chunks
}

// FetchHeaders retrieves every plain header in [from, to] inclusive, in
// ascending height order. It splits the range into chunks of at most
// headerChunkSize (the node's own per-call limit) and fetches chunks
// concurrently, bounded by maxConcurrentFetches.
//
// This only returns cmtypes.Header values, not commits or validator
// sets, so it cannot stand in for FetchUntrustedLightBlock(s): the range
// iterator's binary search calls lightclient.VerifySkip against
// candidate heights it has not chosen yet, and that verification needs
// each candidate's full signed commit and validator set, not just its
// header. FetchHeaders exists for callers that only need the
// hash-chained header spine itself, such as building
// LightBlockProveData.IntervalHeaders directly from a known skip result.
func (c *Client) FetchHeaders(ctx context.Context, from, to blobstream.Height) ([]*cmtypes.Header, error) {
	if to < from {
		return nil, fmt.Errorf("tmfetch: invalid range [%d,%d]", from, to)
	}

	chunks := splitHeaderChunks(from, to)
	results := make([][]*cmtypes.Header, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			headers, err := c.fetchHeaderChunk(gctx, ch.lo, ch.hi)
			if err != nil {
				return err
			}
			results[i] = headers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*cmtypes.Header
	for _, r := range results {
		all = append(all, r...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Height < all[j].Height })
	return all, nil
}

// fetchHeaderChunk retrieves one contiguous span of at most
// headerChunkSize headers. The RPC's blockchain endpoint returns block
// metas newest-first; this reverses them into ascending height order
// before returning.
func (c *Client) fetchHeaderChunk(ctx context.Context, lo, hi blobstream.Height) ([]*cmtypes.Header, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	res, err := c.rpc.BlockchainInfo(ctx, int64(lo), int64(hi))
	if err != nil {
		return nil, fmt.Errorf("tmfetch: blockchain info [%d,%d]: %w", lo, hi, err)
	}
	headers := make([]*cmtypes.Header, len(res.BlockMetas))
	n := len(res.BlockMetas)
	for i, meta := range res.BlockMetas {
		headers[n-1-i] = &meta.Header
	}
	return headers, nil
}
