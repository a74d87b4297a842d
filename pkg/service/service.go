// Copyright 2025 Certen Protocol
//
// The bridge's main loop: read both chains' heads, iterate the resulting
// gap through pkg/rangeiter, prove and post each sub-range, sleep in
// proportion to the shortfall while Tendermint is short of a full batch
// beyond the trusted cursor, and retry the whole
// cycle under backoff on any failure. Parallel reads and joined error
// handling are done with errgroup, the same pattern pkg/tmfetch uses for
// concurrent RPC calls.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/contractbind"
	"github.com/certen/blobstream0/pkg/lightclient"
	"github.com/certen/blobstream0/pkg/prover"
	"github.com/certen/blobstream0/pkg/rangeiter"
	"github.com/certen/blobstream0/pkg/settlement"
	"github.com/certen/blobstream0/pkg/tmfetch"
)

// Recorder receives observability updates from the service loop. The
// metrics package's implementation feeds these into Prometheus gauges and
// counters; tests can use a no-op implementation.
type Recorder interface {
	SetTrustedHeight(height uint64)
	SetTendermintHeight(height uint64)
	IncProofAttempts()
	IncProofFailures()
	SetBackoffSeconds(seconds float64)
}

type noopRecorder struct{}

func (noopRecorder) SetTrustedHeight(uint64)    {}
func (noopRecorder) SetTendermintHeight(uint64) {}
func (noopRecorder) IncProofAttempts()          {}
func (noopRecorder) IncProofFailures()          {}
func (noopRecorder) SetBackoffSeconds(float64)  {}

// Config fixes the service's tunable knobs.
type Config struct {
	// BatchSize is the minimum number of new Tendermint heights required
	// beyond the trusted cursor before the service attempts a proof; below
	// that, runOnce sleeps and restarts rather than proving a short range.
	BatchSize uint64
	GasLimit  uint64
}

// Service wires the fetcher, range iterator, prover, and settlement
// poster into the running bridge loop.
type Service struct {
	tm       *tmfetch.Client
	contract *contractbind.Contract
	provider settlement.TransactionProvider
	prover   *prover.Prover
	cfg      Config
	backoff  Backoff
	rec      Recorder
}

// New constructs a Service. rec may be nil, in which case observability
// calls are no-ops.
func New(tm *tmfetch.Client, contract *contractbind.Contract, provider settlement.TransactionProvider, p *prover.Prover, cfg Config, rec Recorder) *Service {
	if rec == nil {
		rec = noopRecorder{}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1024
	}
	return &Service{tm: tm, contract: contract, provider: provider, prover: p, cfg: cfg, backoff: DefaultBackoff(), rec: rec}
}

// Run drives the bridge forever, until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var sleepFor time.Duration
		err := s.backoff.Run(ctx, func(ctx context.Context) error {
			d, err := s.runOnce(ctx)
			if err != nil {
				s.rec.IncProofFailures()
				return err
			}
			sleepFor = d
			return nil
		})
		if err != nil {
			return fmt.Errorf("service: run loop stopped: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
}

// runOnce executes a single read-prove-post cycle per spec §4.8: three
// parallel reads, trusted = ethVerifiedHeight + 1, untrustedUpper =
// trusted + BatchSize. If Tendermint hasn't produced untrustedUpper yet,
// it sleeps 10s plus 3s per height of remaining deficit and proves
// nothing this cycle; otherwise it proves and posts exactly that range
// and returns a steady 10s sleep.
func (s *Service) runOnce(ctx context.Context) (time.Duration, error) {
	var ethVerifiedHeight uint64
	var ethVerifiedHash blobstream.Hash
	var tmHeight blobstream.Height

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.contract.LatestHeight(gctx)
		ethVerifiedHeight = h
		return err
	})
	g.Go(func() error {
		h, err := s.contract.LatestBlockHash(gctx)
		ethVerifiedHash = h
		return err
	})
	g.Go(func() error {
		h, err := s.tm.LatestHeight(gctx)
		tmHeight = h
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("service: read chain heads: %w", err)
	}
	// TODO check ethVerifiedHash against the Tendermint node as a sanity check.
	_ = ethVerifiedHash

	s.rec.SetTrustedHeight(ethVerifiedHeight)
	s.rec.SetTendermintHeight(uint64(tmHeight))

	trusted := blobstream.Height(ethVerifiedHeight + 1)
	untrustedUpper := trusted + blobstream.Height(s.cfg.BatchSize)

	if untrustedUpper > tmHeight {
		deficit := int64(untrustedUpper) - int64(tmHeight)
		return time.Duration(10+3*deficit) * time.Second, nil
	}

	if err := s.advanceRange(ctx, blobstream.Height(ethVerifiedHeight), untrustedUpper-1); err != nil {
		return 0, err
	}

	return 10 * time.Second, nil
}

// advanceRange proves and posts every sub-range between the trusted
// anchor height (exclusive) and to (inclusive).
func (s *Service) advanceRange(ctx context.Context, from, to blobstream.Height) error {
	trusted, err := s.tm.FetchTrustedLightBlock(ctx, from)
	if err != nil {
		return fmt.Errorf("service: fetch trusted light block at %d: %w", from, err)
	}

	blocks, err := s.tm.FetchUntrustedLightBlocks(ctx, from+1, to)
	if err != nil {
		return fmt.Errorf("service: fetch untrusted light blocks [%d,%d]: %w", from+1, to, err)
	}

	it := rangeiter.New(trusted, blocks, fetcherAdapter{s.tm}, lightclient.DefaultOptions())
	for !it.Done() {
		data, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("service: range iteration: %w", err)
		}

		signedPower, totalPower, err := lightclient.TallyVotingPower(data.Trusted, data.Untrusted)
		if err != nil {
			return fmt.Errorf("service: tally voting power: %w", err)
		}

		s.rec.IncProofAttempts()
		proofReceipt, err := s.prover.ProveBlock(ctx, data, signedPower, totalPower)
		if err != nil {
			return fmt.Errorf("service: prove block at %d: %w", data.Untrusted.Height(), err)
		}

		log.Printf("proved range %d -> %d, posting to settlement", data.Trusted.Height(), data.Untrusted.Height())
		err = settlement.PostBatch(ctx, s.provider, s.contract, s.cfg.GasLimit, settlement.Receipt{
			Commitment: proofReceipt.Commitment,
			Seal:       proofReceipt.Seal,
		})
		if err != nil {
			return fmt.Errorf("service: post range %d -> %d: %w", data.Trusted.Height(), data.Untrusted.Height(), err)
		}
	}
	return nil
}

// fetcherAdapter satisfies rangeiter.Fetcher over a tmfetch.Client.
type fetcherAdapter struct {
	tm *tmfetch.Client
}

func (f fetcherAdapter) NextValidators(ctx context.Context, afterHeight blobstream.Height) (blobstream.ValidatorSet, error) {
	return f.tm.FetchValidators(ctx, afterHeight+1)
}
