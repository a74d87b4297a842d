// Copyright 2025 Certen Protocol
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/contractbind"
)

// inclusionTimeout bounds how long PostBatch waits for a posted range
// update to be mined before giving up and reporting an error to the
// caller's retry/backoff loop.
const inclusionTimeout = 300 * time.Second

// Receipt is the minimal shape PostBatch needs from a proving run: the
// journal to post and its seal.
type Receipt struct {
	Commitment blobstream.RangeCommitment
	Seal       []byte
}

// PostBatch posts one proven range update to the settlement contract and
// waits for inclusion.
func PostBatch(ctx context.Context, provider TransactionProvider, contract *contractbind.Contract, gasLimit uint64, receipt Receipt) error {
	journal, err := blobstream.EncodeJournal(receipt.Commitment)
	if err != nil {
		return fmt.Errorf("settlement: encode journal: %w", err)
	}
	calldata, err := contract.PackUpdateRange(journal, receipt.Seal)
	if err != nil {
		return fmt.Errorf("settlement: pack updateRange: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, inclusionTimeout)
	defer cancel()

	txHash, err := provider.SendTransaction(sendCtx, contract.Address(), calldata, gasLimit)
	if err != nil {
		return fmt.Errorf("settlement: send updateRange for height %d: %w", receipt.Commitment.NewHeight, err)
	}

	mined, err := provider.WaitForReceipt(sendCtx, txHash)
	if err != nil {
		return fmt.Errorf("settlement: wait for inclusion of %s (height %d): %w", txHash, receipt.Commitment.NewHeight, err)
	}
	if mined.Status != 1 {
		return fmt.Errorf("settlement: updateRange for height %d reverted in tx %s", receipt.Commitment.NewHeight, txHash)
	}
	return nil
}
