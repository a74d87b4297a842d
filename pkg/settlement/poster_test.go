package settlement

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/certen/blobstream0/pkg/blobstream"
	"github.com/certen/blobstream0/pkg/contractbind"
)

type fakeProvider struct {
	sentTo   common.Address
	sentData []byte
	txHash   common.Hash
	status   uint64
	sendErr  error
	waitErr  error
}

func (f *fakeProvider) SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sentTo = to
	f.sentData = data
	return f.txHash, nil
}

func (f *fakeProvider) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &types.Receipt{Status: f.status}, nil
}

func (f *fakeProvider) CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return nil, nil
}

func TestPostBatchSucceeds(t *testing.T) {
	contract := contractbind.New(common.HexToAddress("0x1111111111111111111111111111111111111111"), nil)
	provider := &fakeProvider{txHash: common.HexToHash("0xabc"), status: 1}

	receipt := Receipt{
		Commitment: blobstream.RangeCommitment{NewHeight: 42},
		Seal:       []byte{0, 0, 0, 0},
	}
	if err := PostBatch(context.Background(), provider, contract, 200000, receipt); err != nil {
		t.Fatalf("PostBatch: %v", err)
	}
	if provider.sentTo != contract.Address() {
		t.Fatalf("sent to %s, want %s", provider.sentTo, contract.Address())
	}
	if len(provider.sentData) == 0 {
		t.Fatal("expected non-empty calldata")
	}
}

func TestPostBatchFailsOnRevert(t *testing.T) {
	contract := contractbind.New(common.HexToAddress("0x1111111111111111111111111111111111111111"), nil)
	provider := &fakeProvider{txHash: common.HexToHash("0xabc"), status: 0}

	receipt := Receipt{Commitment: blobstream.RangeCommitment{NewHeight: 42}, Seal: []byte{0, 0, 0, 0}}
	if err := PostBatch(context.Background(), provider, contract, 200000, receipt); err == nil {
		t.Fatal("expected an error for a reverted transaction")
	}
}
