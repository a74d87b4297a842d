// Copyright 2025 Certen Protocol
//
// TransactionProvider abstracts how a settlement transaction gets signed
// and broadcast: locally, with a private key held by this process, or
// externally, delegated to a remote signer (a custody service, an HSM).
// Generalized from the attestation strategy interface pattern, with the
// gas-price escalation and retryable-error handling lifted from the
// single-chain Ethereum client.
package settlement

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TransactionProvider sends a transaction to a contract address and waits
// for its inclusion, independent of how the transaction gets signed.
type TransactionProvider interface {
	SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

const (
	maxSendRetries  = 5
	retryBackoff    = 2 * time.Second
	minGasPriceWei  = 5_000_000_000 // 5 Gwei floor, matching mainnet inclusion practice
	gasEscalationPct = 20           // +20% gas price per retry
)

// LocalSignerProvider signs transactions in-process with a held private
// key.
type LocalSignerProvider struct {
	client     *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	from       common.Address
}

// NewLocalSignerProvider constructs a LocalSignerProvider from a raw
// private key and the chain's ID (required for EIP-155 signing).
func NewLocalSignerProvider(client *ethclient.Client, chainID *big.Int, privateKey *ecdsa.PrivateKey) *LocalSignerProvider {
	pub := privateKey.Public().(*ecdsa.PublicKey)
	return &LocalSignerProvider{
		client:     client,
		chainID:    chainID,
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(*pub),
	}
}

// SendTransaction signs and broadcasts a call to `to`, retrying with
// escalating gas price on nonce/underpriced races.
func (p *LocalSignerProvider) SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	var lastErr error
	for attempt := 0; attempt < maxSendRetries; attempt++ {
		nonce, err := p.client.PendingNonceAt(ctx, p.from)
		if err != nil {
			return common.Hash{}, fmt.Errorf("settlement: get nonce: %w", err)
		}

		gasPrice, err := p.escalatedGasPrice(ctx, attempt)
		if err != nil {
			return common.Hash{}, err
		}

		tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
		signedTx, err := types.SignTx(tx, types.NewEIP155Signer(p.chainID), p.privateKey)
		if err != nil {
			return common.Hash{}, fmt.Errorf("settlement: sign transaction: %w", err)
		}

		err = p.client.SendTransaction(ctx, signedTx)
		if err == nil {
			return signedTx.Hash(), nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxSendRetries-1 {
			return common.Hash{}, fmt.Errorf("settlement: send transaction (attempt %d/%d): %w", attempt+1, maxSendRetries, err)
		}
		select {
		case <-ctx.Done():
			return common.Hash{}, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return common.Hash{}, fmt.Errorf("settlement: exhausted retries: %w", lastErr)
}

func (p *LocalSignerProvider) escalatedGasPrice(ctx context.Context, attempt int) (*big.Int, error) {
	base, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement: suggest gas price: %w", err)
	}
	floor := big.NewInt(minGasPriceWei)
	if base.Cmp(floor) < 0 {
		base = floor
	}
	if attempt == 0 {
		return base, nil
	}
	multiplier := big.NewInt(int64(100 + gasEscalationPct*attempt))
	escalated := new(big.Int).Mul(base, multiplier)
	return escalated.Div(escalated, big.NewInt(100)), nil
}

func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "replacement transaction underpriced") ||
		strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "already known")
}

// WaitForReceipt polls for a transaction's receipt until it is mined or
// ctx is done.
func (p *LocalSignerProvider) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return waitForReceipt(ctx, p.client, txHash)
}

// CallView executes a read-only call against `to`.
func (p *LocalSignerProvider) CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return p.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func waitForReceipt(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("settlement: waiting for receipt of %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ExternalSigner delegates transaction signing to an out-of-process
// authority (a custody service, an HSM-backed signer): it is handed an
// unsigned transaction and returns it signed, never seeing (or this
// process needing) the private key.
type ExternalSigner interface {
	SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// ExternalSignerProvider sends transactions whose signing is delegated to
// an ExternalSigner, for deployments where this process must never hold
// settlement key material.
type ExternalSignerProvider struct {
	client *ethclient.Client
	from   common.Address
	signer ExternalSigner
}

// NewExternalSignerProvider constructs an ExternalSignerProvider. from is
// the address the external signer will produce signatures for.
func NewExternalSignerProvider(client *ethclient.Client, from common.Address, signer ExternalSigner) *ExternalSignerProvider {
	return &ExternalSignerProvider{client: client, from: from, signer: signer}
}

// SendTransaction builds an unsigned transaction, hands it to the
// external signer, and broadcasts the result.
func (p *ExternalSignerProvider) SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := p.client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("settlement: get nonce: %w", err)
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("settlement: suggest gas price: %w", err)
	}
	floor := big.NewInt(minGasPriceWei)
	if gasPrice.Cmp(floor) < 0 {
		gasPrice = floor
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := p.signer.SignTransaction(ctx, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("settlement: external signer: %w", err)
	}
	if err := p.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("settlement: send externally-signed transaction: %w", err)
	}
	return signedTx.Hash(), nil
}

// WaitForReceipt polls for a transaction's receipt until it is mined or
// ctx is done.
func (p *ExternalSignerProvider) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return waitForReceipt(ctx, p.client, txHash)
}

// CallView executes a read-only call against `to`.
func (p *ExternalSignerProvider) CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return p.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}
