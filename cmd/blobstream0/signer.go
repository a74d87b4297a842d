// Copyright 2025 Certen Protocol
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/core/types"
)

func bigChainID(id int64) *big.Int { return big.NewInt(id) }

// httpExternalSigner delegates transaction signing to a remote custody
// service over HTTP: the unsigned transaction goes out RLP-encoded, a
// signed transaction comes back the same way. Grounded on the same
// external-signer shape the CLI's custody filler uses, generalized from a
// single named provider to a plain HTTP contract any signer can implement.
type httpExternalSigner struct {
	url    string
	client *http.Client
}

func newHTTPExternalSigner(url string) *httpExternalSigner {
	return &httpExternalSigner{url: url, client: &http.Client{}}
}

type signRequest struct {
	RawTransaction []byte `json:"raw_transaction"`
}

type signResponse struct {
	SignedTransaction []byte `json:"signed_transaction"`
}

func (s *httpExternalSigner) SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("signer: marshal unsigned transaction: %w", err)
	}

	body, err := json.Marshal(signRequest{RawTransaction: raw})
	if err != nil {
		return nil, fmt.Errorf("signer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("signer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer: request to %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("signer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer: %s returned %d: %s", s.url, resp.StatusCode, respBody)
	}

	var sr signResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("signer: unmarshal response: %w", err)
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(sr.SignedTransaction); err != nil {
		return nil, fmt.Errorf("signer: unmarshal signed transaction: %w", err)
	}
	return signed, nil
}
