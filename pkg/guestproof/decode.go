// Copyright 2025 Certen Protocol
//
// Encodes and decodes the prove-input wire format the host driver
// (pkg/prover) feeds into a proving run: a trusted light block, zero or
// more interval headers, and the untrusted target block, each
// length-delimited and protobuf-encoded the way cometbft's own
// RPC/ABCI wire types are. EncodeProveInput lives in encode.go;
// DecodeProveInput (this file) is its exact counterpart.
package guestproof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	tmproto "github.com/cometbft/cometbft/proto/tendermint/types"
	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
)

// DecodeProveInput parses the framed byte stream produced by the host into
// a LightBlockProveData, per spec §4.3 step 1. Frames are
// length-delimited: a little-endian uint32 byte count followed by that
// many protobuf-encoded bytes.
func DecodeProveInput(input []byte) (blobstream.LightBlockProveData, error) {
	r := bytes.NewReader(input)

	trustedSH, err := readSignedHeader(r)
	if err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("decode trusted signed header: %w", err)
	}
	trustedNextVals, err := readValidatorSet(r)
	if err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("decode trusted next validators: %w", err)
	}
	untrustedSH, err := readSignedHeader(r)
	if err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("decode untrusted signed header: %w", err)
	}
	untrustedVals, err := readValidatorSet(r)
	if err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("decode untrusted validators: %w", err)
	}

	var interval []*cmtypes.Header
	for r.Len() > 0 {
		h, err := readHeader(r)
		if err != nil {
			return blobstream.LightBlockProveData{}, fmt.Errorf("decode interval header %d: %w", len(interval), err)
		}
		interval = append(interval, h)
	}

	data := blobstream.LightBlockProveData{
		Trusted: blobstream.TrustedLightBlock{
			SignedHeader:   trustedSH,
			NextValidators: blobstream.ValidatorSet{Set: trustedNextVals},
		},
		IntervalHeaders: interval,
		Untrusted: blobstream.UntrustedLightBlock{
			SignedHeader: untrustedSH,
			Validators:   blobstream.ValidatorSet{Set: untrustedVals},
		},
	}
	if err := data.Validate(); err != nil {
		return blobstream.LightBlockProveData{}, fmt.Errorf("prove input failed structural validation: %w", err)
	}
	return data, nil
}

// readFrame consumes one length-delimited frame: a little-endian uint32
// byte count followed by that many bytes.
func readFrame(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read frame body (%d bytes): %w", length, err)
	}
	return buf, nil
}

func readSignedHeader(r *bytes.Reader) (blobstream.SignedHeader, error) {
	buf, err := readFrame(r)
	if err != nil {
		return blobstream.SignedHeader{}, err
	}
	var pb tmproto.SignedHeader
	if err := pb.Unmarshal(buf); err != nil {
		return blobstream.SignedHeader{}, fmt.Errorf("unmarshal signed header: %w", err)
	}
	sh, err := cmtypes.SignedHeaderFromProto(&pb)
	if err != nil {
		return blobstream.SignedHeader{}, fmt.Errorf("signed header from proto: %w", err)
	}
	return blobstream.SignedHeader{Header: sh.Header, Commit: sh.Commit}, nil
}

func readValidatorSet(r *bytes.Reader) (*cmtypes.ValidatorSet, error) {
	buf, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	var pb tmproto.ValidatorSet
	if err := pb.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("unmarshal validator set: %w", err)
	}
	set, err := cmtypes.ValidatorSetFromProto(&pb)
	if err != nil {
		return nil, fmt.Errorf("validator set from proto: %w", err)
	}
	return set, nil
}

func readHeader(r *bytes.Reader) (*cmtypes.Header, error) {
	buf, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	var pb tmproto.Header
	if err := pb.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("unmarshal header: %w", err)
	}
	h, err := cmtypes.HeaderFromProto(&pb)
	if err != nil {
		return nil, fmt.Errorf("header from proto: %w", err)
	}
	return &h, nil
}
