// Copyright 2025 Certen Protocol
package guestproof

import (
	"bytes"
	"encoding/binary"
	"fmt"

	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
)

// EncodeProveInput serializes a LightBlockProveData into the framed byte
// stream DecodeProveInput parses back out, per spec §4.3 step 1 / §9's
// serialization-determinism requirement: this is the one-shot byte
// boundary the host driver hands the guest, so the two functions must
// stay in exact lockstep (same frame order, same protobuf encoding).
func EncodeProveInput(data blobstream.LightBlockProveData) ([]byte, error) {
	var buf bytes.Buffer

	if err := writeSignedHeader(&buf, data.Trusted.SignedHeader); err != nil {
		return nil, fmt.Errorf("encode trusted signed header: %w", err)
	}
	if err := writeValidatorSet(&buf, data.Trusted.NextValidators.Set); err != nil {
		return nil, fmt.Errorf("encode trusted next validators: %w", err)
	}
	if err := writeSignedHeader(&buf, data.Untrusted.SignedHeader); err != nil {
		return nil, fmt.Errorf("encode untrusted signed header: %w", err)
	}
	if err := writeValidatorSet(&buf, data.Untrusted.Validators.Set); err != nil {
		return nil, fmt.Errorf("encode untrusted validators: %w", err)
	}
	for i, h := range data.IntervalHeaders {
		if err := writeHeader(&buf, h); err != nil {
			return nil, fmt.Errorf("encode interval header %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// writeFrame appends one length-delimited frame: a little-endian uint32
// byte count followed by payload.
func writeFrame(buf *bytes.Buffer, payload []byte) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := buf.Write(payload); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

func writeSignedHeader(buf *bytes.Buffer, sh blobstream.SignedHeader) error {
	cmSH := cmtypes.SignedHeader{Header: sh.Header, Commit: sh.Commit}
	pb := cmSH.ToProto()
	payload, err := pb.Marshal()
	if err != nil {
		return fmt.Errorf("marshal signed header: %w", err)
	}
	return writeFrame(buf, payload)
}

func writeValidatorSet(buf *bytes.Buffer, set *cmtypes.ValidatorSet) error {
	pb, err := set.ToProto()
	if err != nil {
		return fmt.Errorf("validator set to proto: %w", err)
	}
	payload, err := pb.Marshal()
	if err != nil {
		return fmt.Errorf("marshal validator set: %w", err)
	}
	return writeFrame(buf, payload)
}

func writeHeader(buf *bytes.Buffer, h *cmtypes.Header) error {
	pb := h.ToProto()
	payload, err := pb.Marshal()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	return writeFrame(buf, payload)
}
