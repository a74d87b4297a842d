// Copyright 2025 Certen Protocol
package guestproof

import (
	"testing"
	"time"

	cmtypes "github.com/cometbft/cometbft/types"

	"github.com/certen/blobstream0/pkg/blobstream"
)

// TestProveInputRoundTrip exercises the host->guest wire boundary: encode
// a LightBlockProveData (including interval headers) and decode it back,
// checking the result is structurally identical per spec §8's "transmitting
// ... yields the same struct" property.
func TestProveInputRoundTrip(t *testing.T) {
	keys, set := buildValidatorSet(t, 4, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trustedSH := signedHeaderAt(t, 100, now, nil, []byte("data-100-filler-32-bytes-long!!!"), keys, set)
	trusted := blobstream.TrustedLightBlock{
		SignedHeader:   trustedSH,
		NextValidators: blobstream.ValidatorSet{Set: set},
	}

	prevHash := trustedSH.Header.Hash()
	var headers []*cmtypes.Header
	for h := int64(101); h <= 103; h++ {
		sh := signedHeaderAt(t, h, now.Add(time.Duration(h)*time.Second), prevHash, []byte("data-filler-32-bytes-long-here!!"), keys, set)
		headers = append(headers, sh.Header)
		prevHash = sh.Header.Hash()
	}

	untrustedSH := signedHeaderAt(t, 104, now.Add(10*time.Second), prevHash, []byte("data-104-filler-32-bytes-long!!!"), keys, set)
	untrusted := blobstream.UntrustedLightBlock{
		SignedHeader: untrustedSH,
		Validators:   blobstream.ValidatorSet{Set: set},
	}

	data := blobstream.LightBlockProveData{
		Trusted:         trusted,
		IntervalHeaders: headers,
		Untrusted:       untrusted,
	}
	if err := data.Validate(); err != nil {
		t.Fatalf("fixture failed structural validation: %v", err)
	}

	wire, err := EncodeProveInput(data)
	if err != nil {
		t.Fatalf("EncodeProveInput: %v", err)
	}
	got, err := DecodeProveInput(wire)
	if err != nil {
		t.Fatalf("DecodeProveInput: %v", err)
	}

	if got.Trusted.Height() != data.Trusted.Height() {
		t.Fatalf("trusted height = %d, want %d", got.Trusted.Height(), data.Trusted.Height())
	}
	if got.Trusted.SignedHeader.Hash() != data.Trusted.SignedHeader.Hash() {
		t.Fatal("trusted signed header hash changed across round trip")
	}
	if got.Untrusted.Height() != data.Untrusted.Height() {
		t.Fatalf("untrusted height = %d, want %d", got.Untrusted.Height(), data.Untrusted.Height())
	}
	if got.Untrusted.SignedHeader.Hash() != data.Untrusted.SignedHeader.Hash() {
		t.Fatal("untrusted signed header hash changed across round trip")
	}
	if len(got.IntervalHeaders) != len(data.IntervalHeaders) {
		t.Fatalf("interval header count = %d, want %d", len(got.IntervalHeaders), len(data.IntervalHeaders))
	}
	for i := range data.IntervalHeaders {
		if string(got.IntervalHeaders[i].Hash()) != string(data.IntervalHeaders[i].Hash()) {
			t.Fatalf("interval header %d hash changed across round trip", i)
		}
	}
	if got.Trusted.NextValidators.Hash() != data.Trusted.NextValidators.Hash() {
		t.Fatal("trusted next-validators hash changed across round trip")
	}
	if got.Untrusted.Validators.Hash() != data.Untrusted.Validators.Hash() {
		t.Fatal("untrusted validators hash changed across round trip")
	}
}
