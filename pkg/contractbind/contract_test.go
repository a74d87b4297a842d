// Copyright 2025 Certen Protocol
package contractbind

import "testing"

// TestPackUpdateRangeArgumentOrder pins updateRange's on-chain argument
// order to journal-first: both parameters are `bytes`, so a
// swapped-argument call would share the same selector and the contract
// would silently decode the seal as the journal.
func TestPackUpdateRangeArgumentOrder(t *testing.T) {
	c := New([20]byte{}, nil)
	journal := []byte{0xaa, 0xbb, 0xcc}
	seal := []byte{0x11, 0x22}

	data, err := c.PackUpdateRange(journal, seal)
	if err != nil {
		t.Fatalf("PackUpdateRange: %v", err)
	}

	method := parsedABI.Methods["updateRange"]
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	gotJournal, ok := args[0].([]byte)
	if !ok || string(gotJournal) != string(journal) {
		t.Fatalf("expected first argument to be the journal %x, got %v", journal, args[0])
	}
	gotSeal, ok := args[1].([]byte)
	if !ok || string(gotSeal) != string(seal) {
		t.Fatalf("expected second argument to be the seal %x, got %v", seal, args[1])
	}
}
