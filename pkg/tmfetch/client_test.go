// Copyright 2025 Certen Protocol
package tmfetch

import (
	"testing"

	"github.com/certen/blobstream0/pkg/blobstream"
)

func TestSplitHeaderChunksEvenlyDivides(t *testing.T) {
	chunks := splitHeaderChunks(blobstream.Height(100), blobstream.Height(139))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks for a 40-height span, got %d", len(chunks))
	}
	if chunks[0].lo != 100 || chunks[0].hi != 119 {
		t.Fatalf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].lo != 120 || chunks[1].hi != 139 {
		t.Fatalf("unexpected second chunk: %+v", chunks[1])
	}
}

func TestSplitHeaderChunksPartialLastChunk(t *testing.T) {
	chunks := splitHeaderChunks(blobstream.Height(1), blobstream.Height(25))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].lo != 21 || chunks[1].hi != 25 {
		t.Fatalf("expected a short trailing chunk [21,25], got %+v", chunks[1])
	}
}

func TestSplitHeaderChunksSingleHeight(t *testing.T) {
	chunks := splitHeaderChunks(blobstream.Height(7), blobstream.Height(7))
	if len(chunks) != 1 || chunks[0].lo != 7 || chunks[0].hi != 7 {
		t.Fatalf("expected a single [7,7] chunk, got %+v", chunks)
	}
}
