package signature

import (
	"bytes"
	"testing"

	"github.com/sblosser/bdiff/internal/blockhash"
)

func buildIndex(t *testing.T, basis []byte, blockSize uint32) *Index {
	t.Helper()
	var buf bytes.Buffer
	if _, err := Write(&buf, bytes.NewReader(basis), blockSize); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	sig, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return NewIndex(sig)
}

func TestIndex_LookupFindsBlock(t *testing.T) {
	basis := []byte("AAAABBBBCCCC")
	ix := buildIndex(t, basis, 4)

	idx, ok := ix.Lookup(blockhash.SumBlock([]byte("BBBB")))
	if !ok {
		t.Fatal("expected a match for BBBB")
	}
	if idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
}

func TestIndex_LookupMiss(t *testing.T) {
	ix := buildIndex(t, []byte("AAAABBBB"), 4)
	if _, ok := ix.Lookup(blockhash.SumBlock([]byte("ZZZZ"))); ok {
		t.Error("expected no match for absent content")
	}
}

func TestIndex_DuplicateBlocksLowestWins(t *testing.T) {
	// Blocks 0, 2, and 3 are identical; lookup must return 0.
	basis := []byte("AAAABBBBAAAAAAAA")
	ix := buildIndex(t, basis, 4)

	idx, ok := ix.Lookup(blockhash.SumBlock([]byte("AAAA")))
	if !ok {
		t.Fatal("expected a match for AAAA")
	}
	if idx != 0 {
		t.Errorf("tie-break must choose the lowest index, got %d", idx)
	}
}

func TestIndex_LengthMustMatch(t *testing.T) {
	// Basis ends with a 2-byte tail block "AA" at index 1.
	basis := []byte("XXXXAA")
	ix := buildIndex(t, basis, 4)

	idx, ok := ix.Lookup(blockhash.SumBlock([]byte("AA")))
	if !ok {
		t.Fatal("expected a match for the tail block")
	}
	if idx != 1 {
		t.Errorf("expected tail index 1, got %d", idx)
	}

	// Same digest can never be produced for different lengths by the
	// hash, but the index must still refuse a candidate whose length
	// disagrees with the descriptor.
	sum := blockhash.SumBlock([]byte("AA"))
	sum.Length = 4
	if _, ok := ix.Lookup(sum); ok {
		t.Error("lookup must require an exact length match")
	}
}

func TestIndex_BlockSize(t *testing.T) {
	ix := buildIndex(t, []byte("AAAABBBB"), 4)
	if ix.BlockSize() != 4 {
		t.Errorf("expected block size 4, got %d", ix.BlockSize())
	}
}
