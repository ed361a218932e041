package signature

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/wire"
)

func makeBasis(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func roundTrip(t *testing.T, basis []byte, blockSize uint32) (*Signature, Stats) {
	t.Helper()
	var buf bytes.Buffer
	stats, err := Write(&buf, bytes.NewReader(basis), blockSize)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	sig, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return sig, stats
}

func TestWriteRead_RoundTrip(t *testing.T) {
	basis := makeBasis(1000)
	sig, stats := roundTrip(t, basis, 256)

	if sig.BlockSize != 256 {
		t.Errorf("expected block size 256, got %d", sig.BlockSize)
	}
	if len(sig.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(sig.Blocks))
	}
	if stats.Blocks != 4 || stats.Bytes != 1000 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	for i := 0; i < 3; i++ {
		if sig.Blocks[i].Length != 256 {
			t.Errorf("block %d expected length 256, got %d", i, sig.Blocks[i].Length)
		}
	}
	// 1000 mod 256 = 232: tail block is short.
	if sig.Blocks[3].Length != 232 {
		t.Errorf("tail block expected length 232, got %d", sig.Blocks[3].Length)
	}

	for i, d := range sig.Blocks {
		start := i * 256
		end := start + int(d.Length)
		if d.Digest != blockhash.Sum(basis[start:end]) {
			t.Errorf("block %d digest does not match content", i)
		}
	}
}

func TestWriteRead_ExactMultiple(t *testing.T) {
	sig, _ := roundTrip(t, makeBasis(512), 256)
	if len(sig.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(sig.Blocks))
	}
	if sig.Blocks[1].Length != 256 {
		t.Errorf("final block of an exact multiple must be full size, got %d", sig.Blocks[1].Length)
	}
}

func TestWriteRead_EmptyBasis(t *testing.T) {
	sig, stats := roundTrip(t, nil, 256)
	if len(sig.Blocks) != 0 {
		t.Errorf("empty basis must produce no descriptors, got %d", len(sig.Blocks))
	}
	if stats.Blocks != 0 || stats.Bytes != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if sig.BasisSize() != 0 {
		t.Errorf("expected basis size 0, got %d", sig.BasisSize())
	}
}

func TestBasisSize(t *testing.T) {
	sig, _ := roundTrip(t, makeBasis(1000), 256)
	if sig.BasisSize() != 1000 {
		t.Errorf("expected basis size 1000, got %d", sig.BasisSize())
	}
}

func TestWrite_ZeroBlockSize(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, bytes.NewReader(nil), 0)
	if !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestRead_BadMagic(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Write(&buf, bytes.NewReader(makeBasis(100)), 64); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[0] ^= 0xFF

	_, err := Read(bytes.NewReader(raw))
	if !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestRead_BadVersion(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Write(&buf, bytes.NewReader(makeBasis(100)), 64); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[4] = 99

	_, err := Read(bytes.NewReader(raw))
	if !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestRead_TruncatedHeader(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{0x42, 0x53}))
	if !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestRead_TruncatedDescriptor(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Write(&buf, bytes.NewReader(makeBasis(300)), 64); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()

	_, err := Read(bytes.NewReader(raw[:len(raw)-1]))
	if !errors.Is(err, wire.ErrCorruptSignature) {
		t.Errorf("expected ErrCorruptSignature, got %v", err)
	}
}
