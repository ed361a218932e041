package delta

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/wire"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 4, 12)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Copy(2); err != nil {
		t.Fatal(err)
	}
	if err := w.Literal([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.Copy(0); err != nil {
		t.Fatal(err)
	}
	sum := blockhash.Sum([]byte("whatever"))
	if err := w.Close(sum); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.BlockSize() != 4 {
		t.Errorf("expected block size 4, got %d", r.BlockSize())
	}
	if r.BasisSize() != 12 {
		t.Errorf("expected basis size 12, got %d", r.BasisSize())
	}

	ins, err := r.Next()
	if err != nil || ins.Kind != Copy || ins.BlockIndex != 2 {
		t.Fatalf("expected Copy{2}, got %+v, %v", ins, err)
	}

	ins, err = r.Next()
	if err != nil || ins.Kind != Literal || ins.Length != 5 {
		t.Fatalf("expected Literal{5}, got %+v, %v", ins, err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read literal payload: %v", err)
	}
	if string(payload) != "hello" {
		t.Errorf("expected payload %q, got %q", "hello", payload)
	}

	ins, err = r.Next()
	if err != nil || ins.Kind != Copy || ins.BlockIndex != 0 {
		t.Fatalf("expected Copy{0}, got %+v, %v", ins, err)
	}

	if _, err = r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF at trailer, got %v", err)
	}
	got, ok := r.Checksum()
	if !ok {
		t.Fatal("checksum must be available after EOF")
	}
	if got != sum {
		t.Error("checksum does not round-trip")
	}
}

func TestReader_SkipsUnreadLiteral(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	w.Literal([]byte("abcdefgh"))
	w.Copy(1)
	w.Close(blockhash.Digest{})

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	// Do not read the payload; Next must skip it.
	ins, err := r.Next()
	if err != nil || ins.Kind != Copy || ins.BlockIndex != 1 {
		t.Fatalf("expected Copy{1} after skip, got %+v, %v", ins, err)
	}
}

func TestReader_AdjacentLiteralsTolerated(t *testing.T) {
	// The encoder never emits adjacent literals, but the format is
	// decoupled from the encoder and the decoder must accept them.
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	w.Literal([]byte("one"))
	w.Literal([]byte("two"))
	w.Close(blockhash.Digest{})

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	for {
		ins, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if ins.Kind != Literal {
			t.Fatalf("expected only literals, got %+v", ins)
		}
		if _, err := io.Copy(&out, r); err != nil {
			t.Fatal(err)
		}
	}
	if out.String() != "onetwo" {
		t.Errorf("expected %q, got %q", "onetwo", out.String())
	}
}

func TestReader_UnknownTag(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	w.Close(blockhash.Digest{})
	raw := buf.Bytes()
	raw[headerSize] = 'X' // overwrite the trailer tag

	r, err := NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestReader_MissingTrailer(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	w.Copy(0)

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); !errors.Is(err, wire.ErrCorruptDelta) {
		t.Errorf("expected ErrCorruptDelta, got %v", err)
	}
}

func TestReader_TruncatedLiteralPayload(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	w.Literal([]byte("0123456789"))
	w.Close(blockhash.Digest{})
	raw := buf.Bytes()

	// Cut the trailer plus one byte of the literal payload.
	raw = raw[:len(raw)-(1+blockhash.DigestSize)-1]

	r, err := NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	_, err = io.ReadAll(r)
	if !errors.Is(err, wire.ErrCorruptDelta) {
		t.Errorf("expected ErrCorruptDelta, got %v", err)
	}
}

func TestReader_TruncatedHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x42, 0x44}))
	if !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestReader_BadMagic(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	w.Close(blockhash.Digest{})
	raw := buf.Bytes()
	raw[0] ^= 0xFF

	_, err := NewReader(bytes.NewReader(raw))
	if !errors.Is(err, wire.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestWriter_EmptyLiteralElided(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 4, 0)
	if err := w.Literal(nil); err != nil {
		t.Fatal(err)
	}
	w.Close(blockhash.Digest{})

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("empty literal must not be written, got %v", err)
	}
}
