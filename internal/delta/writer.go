package delta

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/wire"
)

// headerSize is magic + version + block size + basis size.
const headerSize = 4 + 1 + 4 + 8

// Writer serializes a delta stream: header first, then instructions in
// order, then the checksum trailer via Close.
type Writer struct {
	w      io.Writer
	closed bool
}

// NewWriter writes the delta header and returns a Writer for the
// instruction stream. basisSize echoes the size of the basis the
// signature was taken from, so the patch side can reject a wrong basis
// before writing anything.
func NewWriter(w io.Writer, blockSize uint32, basisSize uint64) (*Writer, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("%w: block size must be positive", wire.ErrFormat)
	}
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], wire.DeltaMagic)
	header[4] = wire.Version
	binary.BigEndian.PutUint32(header[5:9], blockSize)
	binary.BigEndian.PutUint64(header[9:17], basisSize)
	if _, err := w.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write delta header: %w", err)
	}
	return &Writer{w: w}, nil
}

// Copy emits an instruction to reuse the basis block at index.
func (w *Writer) Copy(index uint32) error {
	var buf [5]byte
	buf[0] = wire.TagCopy
	binary.BigEndian.PutUint32(buf[1:], index)
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("write copy instruction: %w", err)
	}
	return nil
}

// Literal emits an instruction carrying p verbatim. Callers are
// expected to merge adjacent literal runs before calling; the format
// itself does not forbid adjacent literals.
func (w *Writer) Literal(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	var buf [9]byte
	buf[0] = wire.TagLiteral
	binary.BigEndian.PutUint64(buf[1:], uint64(len(p)))
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("write literal instruction: %w", err)
	}
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("write literal payload: %w", err)
	}
	return nil
}

// Close terminates the stream with the whole-file checksum trailer.
// A delta without the trailer is treated as corrupt by the reader.
func (w *Writer) Close(sum blockhash.Digest) error {
	if w.closed {
		return nil
	}
	w.closed = true
	var buf [1 + blockhash.DigestSize]byte
	buf[0] = wire.TagChecksum
	copy(buf[1:], sum[:])
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("write delta checksum: %w", err)
	}
	return nil
}
