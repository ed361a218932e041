package delta

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/wire"
)

// Reader is a forward-only streaming decoder for a delta stream,
// in the style of archive/tar: Next advances to the next instruction,
// and when that instruction is a Literal its payload is consumed
// through Read. Instructions are produced lazily, so a delta of any
// size decodes in constant memory.
type Reader struct {
	r         *bufio.Reader
	blockSize uint32
	basisSize uint64

	remaining uint64 // unread payload of the current literal
	checksum  blockhash.Digest
	done      bool
}

// NewReader parses the delta header and returns a Reader positioned at
// the first instruction.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	var header [headerSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: delta header incomplete", wire.ErrFormat)
		}
		return nil, fmt.Errorf("read delta header: %w", err)
	}

	if magic := binary.BigEndian.Uint32(header[0:4]); magic != wire.DeltaMagic {
		return nil, fmt.Errorf("%w: bad delta magic %#08x", wire.ErrFormat, magic)
	}
	if header[4] != wire.Version {
		return nil, fmt.Errorf("%w: unsupported delta version %d", wire.ErrFormat, header[4])
	}
	blockSize := binary.BigEndian.Uint32(header[5:9])
	if blockSize == 0 {
		return nil, fmt.Errorf("%w: zero block size", wire.ErrFormat)
	}

	return &Reader{
		r:         br,
		blockSize: blockSize,
		basisSize: binary.BigEndian.Uint64(header[9:17]),
	}, nil
}

// BlockSize returns the block size declared in the delta header.
func (d *Reader) BlockSize() uint32 { return d.blockSize }

// BasisSize returns the basis size the delta was computed against.
func (d *Reader) BasisSize() uint64 { return d.basisSize }

// Checksum returns the whole-file digest from the stream trailer. It
// is valid only after Next has returned io.EOF.
func (d *Reader) Checksum() (blockhash.Digest, bool) {
	return d.checksum, d.done
}

// Next advances to the next instruction. Any unread literal payload of
// the previous instruction is skipped. Next returns io.EOF once the
// checksum trailer has been consumed; a stream that ends without the
// trailer is corrupt.
func (d *Reader) Next() (Instruction, error) {
	if d.done {
		return Instruction{}, io.EOF
	}
	if d.remaining > 0 {
		if err := d.discard(); err != nil {
			return Instruction{}, err
		}
	}

	tag, err := d.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Instruction{}, fmt.Errorf("%w: stream ends without checksum trailer", wire.ErrCorruptDelta)
		}
		return Instruction{}, fmt.Errorf("read instruction tag: %w", err)
	}

	switch tag {
	case wire.TagCopy:
		var buf [4]byte
		if err := d.fill(buf[:], "copy instruction"); err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: Copy, BlockIndex: binary.BigEndian.Uint32(buf[:])}, nil

	case wire.TagLiteral:
		var buf [8]byte
		if err := d.fill(buf[:], "literal instruction"); err != nil {
			return Instruction{}, err
		}
		d.remaining = binary.BigEndian.Uint64(buf[:])
		return Instruction{Kind: Literal, Length: d.remaining}, nil

	case wire.TagChecksum:
		var sum [blockhash.DigestSize]byte
		if err := d.fill(sum[:], "checksum trailer"); err != nil {
			return Instruction{}, err
		}
		d.checksum = sum
		d.done = true
		return Instruction{}, io.EOF

	default:
		return Instruction{}, fmt.Errorf("%w: unknown instruction tag %#02x", wire.ErrFormat, tag)
	}
}

// Read reads the payload of the current Literal instruction. It
// returns io.EOF once the declared length has been consumed. A stream
// that ends before delivering the declared length is corrupt.
func (d *Reader) Read(p []byte) (int, error) {
	if d.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > d.remaining {
		p = p[:d.remaining]
	}
	n, err := d.r.Read(p)
	d.remaining -= uint64(n)
	if err == io.EOF && d.remaining > 0 {
		return n, fmt.Errorf("%w: literal payload truncated with %d bytes missing", wire.ErrCorruptDelta, d.remaining)
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (d *Reader) discard() error {
	n, err := io.CopyN(io.Discard, d.r, int64(d.remaining))
	d.remaining -= uint64(n)
	if err == io.EOF && d.remaining > 0 {
		return fmt.Errorf("%w: literal payload truncated with %d bytes missing", wire.ErrCorruptDelta, d.remaining)
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("skip literal payload: %w", err)
	}
	return nil
}

func (d *Reader) fill(buf []byte, what string) error {
	if _, err := io.ReadFull(d.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: %s truncated", wire.ErrCorruptDelta, what)
		}
		return fmt.Errorf("read %s: %w", what, err)
	}
	return nil
}
