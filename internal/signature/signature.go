// Package signature generates, serializes, and indexes per-block
// signatures of a basis file.
//
// A signature is an ordered list of (digest, length) descriptors, one
// per fixed-size block of the basis, preceded by a header naming the
// format version and block size. Descriptor order is significant: a
// block's position in the list is its only addressable identity, and
// maps directly to its byte offset in the basis.
package signature

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/wire"
)

// DefaultBlockSize is used when the caller does not choose one.
const DefaultBlockSize = 32768

// headerSize is magic + version + block size.
const headerSize = 4 + 1 + 4

// recordSize is one serialized descriptor: digest + length.
const recordSize = blockhash.DigestSize + 4

// Descriptor identifies one basis block by content and exact length.
type Descriptor struct {
	Digest blockhash.Digest
	Length uint32
}

// Signature is a decoded signature file: the block size it was
// generated with and the ordered descriptor list.
type Signature struct {
	BlockSize uint32
	Blocks    []Descriptor
}

// BasisSize returns the byte size of the basis the signature describes.
func (s *Signature) BasisSize() uint64 {
	var total uint64
	for _, b := range s.Blocks {
		total += uint64(b.Length)
	}
	return total
}

// Stats summarizes a signature generation run.
type Stats struct {
	Blocks int
	Bytes  int64
}

// Write partitions basis into consecutive fixed-size blocks, hashes
// each, and streams the signature to dst. The basis is read exactly
// once, block by block; nothing is buffered beyond a single block, so
// arbitrarily large basis files are fine.
func Write(dst io.Writer, basis io.Reader, blockSize uint32) (Stats, error) {
	var stats Stats
	if blockSize == 0 {
		return stats, fmt.Errorf("%w: block size must be positive", wire.ErrFormat)
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], wire.SigMagic)
	header[4] = wire.Version
	binary.BigEndian.PutUint32(header[5:9], blockSize)
	if _, err := dst.Write(header[:]); err != nil {
		return stats, fmt.Errorf("write signature header: %w", err)
	}

	block := make([]byte, blockSize)
	var record [recordSize]byte
	for {
		n, err := io.ReadFull(basis, block)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return stats, fmt.Errorf("read basis block %d: %w", stats.Blocks, err)
		}

		sum := blockhash.Sum(block[:n])
		copy(record[:blockhash.DigestSize], sum[:])
		binary.BigEndian.PutUint32(record[blockhash.DigestSize:], uint32(n))
		if _, werr := dst.Write(record[:]); werr != nil {
			return stats, fmt.Errorf("write block descriptor %d: %w", stats.Blocks, werr)
		}

		stats.Blocks++
		stats.Bytes += int64(n)

		// A short read only happens at EOF; the tail block is final.
		if err == io.ErrUnexpectedEOF {
			break
		}
	}
	return stats, nil
}

// Read parses a complete signature stream. The descriptor list is
// small (36 bytes per block) and is held in memory even for huge basis
// files.
func Read(src io.Reader) (*Signature, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(src, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: signature header incomplete", wire.ErrFormat)
		}
		return nil, fmt.Errorf("read signature header: %w", err)
	}

	if magic := binary.BigEndian.Uint32(header[0:4]); magic != wire.SigMagic {
		return nil, fmt.Errorf("%w: bad signature magic %#08x", wire.ErrFormat, magic)
	}
	if header[4] != wire.Version {
		return nil, fmt.Errorf("%w: unsupported signature version %d", wire.ErrFormat, header[4])
	}
	blockSize := binary.BigEndian.Uint32(header[5:9])
	if blockSize == 0 {
		return nil, fmt.Errorf("%w: zero block size", wire.ErrFormat)
	}

	sig := &Signature{BlockSize: blockSize}
	var record [recordSize]byte
	for {
		if _, err := io.ReadFull(src, record[:]); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: partial descriptor at block %d", wire.ErrCorruptSignature, len(sig.Blocks))
			}
			return nil, fmt.Errorf("read block descriptor %d: %w", len(sig.Blocks), err)
		}

		var d Descriptor
		copy(d.Digest[:], record[:blockhash.DigestSize])
		d.Length = binary.BigEndian.Uint32(record[blockhash.DigestSize:])
		if d.Length == 0 || d.Length > blockSize {
			return nil, fmt.Errorf("%w: descriptor %d has length %d outside (0, %d]",
				wire.ErrCorruptSignature, len(sig.Blocks), d.Length, blockSize)
		}
		// Only the final block may be shorter than the block size.
		if n := len(sig.Blocks); n > 0 && sig.Blocks[n-1].Length != blockSize {
			return nil, fmt.Errorf("%w: short block %d is not the final block", wire.ErrCorruptSignature, n-1)
		}
		sig.Blocks = append(sig.Blocks, d)
	}
	return sig, nil
}
