// Package wire holds the constants and error values shared by the
// signature and delta file formats. Both formats use big-endian
// integers and the 32-byte BLAKE3 block digest.
package wire

import "errors"

const (
	// SigMagic opens a signature file ("BSIG").
	SigMagic uint32 = 0x42534947
	// DeltaMagic opens a delta file ("BDLT").
	DeltaMagic uint32 = 0x42444C54

	// Version is the current format version for both files.
	Version uint8 = 1
)

// Delta instruction tags.
const (
	TagCopy     byte = 'C' // uint32 basis block index follows
	TagLiteral  byte = 'L' // uint64 length, then that many bytes
	TagChecksum byte = 'H' // 32-byte whole-file digest; terminates the stream
)

var (
	// ErrFormat reports a malformed header, version, or instruction tag.
	// Inputs must be regenerated; retrying cannot help.
	ErrFormat = errors.New("bdiff: malformed header or instruction tag")

	// ErrCorruptSignature reports a signature stream that ends in the
	// middle of a block descriptor.
	ErrCorruptSignature = errors.New("bdiff: truncated signature")

	// ErrCorruptDelta reports a delta stream that is truncated or whose
	// declared lengths exceed the bytes present.
	ErrCorruptDelta = errors.New("bdiff: truncated or inconsistent delta")

	// ErrBasisMismatch reports that the basis file supplied at patch
	// time cannot be the one the delta was computed against.
	ErrBasisMismatch = errors.New("bdiff: basis file does not match delta")

	// ErrChecksumMismatch reports that the reconstructed file's digest
	// disagrees with the checksum recorded in the delta.
	ErrChecksumMismatch = errors.New("bdiff: reconstructed file failed checksum verification")
)
