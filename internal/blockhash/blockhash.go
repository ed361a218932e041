// Package blockhash computes the strong per-block digests the signature
// and delta formats are built on.
package blockhash

import (
	"encoding/base64"

	"github.com/zeebo/blake3"
)

// DigestSize is the width of a block digest in bytes (BLAKE3-256).
const DigestSize = 32

// Digest is a fixed-width BLAKE3-256 digest of a block's bytes.
type Digest [DigestSize]byte

// String returns the base64 form of the digest, for logs and errors.
func (d Digest) String() string {
	return base64.StdEncoding.EncodeToString(d[:])
}

// BlockSum identifies a block for matching purposes: digest plus exact
// byte length. Length is carried alongside the digest, not folded into
// it, so blocks of different length never compare equal.
type BlockSum struct {
	Digest Digest
	Length int
}

// Sum computes the digest of exactly the given bytes.
func Sum(block []byte) Digest {
	return blake3.Sum256(block)
}

// SumBlock computes the full (digest, length) identity of a block.
func SumBlock(block []byte) BlockSum {
	return BlockSum{Digest: Sum(block), Length: len(block)}
}

// Hasher accumulates a whole-stream digest. It wraps blake3 so callers
// outside this package never touch the hash implementation directly.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a streaming hasher for whole-file digests.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write feeds bytes into the running digest. It never fails.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() Digest {
	var d Digest
	copy(d[:], h.h.Sum(nil))
	return d
}
