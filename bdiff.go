// Package bdiff is a block-based remote-delta engine: given an old
// ("basis") file and a new file, it produces a compact delta that lets
// a party holding only the basis reconstruct the new file without
// transferring it in full.
//
// The engine operates on fixed-size, non-overlapping blocks. A chunk
// of new-file content equal to any basis block is recognized wherever
// that block sits in the basis, but matches are only found at
// multiples of the block size in the new file: an insertion that
// shifts block boundaries makes all downstream blocks appear literal.
// That is a deliberate simplicity trade-off against rolling-window
// tools like rsync.
//
// Three operations share one binary contract (block size, BLAKE3-256
// block digests, big-endian integers):
//
//	Signature(basis, sigOut, blockSize)   basis -> signature
//	Delta(sig, newFile, deltaOut)         signature + new file -> delta
//	Patch(basis, delta, newOut)           basis + delta -> new file
//
// All operations are synchronous, deterministic, and free of shared
// state; callers may run unrelated operations concurrently. Timeouts,
// retries, and cancellation belong to the layer supplying the streams.
package bdiff

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/sblosser/bdiff/internal/delta"
	"github.com/sblosser/bdiff/internal/patch"
	"github.com/sblosser/bdiff/internal/signature"
)

// DefaultBlockSize is used when Signature is called with blockSize 0.
const DefaultBlockSize = signature.DefaultBlockSize

// SignatureStats reports what Signature processed.
type SignatureStats struct {
	// Blocks is the number of descriptors written.
	Blocks int
	// BasisBytes is the total size of the basis read.
	BasisBytes int64
}

// DeltaStats reports how Delta encoded the new file.
type DeltaStats struct {
	// NewBytes is the total size of the new file read.
	NewBytes int64
	// CopyOps and LiteralOps count emitted instructions.
	CopyOps    int
	LiteralOps int
	// LiteralBytes is how much of the new file travels in the delta.
	LiteralBytes int64
	// BlocksMatched counts chunks found in the basis.
	BlocksMatched int
}

// PatchStats reports what Patch reconstructed.
type PatchStats struct {
	// BytesWritten is the size of the reconstructed file.
	BytesWritten int64
	// CopiedBytes came from the basis, LiteralBytes from the delta.
	CopiedBytes  int64
	LiteralBytes int64
	CopyOps      int
	LiteralOps   int
}

// Signature reads basis sequentially and writes its block signature to
// dst. blockSize 0 selects DefaultBlockSize. The basis is processed
// one block at a time and is never buffered whole.
func Signature(basis io.Reader, dst io.Writer, blockSize int) (SignatureStats, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize < 0 || int64(blockSize) > math.MaxUint32 {
		return SignatureStats{}, fmt.Errorf("%w: block size %d out of range", ErrFormat, blockSize)
	}

	bw := bufio.NewWriter(dst)
	st, err := signature.Write(bw, basis, uint32(blockSize))
	if err != nil {
		return SignatureStats{}, err
	}
	if err := bw.Flush(); err != nil {
		return SignatureStats{}, fmt.Errorf("flush signature: %w", err)
	}
	return SignatureStats{Blocks: st.Blocks, BasisBytes: st.Bytes}, nil
}

// Delta decodes the signature stream, indexes it, and encodes the new
// file against it, writing the delta to dst. The block size is taken
// from the signature; the delta echoes it along with the basis size so
// Patch can validate its inputs.
func Delta(sig io.Reader, newFile io.Reader, dst io.Writer) (DeltaStats, error) {
	decoded, err := signature.Read(bufio.NewReader(sig))
	if err != nil {
		return DeltaStats{}, err
	}

	bw := bufio.NewWriter(dst)
	w, err := delta.NewWriter(bw, decoded.BlockSize, decoded.BasisSize())
	if err != nil {
		return DeltaStats{}, err
	}

	st, err := delta.Encode(w, signature.NewIndex(decoded), newFile)
	if err != nil {
		return DeltaStats{}, err
	}
	if err := bw.Flush(); err != nil {
		return DeltaStats{}, fmt.Errorf("flush delta: %w", err)
	}
	return DeltaStats{
		NewBytes:      st.NewBytes,
		CopyOps:       st.CopyOps,
		LiteralOps:    st.LiteralOps,
		LiteralBytes:  st.LiteralBytes,
		BlocksMatched: st.BlocksMatched,
	}, nil
}

// Patch replays the delta against the seekable basis and writes the
// reconstructed new file to dst in one forward pass. The delta is
// decoded as a stream, so deltas of any size apply in constant memory.
// No writer may mutate the basis while Patch runs.
func Patch(basis io.ReadSeeker, dlt io.Reader, dst io.Writer) (PatchStats, error) {
	dr, err := delta.NewReader(dlt)
	if err != nil {
		return PatchStats{}, err
	}

	bw := bufio.NewWriter(dst)
	st, err := patch.Apply(basis, dr, bw)
	if err != nil {
		return PatchStats{}, err
	}
	if err := bw.Flush(); err != nil {
		return PatchStats{}, fmt.Errorf("flush reconstructed file: %w", err)
	}
	return PatchStats{
		BytesWritten: st.BytesWritten,
		CopiedBytes:  st.CopiedBytes,
		LiteralBytes: st.LiteralBytes,
		CopyOps:      st.CopyOps,
		LiteralOps:   st.LiteralOps,
	}, nil
}
