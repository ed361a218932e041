// Package patch replays a delta instruction stream against a seekable
// basis file to reconstruct the new file.
package patch

import (
	"fmt"
	"io"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/delta"
	"github.com/sblosser/bdiff/internal/wire"
)

// Stats summarizes one patch application.
type Stats struct {
	BytesWritten int64
	CopiedBytes  int64
	LiteralBytes int64
	CopyOps      int
	LiteralOps   int
}

// Apply reconstructs the new file onto dst by consuming dr in order:
// Copy instructions seek and read the referenced basis block, Literal
// instructions stream bytes straight out of the delta. Output is
// written in one forward pass.
//
// The signature is not available here, so block count and tail length
// are re-derived from the actual size of the basis handed in. A basis
// whose size disagrees with the delta header, or that cannot supply a
// referenced block, fails with ErrBasisMismatch before or mid-stream;
// either way Apply never reports success. The reconstructed bytes are
// hashed as they are written and checked against the delta trailer.
func Apply(basis io.ReadSeeker, dr *delta.Reader, dst io.Writer) (Stats, error) {
	var stats Stats

	basisSize, err := basis.Seek(0, io.SeekEnd)
	if err != nil {
		return stats, fmt.Errorf("measure basis: %w", err)
	}
	if uint64(basisSize) != dr.BasisSize() {
		return stats, fmt.Errorf("%w: basis is %d bytes, delta was computed against %d",
			wire.ErrBasisMismatch, basisSize, dr.BasisSize())
	}

	blockSize := int64(dr.BlockSize())
	basisBlocks := basisSize / blockSize
	if basisSize%blockSize != 0 {
		basisBlocks++
	}

	fileHash := blockhash.NewHasher()
	out := io.MultiWriter(dst, fileHash)

	for {
		ins, err := dr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}

		switch ins.Kind {
		case delta.Copy:
			index := int64(ins.BlockIndex)
			if index >= basisBlocks {
				return stats, fmt.Errorf("%w: copy references block %d of %d",
					wire.ErrBasisMismatch, index, basisBlocks)
			}
			offset := index * blockSize
			length := blockSize
			if offset+length > basisSize {
				length = basisSize - offset // tail block
			}
			if _, err := basis.Seek(offset, io.SeekStart); err != nil {
				return stats, fmt.Errorf("seek basis block %d: %w", index, err)
			}
			n, err := io.CopyN(out, basis, length)
			stats.BytesWritten += n
			stats.CopiedBytes += n
			if err != nil {
				if err == io.EOF {
					return stats, fmt.Errorf("%w: basis block %d shorter than expected", wire.ErrBasisMismatch, index)
				}
				return stats, fmt.Errorf("copy basis block %d: %w", index, err)
			}
			stats.CopyOps++

		case delta.Literal:
			n, err := io.Copy(out, dr)
			stats.BytesWritten += n
			stats.LiteralBytes += n
			if err != nil {
				return stats, err
			}
			stats.LiteralOps++
		}
	}

	want, ok := dr.Checksum()
	if !ok {
		return stats, fmt.Errorf("%w: stream ended without checksum trailer", wire.ErrCorruptDelta)
	}
	if got := fileHash.Sum(); got != want {
		return stats, fmt.Errorf("%w: got %s, delta recorded %s", wire.ErrChecksumMismatch, got, want)
	}
	return stats, nil
}
