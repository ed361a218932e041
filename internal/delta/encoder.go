package delta

import (
	"fmt"
	"io"

	"github.com/sblosser/bdiff/internal/blockhash"
	"github.com/sblosser/bdiff/internal/signature"
)

// Stats summarizes one delta computation.
type Stats struct {
	NewBytes      int64
	CopyOps       int
	LiteralOps    int
	LiteralBytes  int64
	BlocksMatched int
}

// Encode chunks newFile into blocks of the index's block size, matches
// each chunk against the basis by (digest, length), and writes the
// resulting instruction stream to w, including the checksum trailer.
//
// Matching is position independent: a chunk equal to any basis block
// is recognized no matter where that block sits in the basis. Matches
// not aligned to a block boundary in the new file are not found; that
// is the fixed-block trade-off, not a defect.
//
// Unmatched chunks accumulate in a pending buffer that is flushed as a
// single merged Literal before the next Copy and once at end of input,
// so the encoder never emits adjacent literals.
func Encode(w *Writer, ix *signature.Index, newFile io.Reader) (Stats, error) {
	var stats Stats
	blockSize := ix.BlockSize()
	fileHash := blockhash.NewHasher()

	var pending []byte
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := w.Literal(pending); err != nil {
			return err
		}
		stats.LiteralOps++
		stats.LiteralBytes += int64(len(pending))
		pending = pending[:0]
		return nil
	}

	chunk := make([]byte, blockSize)
	for chunkNo := 0; ; chunkNo++ {
		n, err := io.ReadFull(newFile, chunk)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return stats, fmt.Errorf("read new file chunk %d: %w", chunkNo, err)
		}

		data := chunk[:n]
		fileHash.Write(data)
		stats.NewBytes += int64(n)

		if index, ok := ix.Lookup(blockhash.SumBlock(data)); ok {
			if ferr := flush(); ferr != nil {
				return stats, ferr
			}
			if cerr := w.Copy(index); cerr != nil {
				return stats, cerr
			}
			stats.CopyOps++
			stats.BlocksMatched++
		} else {
			pending = append(pending, data...)
		}

		if err == io.ErrUnexpectedEOF {
			break
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}
	return stats, w.Close(fileHash.Sum())
}
