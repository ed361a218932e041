package signature

import "github.com/sblosser/bdiff/internal/blockhash"

// Index is the lookup structure the delta encoder uses to find basis
// blocks by content. It is built fresh per delta computation and owned
// exclusively by it; nothing here is safe for concurrent mutation and
// nothing needs to be.
type Index struct {
	sig      *Signature
	byDigest map[blockhash.Digest][]uint32
}

// NewIndex builds the digest -> block indices mapping from a decoded
// signature. Distinct basis offsets may legitimately share a digest
// (runs of zeros, repeated content), so a digest maps to a list.
// Indices are appended in ascending order by construction.
func NewIndex(sig *Signature) *Index {
	ix := &Index{
		sig:      sig,
		byDigest: make(map[blockhash.Digest][]uint32, len(sig.Blocks)),
	}
	for i, d := range sig.Blocks {
		ix.byDigest[d.Digest] = append(ix.byDigest[d.Digest], uint32(i))
	}
	return ix
}

// Lookup returns the lowest basis block index whose descriptor matches
// the candidate on both digest and length. The length comparison keeps
// a short tail chunk from matching a full-size block whose hash happens
// to coincide. The lowest-index tie-break makes encoder output
// deterministic.
func (ix *Index) Lookup(sum blockhash.BlockSum) (uint32, bool) {
	for _, i := range ix.byDigest[sum.Digest] {
		if ix.sig.Blocks[i].Length == uint32(sum.Length) {
			return i, true
		}
	}
	return 0, false
}

// BlockSize returns the block size of the underlying signature.
func (ix *Index) BlockSize() uint32 {
	return ix.sig.BlockSize
}
