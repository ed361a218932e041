// Package delta encodes and decodes the instruction stream that
// reconstructs a new file from a basis file plus literal bytes.
//
// The stream is a closed set of tagged instructions: Copy (reuse a
// basis block by index) and Literal (bytes carried in the delta),
// terminated by a checksum of the complete new file. The format is
// purely sequential; decoding never seeks.
package delta

// Kind discriminates the instruction variants.
type Kind uint8

const (
	// Copy reuses the basis block at BlockIndex verbatim. Its length is
	// implied by the block size and the basis size (the final basis
	// block may be short).
	Copy Kind = iota
	// Literal carries Length bytes of new-file content in the delta
	// itself, immediately after the instruction header.
	Literal
)

// Instruction is one decoded delta instruction. For Literal, the
// payload is not held here; it is drained through Reader.Read.
type Instruction struct {
	Kind       Kind
	BlockIndex uint32 // Copy only
	Length     uint64 // Literal only
}
