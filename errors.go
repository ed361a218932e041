package bdiff

import "github.com/sblosser/bdiff/internal/wire"

// Sentinel errors returned (wrapped) by Signature, Delta, and Patch.
// Match with errors.Is. None of these are retryable: malformed or
// corrupt inputs must be regenerated, and a basis mismatch means the
// caller supplied the wrong basis file. I/O errors from the underlying
// readers and writers propagate as themselves.
var (
	ErrFormat           = wire.ErrFormat
	ErrCorruptSignature = wire.ErrCorruptSignature
	ErrCorruptDelta     = wire.ErrCorruptDelta
	ErrBasisMismatch    = wire.ErrBasisMismatch
	ErrChecksumMismatch = wire.ErrChecksumMismatch
)
