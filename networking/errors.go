package networking

import "errors"

// Error kinds terminating a transfer session. Failures wrap one of these with
// context so callers can match them with errors.Is.
var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidMagic    = errors.New("invalid protocol magic")
	ErrHashMismatch    = errors.New("hash mismatch")
	ErrNetwork         = errors.New("network error")
	ErrMemory          = errors.New("memory error")
	ErrMalformedHeader = errors.New("malformed header")
)
