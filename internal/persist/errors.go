package persist

import "errors"

// Sentinel errors mirroring the persistence failure kinds of spec §7.
// Load wraps these with context via fmt.Errorf("...: %w: ...", ...), so
// callers can still errors.Is against the sentinel.
var (
	ErrEmptyFile          = errors.New("persist: empty file")
	ErrInvalidMagicNumber = errors.New("persist: invalid magic number")
	ErrUnsupportedVersion = errors.New("persist: unsupported format version")
	ErrTruncated          = errors.New("persist: truncated file")
	ErrCorrupted          = errors.New("persist: corrupted file")
	ErrIoError            = errors.New("persist: io error")
)
