package cartype

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive operations.
var (
	// ErrUnexpectedEOF is returned when the stream ends inside a varint or a block.
	ErrUnexpectedEOF = errors.New("car: unexpected EOF")

	// ErrVarintOverflow is returned when a length prefix does not fit in 64 bits.
	ErrVarintOverflow = errors.New("car: varint overflow")

	// ErrNoRoots is returned when the header declares zero roots.
	ErrNoRoots = errors.New("car: header has no roots")

	// ErrMalformedHeader is returned when the header envelope cannot be decoded.
	ErrMalformedHeader = errors.New("car: malformed header")

	// ErrUnsupportedVersion is returned when the header carries an unknown version.
	ErrUnsupportedVersion = errors.New("car: unsupported version")

	// ErrMalformedRow is returned when a row envelope cannot be decoded.
	ErrMalformedRow = errors.New("car: malformed row")

	// ErrMalformedBlock is returned when a block cannot be split into identifier and row.
	ErrMalformedBlock = errors.New("car: malformed block")

	// ErrInvalidCIDString is returned when a root cannot be parsed as a content identifier.
	ErrInvalidCIDString = errors.New("car: invalid cid string")

	// ErrCIDMismatch is returned when a block's identity disagrees with what was expected.
	ErrCIDMismatch = errors.New("car: cid mismatch")

	// ErrFinalized is returned when a writer is used after Finalize.
	ErrFinalized = errors.New("car: writer already finalized")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("car: size overflow")

	// ErrNotContiguous is returned when index entries leave gaps or overlap.
	ErrNotContiguous = errors.New("car: index entries are not contiguous")
)

// CIDMismatchError reports the identifier that was expected for a block and
// the one actually found.
type CIDMismatchError struct {
	Expected string
	Actual   string
}

func (e *CIDMismatchError) Error() string {
	return fmt.Sprintf("car: cid mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Unwrap allows errors.Is(err, ErrCIDMismatch).
func (e *CIDMismatchError) Unwrap() error {
	return ErrCIDMismatch
}
