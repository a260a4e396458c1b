package car

import (
	"errors"

	"github.com/meigma/car/internal/cartype"
)

// CIDMismatchError reports a block whose identity disagrees with what the
// archive declared for it.
type CIDMismatchError = cartype.CIDMismatchError

// Errors re-exported from internal/cartype.
var (
	// ErrUnexpectedEOF is returned when the stream ends inside a varint or a block.
	ErrUnexpectedEOF = cartype.ErrUnexpectedEOF

	// ErrVarintOverflow is returned when a length prefix does not fit in 64 bits.
	ErrVarintOverflow = cartype.ErrVarintOverflow

	// ErrNoRoots is returned when the header declares zero roots, or when
	// a writer is finalized without rows.
	ErrNoRoots = cartype.ErrNoRoots

	// ErrMalformedHeader is returned when the header cannot be decoded.
	ErrMalformedHeader = cartype.ErrMalformedHeader

	// ErrUnsupportedVersion is returned for headers or index files of an unknown version.
	ErrUnsupportedVersion = cartype.ErrUnsupportedVersion

	// ErrMalformedRow is returned when a row envelope cannot be decoded.
	ErrMalformedRow = cartype.ErrMalformedRow

	// ErrMalformedBlock is returned when a block cannot be split or its
	// length prefix disagrees with the range it was read from.
	ErrMalformedBlock = cartype.ErrMalformedBlock

	// ErrInvalidCIDString is returned when a root is not a valid CID.
	ErrInvalidCIDString = cartype.ErrInvalidCIDString

	// ErrCIDMismatch is wrapped by every *CIDMismatchError.
	ErrCIDMismatch = cartype.ErrCIDMismatch

	// ErrFinalized is returned when a writer is used after Finalize.
	ErrFinalized = cartype.ErrFinalized

	// ErrSizeOverflow is returned when a block exceeds the configured size limit.
	ErrSizeOverflow = cartype.ErrSizeOverflow

	// ErrNotContiguous is returned by Index.Validate.
	ErrNotContiguous = cartype.ErrNotContiguous
)

// ErrIndexMismatch is returned by ReadEntry when the block at an entry's
// location holds a different key than the entry names.
var ErrIndexMismatch = errors.New("car: index entry does not match block")
