// Package sizing provides checked conversions for lengths and offsets read off the wire.
package sizing

import (
	"io"
	"math"

	"github.com/meigma/car/internal/cartype"
)

// BlockLen converts a declared block length to an int allocation size.
// Lengths above limit (when limit > 0) or beyond the platform int range
// return ErrSizeOverflow.
func BlockLen(n, limit uint64) (int, error) {
	if limit > 0 && n > limit {
		return 0, cartype.ErrSizeOverflow
	}
	if n > uint64(math.MaxInt) {
		return 0, cartype.ErrSizeOverflow
	}
	return int(n), nil
}

// Offset converts an absolute archive offset to the int64 used by io.ReaderAt.
func Offset(off uint64) (int64, error) {
	if off > uint64(math.MaxInt64) {
		return 0, cartype.ErrSizeOverflow
	}
	return int64(off), nil
}

// ReadAllWithLimit reads r to EOF, failing with ErrSizeOverflow if more than
// limit bytes are available.
func ReadAllWithLimit(r io.Reader, limit uint64) ([]byte, error) {
	if limit > uint64(math.MaxInt64-1) {
		return nil, cartype.ErrSizeOverflow
	}
	lr := &io.LimitedReader{R: r, N: int64(limit) + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > limit {
		return nil, cartype.ErrSizeOverflow
	}
	return data, nil
}
