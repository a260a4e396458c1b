// Package varint implements the unsigned LEB128 length prefixes used by the
// archive framing: 7 value bits per byte, high bit set when more bytes follow.
package varint

import (
	"errors"
	"io"

	"github.com/meigma/car/internal/cartype"
)

// MaxLen is the longest encoding of a uint64.
const MaxLen = 10

// Len returns the number of bytes needed to encode v.
func Len(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Append appends the encoding of v to dst.
func Append(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Encode returns the encoding of v.
func Encode(v uint64) []byte {
	return Append(make([]byte, 0, Len(v)), v)
}

// Read decodes a varint from r one byte at a time and reports how many
// bytes it consumed.
func Read(r io.ByteReader) (value uint64, n int, err error) {
	for i := range MaxLen {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, i, cartype.ErrUnexpectedEOF
			}
			return 0, i, err
		}
		if i == MaxLen-1 && b > 1 {
			return 0, i + 1, cartype.ErrVarintOverflow
		}
		value |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, MaxLen, cartype.ErrVarintOverflow
}

// Decode decodes a varint from the front of buf.
func Decode(buf []byte) (value uint64, n int, err error) {
	for i, b := range buf {
		if i == MaxLen-1 && b > 1 {
			return 0, i + 1, cartype.ErrVarintOverflow
		}
		value |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, len(buf), cartype.ErrUnexpectedEOF
}
