// Package block frames blocks on the wire: a varint byte count followed by
// the identifier bytes and the encoded row they name.
package block

import (
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"

	"github.com/meigma/car/internal/cartype"
	"github.com/meigma/car/internal/ident"
	"github.com/meigma/car/internal/sizing"
	"github.com/meigma/car/internal/varint"
)

// DefaultMaxSize is the default limit on a single framed payload (256MB).
const DefaultMaxSize = 256 << 20

// Reader is the stream shape needed to read framed blocks.
type Reader interface {
	io.Reader
	io.ByteReader
}

// Compose returns the block for row: its identifier bytes followed by the
// row bytes.
func Compose(c cid.Cid, row []byte) []byte {
	id := c.Bytes()
	b := make([]byte, 0, len(id)+len(row))
	b = append(b, id...)
	return append(b, row...)
}

// AppendFrame appends the length prefix for payload and payload itself.
func AppendFrame(dst, payload []byte) []byte {
	dst = varint.Append(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// FrameLen returns the framed size of a payload of n bytes.
func FrameLen(n int) uint64 {
	return uint64(varint.Len(uint64(n)) + n)
}

// ReadFramed reads one framed payload from r. It returns the payload and the
// total number of bytes consumed, prefix included. Payloads declared larger
// than limit are rejected before allocation; a zero limit disables the check.
func ReadFramed(r Reader, limit uint64) (payload []byte, n uint64, err error) {
	length, prefix, err := varint.Read(r)
	if err != nil {
		return nil, uint64(prefix), err
	}
	size, err := sizing.BlockLen(length, limit)
	if err != nil {
		return nil, uint64(prefix), fmt.Errorf("block of %d bytes: %w", length, err)
	}
	payload = make([]byte, size)
	read, err := io.ReadFull(r, payload)
	n = uint64(prefix) + uint64(read)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, n, fmt.Errorf("%w: block truncated at %d of %d bytes", cartype.ErrUnexpectedEOF, read, size)
		}
		return nil, n, err
	}
	return payload, n, nil
}

// Unframe strips the length prefix from a complete framed block. The prefix
// must account for every remaining byte of buf.
func Unframe(buf []byte) ([]byte, error) {
	length, prefix, err := varint.Decode(buf)
	if err != nil {
		return nil, err
	}
	rest := uint64(len(buf) - prefix)
	switch {
	case length > rest:
		return nil, fmt.Errorf("%w: block declares %d bytes, have %d", cartype.ErrUnexpectedEOF, length, rest)
	case length < rest:
		return nil, fmt.Errorf("%w: block declares %d bytes, range holds %d", cartype.ErrMalformedBlock, length, rest)
	}
	return buf[prefix:], nil
}

// Split separates a payload into its identifier and row bytes.
func Split(payload []byte) (cid.Cid, []byte, error) {
	return ident.Split(payload)
}
