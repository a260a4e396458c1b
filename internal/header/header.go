// Package header encodes the archive header: the ordered list of root
// identifiers and the format version.
package header

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/meigma/car/internal/cartype"
	"github.com/meigma/car/internal/codec"
	"github.com/meigma/car/internal/ident"
)

// Version is the only header version this package reads or writes.
const Version uint64 = 1

// Header lists the roots of an archive in block order.
type Header struct {
	Roots   []string `cbor:"roots"`
	Version uint64   `cbor:"version"`
}

type decoded struct {
	Roots   *[]string `cbor:"roots"`
	Version *uint64   `cbor:"version"`
}

// New returns a header naming cids as roots, in order.
func New(cids []cid.Cid) Header {
	roots := make([]string, len(cids))
	for i, c := range cids {
		roots[i] = c.String()
	}
	return Header{Roots: roots, Version: Version}
}

// Encode serializes h.
func Encode(h Header) ([]byte, error) {
	b, err := codec.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return b, nil
}

// Decode parses a header. An empty roots list decodes successfully; callers
// decide whether that is acceptable.
func Decode(b []byte) (Header, error) {
	var d decoded
	if err := codec.Unmarshal(b, &d); err != nil {
		return Header{}, fmt.Errorf("%w: %v", cartype.ErrMalformedHeader, err)
	}
	if d.Roots == nil {
		return Header{}, fmt.Errorf("%w: missing roots", cartype.ErrMalformedHeader)
	}
	if d.Version == nil {
		return Header{}, fmt.Errorf("%w: missing version", cartype.ErrMalformedHeader)
	}
	if *d.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", cartype.ErrUnsupportedVersion, *d.Version)
	}
	return Header{Roots: *d.Roots, Version: *d.Version}, nil
}

// CIDs parses every root.
func (h Header) CIDs() ([]cid.Cid, error) {
	cids := make([]cid.Cid, len(h.Roots))
	for i, s := range h.Roots {
		c, err := ident.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("root %d: %w", i, err)
		}
		cids[i] = c
	}
	return cids, nil
}
