// Package row converts (key, data) pairs to and from the canonical envelope
// that is hashed and stored in each block.
package row

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/meigma/car/internal/cartype"
	"github.com/meigma/car/internal/codec"
	"github.com/meigma/car/internal/ident"
)

type envelope struct {
	Key  string `cbor:"key"`
	Data []byte `cbor:"data"`
}

// decoded uses pointers so absent fields can be told apart from empty ones.
type decoded struct {
	Key  *string `cbor:"key"`
	Data *[]byte `cbor:"data"`
}

// Encode serializes the row and returns its identifier along with the bytes
// the identifier was computed over.
func Encode(key string, data []byte, h ident.Hash) (cid.Cid, []byte, error) {
	b, err := Marshal(key, data)
	if err != nil {
		return cid.Undef, nil, err
	}
	c, err := ident.Sum(b, h)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("encode row %q: %w", key, err)
	}
	return c, b, nil
}

// Marshal serializes the row without hashing it.
func Marshal(key string, data []byte) ([]byte, error) {
	b, err := codec.Marshal(envelope{Key: key, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode row %q: %w", key, err)
	}
	return b, nil
}

// Decode parses an encoded row.
func Decode(b []byte) (key string, data []byte, err error) {
	var d decoded
	if err := codec.Unmarshal(b, &d); err != nil {
		return "", nil, fmt.Errorf("%w: %v", cartype.ErrMalformedRow, err)
	}
	if d.Key == nil {
		return "", nil, fmt.Errorf("%w: missing key", cartype.ErrMalformedRow)
	}
	if d.Data == nil {
		return "", nil, fmt.Errorf("%w: missing data", cartype.ErrMalformedRow)
	}
	data = *d.Data
	if data == nil {
		data = []byte{}
	}
	return *d.Key, data, nil
}
