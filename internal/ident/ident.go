// Package ident computes and parses the content identifiers that name each
// block of an archive.
//
// Identifiers are CIDv1 values with the dag-cbor content type wrapping a
// multihash of the encoded row bytes.
package ident

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"

	"github.com/meigma/car/internal/cartype"
)

// ContentType is the CID codec tag for row data.
const ContentType = cid.DagCBOR

// Hash identifies the digest algorithm by its multihash code.
type Hash uint64

const (
	// SHA256 is SHA2-256, the default.
	SHA256 Hash = multihash.SHA2_256

	// BLAKE3 is BLAKE3 with a 256-bit output.
	BLAKE3 Hash = multihash.BLAKE3
)

// String returns the multihash name of the algorithm.
func (h Hash) String() string {
	switch h {
	case SHA256:
		return "sha2-256"
	case BLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint64(h))
	}
}

// ParseHash resolves a hash name as accepted on the command line.
func ParseHash(name string) (Hash, error) {
	switch name {
	case "", "sha2-256", "sha256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return 0, fmt.Errorf("unsupported hash %q", name)
	}
}

// digest returns the 32-byte digest of data under h.
func (h Hash) digest(data []byte) ([]byte, error) {
	switch h {
	case SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case BLAKE3:
		sum := blake3.Sum256(data)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash 0x%x", uint64(h))
	}
}

// Sum hashes data and wraps the digest in a content identifier.
func Sum(data []byte, h Hash) (cid.Cid, error) {
	sum, err := h.digest(data)
	if err != nil {
		return cid.Undef, err
	}
	mh, err := multihash.Encode(sum, uint64(h))
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(ContentType, mh), nil
}

// Parse converts the text form of an identifier back into a CID.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %q: %v", cartype.ErrInvalidCIDString, s, err)
	}
	return c, nil
}

// Split reads the binary identifier off the front of block and returns it
// with the remaining bytes.
func Split(block []byte) (cid.Cid, []byte, error) {
	n, c, err := cid.CidFromBytes(block)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("%w: %v", cartype.ErrMalformedBlock, err)
	}
	return c, block[n:], nil
}

// Verify re-hashes data with the algorithm named by c and checks that the
// result is c.
func Verify(c cid.Cid, data []byte) error {
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return fmt.Errorf("%w: %v", cartype.ErrMalformedBlock, err)
	}
	sum, err := Hash(decoded.Code).digest(data)
	if err != nil {
		return fmt.Errorf("%w: %v", cartype.ErrMalformedBlock, err)
	}
	if c.Type() != ContentType || !bytes.Equal(sum, decoded.Digest) {
		actual, err := Sum(data, Hash(decoded.Code))
		if err != nil {
			return err
		}
		return &cartype.CIDMismatchError{Expected: c.String(), Actual: actual.String()}
	}
	return nil
}
