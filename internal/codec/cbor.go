// Package codec holds the CBOR configuration shared by every envelope in the
// archive: rows, the header, and the index sidecar.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2), so the same
// value always produces the same bytes. Nil slices encode as empty
// containers rather than null.
var encMode cbor.EncMode

// decMode rejects unknown fields and duplicate map keys. Headers and indexes
// hold one element per row, so container lengths are capped only by the
// library maximum; callers bound the input size instead.
var decMode cbor.DecMode

// maxContainerLen is the largest array or map length the decoder accepts.
const maxContainerLen = 2147483647

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.NilContainers = cbor.NilContainerAsEmpty
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxArrayElements:  maxContainerLen,
		MaxMapPairs:       maxContainerLen,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes exactly one CBOR item from data into v. Trailing bytes
// are an error.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
