package cartype

// Row is a single key/value record stored in an archive.
type Row struct {
	// Key identifies the row. Uniqueness is the caller's concern.
	Key string

	// Data is the opaque payload.
	Data []byte
}

// BlockIndexEntry locates one framed block in an archive.
type BlockIndexEntry struct {
	// Key is the row key stored in the block.
	Key string `cbor:"key"`

	// Offset is the absolute position of the block's length prefix.
	Offset uint64 `cbor:"offset"`

	// Length is the size of the framed block, prefix included.
	Length uint64 `cbor:"length"`
}

// End returns the offset of the first byte after the block.
func (e BlockIndexEntry) End() uint64 {
	return e.Offset + e.Length
}
