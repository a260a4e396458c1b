// Package car reads and writes content-addressed row archives.
//
// An archive is a single sequential stream. It opens with a header that lists
// the content identifier (CID) of every block, then stores one block per row:
//
//	archive := frame(header) frame(block)*
//	frame   := varint(len(payload)) payload
//	block   := cid-bytes row-bytes
//
// Rows and the header are encoded as deterministic CBOR; each CID is a CIDv1
// with the dag-cbor content type over a SHA2-256 (or BLAKE3) multihash of the
// row bytes. Every block is listed as a root, in stream order.
//
// There are two ways back to the rows:
//
//   - [ReadAll] and [Scan] walk the stream and check every block against its
//     root, failing with a [*CIDMismatchError] on any disagreement.
//   - [ReadAt] seeks straight to a block using an offset and length taken from
//     an [Index], as returned by [Writer.Finalize] or [BuildIndex].
//
// # Quick Start
//
// Write an archive and keep its index:
//
//	idx, err := car.WriteRowsFile("rows.car", []car.Row{
//	    {Key: "a", Data: []byte("1")},
//	    {Key: "b", Data: []byte("22")},
//	})
//
// Read a single row back without scanning:
//
//	e, _ := idx.Lookup("b")
//	row, err := car.ReadAtFile("rows.car", e.Offset, e.Length)
package car
