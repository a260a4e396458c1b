package car

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/car/internal/codec"
	"github.com/meigma/car/internal/sizing"
)

// indexFileVersion is the version of the sidecar index encoding.
const indexFileVersion uint64 = 1

// maxIndexFileSize bounds the decompressed size of a sidecar (1GB).
const maxIndexFileSize = 1 << 30

// IndexFile is an index stored apart from its archive, so rows can be read
// with ReadAt without rescanning.
type IndexFile struct {
	// Archive is the digest of the archive the index describes, if known.
	Archive digest.Digest

	// Entries locates every block.
	Entries Index
}

type indexFileWire struct {
	Version uint64            `cbor:"version"`
	Archive string            `cbor:"archive"`
	Entries []BlockIndexEntry `cbor:"entries"`
}

type indexFileDecoded struct {
	Version *uint64           `cbor:"version"`
	Archive string            `cbor:"archive"`
	Entries []BlockIndexEntry `cbor:"entries"`
}

// WriteIndex encodes f as zstd-compressed CBOR.
func WriteIndex(w io.Writer, f IndexFile) error {
	b, err := codec.Marshal(indexFileWire{
		Version: indexFileVersion,
		Archive: f.Archive.String(),
		Entries: f.Entries,
	})
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(b); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadIndex decodes an index written by WriteIndex.
func ReadIndex(r io.Reader) (IndexFile, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return IndexFile{}, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	b, err := sizing.ReadAllWithLimit(dec, maxIndexFileSize)
	if err != nil {
		return IndexFile{}, fmt.Errorf("read index: %w", err)
	}
	var d indexFileDecoded
	if err := codec.Unmarshal(b, &d); err != nil {
		return IndexFile{}, fmt.Errorf("decode index: %w", err)
	}
	if d.Version == nil || *d.Version != indexFileVersion {
		return IndexFile{}, fmt.Errorf("index file: %w", ErrUnsupportedVersion)
	}
	f := IndexFile{Entries: d.Entries}
	if d.Archive != "" {
		f.Archive, err = digest.Parse(d.Archive)
		if err != nil {
			return IndexFile{}, fmt.Errorf("index file archive digest: %w", err)
		}
	}
	return f, nil
}

// SaveIndexFile writes f to path atomically.
func SaveIndexFile(path string, f IndexFile) error {
	tmp, err := createTemp(path)
	if err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := WriteIndex(tmp.bw, f); err != nil {
		tmp.discard()
		return err
	}
	if err := tmp.commit(); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	return nil
}

// LoadIndexFile reads an index written by SaveIndexFile.
func LoadIndexFile(path string) (IndexFile, error) {
	fh, err := os.Open(path) //nolint:gosec // caller-chosen path
	if err != nil {
		return IndexFile{}, fmt.Errorf("open index file: %w", err)
	}
	defer fh.Close()
	return ReadIndex(fh)
}
