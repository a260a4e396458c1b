package car

import (
	"bufio"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Summary describes an archive without holding its rows.
type Summary struct {
	// Version is the header version.
	Version uint64

	// Roots is the number of roots declared by the header.
	Roots int

	// HeaderSize is the framed size of the header, prefix included.
	HeaderSize uint64

	// Size is the total number of bytes in the stream.
	Size uint64

	// Trailing is the number of bytes after the last block.
	Trailing uint64

	// Digest is the SHA-256 digest of the entire stream.
	Digest digest.Digest

	// Index locates every block.
	Index Index
}

// Inspect indexes the archive in r and digests the whole stream, including
// any bytes after the last block.
func Inspect(r io.Reader, opts ...ReadOption) (*Summary, error) {
	cfg := newReadConfig(opts)
	digester := digest.Canonical.Digester()
	cr := &countingReader{r: io.TeeReader(r, digester.Hash())}
	br := bufio.NewReader(cr)

	hdr, idx, err := scanIndex(br, &cfg)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, br); err != nil {
		return nil, fmt.Errorf("read trailing data: %w", err)
	}

	s := &Summary{
		Version:    hdr.Version,
		Roots:      len(hdr.Roots),
		HeaderSize: idx[0].Offset,
		Size:       cr.n,
		Trailing:   cr.n - idx.End(),
		Digest:     digester.Digest(),
		Index:      idx,
	}
	cfg.log().Debug("archive inspected", "digest", s.Digest, "blocks", len(idx), "size", s.Size)
	return s, nil
}

// InspectFile inspects the archive at path.
func InspectFile(path string, opts ...ReadOption) (*Summary, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Inspect(f, opts...)
}

// Digest returns the SHA-256 digest of an archive's bytes, as recorded in
// index files and the catalog.
func Digest(r io.Reader) (digest.Digest, error) {
	return digest.Canonical.FromReader(r)
}
