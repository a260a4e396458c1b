package car

import (
	"fmt"
	"io"

	"github.com/meigma/car/internal/block"
	"github.com/meigma/car/internal/header"
	"github.com/meigma/car/internal/row"
)

// Index lists the location of every block in an archive, in stream order.
type Index []BlockIndexEntry

// Lookup returns the first entry for key. Keys are not required to be
// unique; later duplicates are only reachable by position.
func (idx Index) Lookup(key string) (BlockIndexEntry, bool) {
	for _, e := range idx {
		if e.Key == key {
			return e, true
		}
	}
	return BlockIndexEntry{}, false
}

// Keys returns the row keys in stream order.
func (idx Index) Keys() []string {
	keys := make([]string, len(idx))
	for i, e := range idx {
		keys[i] = e.Key
	}
	return keys
}

// End returns the offset just past the last block, or 0 for an empty index.
func (idx Index) End() uint64 {
	if len(idx) == 0 {
		return 0
	}
	return idx[len(idx)-1].End()
}

// Validate checks that entries are non-empty and contiguous: each block
// starts exactly where the previous one ended.
func (idx Index) Validate() error {
	for i, e := range idx {
		if e.Length == 0 {
			return fmt.Errorf("%w: entry %d (%q) is empty", ErrNotContiguous, i, e.Key)
		}
		if i > 0 && idx[i-1].End() != e.Offset {
			return fmt.Errorf("%w: entry %d (%q) starts at %d, previous ends at %d",
				ErrNotContiguous, i, e.Key, e.Offset, idx[i-1].End())
		}
	}
	return nil
}

// BuildIndex walks the archive in r and records where each block starts and
// how long it is. Unlike ReadAll it does not compare blocks with their
// roots; the returned offsets are absolute from the start of r.
func BuildIndex(r io.Reader, opts ...ReadOption) (Index, error) {
	cfg := newReadConfig(opts)
	_, idx, err := scanIndex(byteReader(r), &cfg)
	if err != nil {
		return nil, err
	}
	cfg.log().Debug("index built", "blocks", len(idx), "end_offset", idx.End())
	return idx, nil
}

// BuildIndexFile builds the index of the archive at path.
func BuildIndexFile(path string, opts ...ReadOption) (Index, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return BuildIndex(f, opts...)
}

// scanIndex reads the header and one block per root, tracking offsets.
func scanIndex(r block.Reader, cfg *readConfig) (header.Header, Index, error) {
	hdr, offset, err := readHeader(r, cfg.maxBlockSize)
	if err != nil {
		return header.Header{}, nil, err
	}

	idx := make(Index, 0, len(hdr.Roots))
	for i := range hdr.Roots {
		payload, n, err := block.ReadFramed(r, cfg.maxBlockSize)
		if err != nil {
			return header.Header{}, nil, fmt.Errorf("block %d: %w", i, err)
		}
		_, data, err := block.Split(payload)
		if err != nil {
			return header.Header{}, nil, fmt.Errorf("block %d: %w", i, err)
		}
		key, _, err := row.Decode(data)
		if err != nil {
			return header.Header{}, nil, fmt.Errorf("block %d: %w", i, err)
		}
		idx = append(idx, BlockIndexEntry{Key: key, Offset: offset, Length: n})
		offset += n
	}
	return hdr, idx, nil
}
