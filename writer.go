package car

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"

	"github.com/meigma/car/internal/block"
	"github.com/meigma/car/internal/header"
	"github.com/meigma/car/internal/row"
)

// pendingRow is a row that has been encoded but not yet written.
type pendingRow struct {
	key string
	id  cid.Cid
	row []byte
}

// Writer builds an archive.
//
// Rows are buffered by AddRow and written, header first, by Finalize. A
// Writer is spent after Finalize, whether or not it succeeded. A Writer is
// not safe for concurrent use.
type Writer struct {
	sink Sink
	cfg  config
	rows []pendingRow
	done bool
}

// NewWriter returns a Writer that emits the archive to w. If w implements
// Sink its Offset is used for index entries; otherwise offsets count from
// the first byte the Writer writes.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	s, ok := w.(Sink)
	if !ok {
		s = NewSink(w, 0)
	}
	return &Writer{sink: s, cfg: newConfig(opts)}
}

// AddRow encodes a row and buffers it. Nothing is written until Finalize.
func (w *Writer) AddRow(key string, data []byte) error {
	if w.done {
		return ErrFinalized
	}
	id, encoded, err := row.Encode(key, data, w.cfg.hash)
	if err != nil {
		return err
	}
	if limit := w.cfg.maxBlockSize; limit > 0 {
		if n := uint64(id.ByteLen() + len(encoded)); n > limit {
			return fmt.Errorf("row %q: block of %d bytes: %w", key, n, ErrSizeOverflow)
		}
	}
	w.rows = append(w.rows, pendingRow{key: key, id: id, row: encoded})
	return nil
}

// Len returns the number of buffered rows.
func (w *Writer) Len() int {
	return len(w.rows)
}

// Finalize writes the header and every buffered block, flushes the sink if
// it buffers, and returns where each block landed.
//
// On error the sink holds a truncated archive that must be discarded.
func (w *Writer) Finalize() (Index, error) {
	if w.done {
		return nil, ErrFinalized
	}
	w.done = true
	rows := w.rows
	w.rows = nil
	if len(rows) == 0 {
		return nil, ErrNoRoots
	}
	return writeArchive(w.sink, rows, &w.cfg)
}

// writeArchive frames the header and rows onto s.
func writeArchive(s Sink, rows []pendingRow, cfg *config) (Index, error) {
	cids := make([]cid.Cid, len(rows))
	for i, r := range rows {
		cids[i] = r.id
	}
	hdr, err := header.Encode(header.New(cids))
	if err != nil {
		return nil, err
	}
	if limit := cfg.maxBlockSize; limit > 0 && uint64(len(hdr)) > limit {
		return nil, fmt.Errorf("header of %d bytes for %d roots: %w", len(hdr), len(cids), ErrSizeOverflow)
	}
	buf := block.AppendFrame(nil, hdr)
	if _, err := s.Write(buf); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	cfg.log().Debug("archive header written", "roots", len(cids), "hash", cfg.hash.String(), "header_size", len(buf))

	idx := make(Index, 0, len(rows))
	for _, r := range rows {
		start := s.Offset()
		buf = block.AppendFrame(buf[:0], block.Compose(r.id, r.row))
		if _, err := s.Write(buf); err != nil {
			return nil, fmt.Errorf("write block %q: %w", r.key, err)
		}
		idx = append(idx, BlockIndexEntry{
			Key:    r.key,
			Offset: uint64(start), //nolint:gosec // sink offsets are non-negative
			Length: uint64(len(buf)),
		})
	}

	if f, ok := s.(flusher); ok {
		if err := f.Flush(); err != nil {
			return nil, fmt.Errorf("flush archive: %w", err)
		}
	}
	cfg.log().Debug("archive written", "blocks", len(idx), "end_offset", s.Offset())
	return idx, nil
}

// MemWriter builds an archive in memory.
type MemWriter struct {
	buf bytes.Buffer
	w   *Writer
}

// NewMemWriter returns a Writer variant that keeps the archive in memory.
func NewMemWriter(opts ...Option) *MemWriter {
	m := &MemWriter{}
	m.w = NewWriter(&m.buf, opts...)
	return m
}

// AddRow encodes a row and buffers it.
func (m *MemWriter) AddRow(key string, data []byte) error {
	return m.w.AddRow(key, data)
}

// Finalize returns the archive bytes and its index.
func (m *MemWriter) Finalize() ([]byte, Index, error) {
	idx, err := m.w.Finalize()
	if err != nil {
		return nil, nil, err
	}
	return m.buf.Bytes(), idx, nil
}

// WriteRows writes rows as an archive to w.
func WriteRows(w io.Writer, rows []Row, opts ...Option) (Index, error) {
	aw := NewWriter(w, opts...)
	for _, r := range rows {
		if err := aw.AddRow(r.Key, r.Data); err != nil {
			return nil, err
		}
	}
	return aw.Finalize()
}

// BuildInMemory writes rows as an archive and returns its bytes.
func BuildInMemory(rows []Row, opts ...Option) ([]byte, Index, error) {
	m := NewMemWriter(opts...)
	for _, r := range rows {
		if err := m.AddRow(r.Key, r.Data); err != nil {
			return nil, nil, err
		}
	}
	return m.Finalize()
}
