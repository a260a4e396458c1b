package car

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/car/internal/block"
	"github.com/meigma/car/internal/ident"
	"github.com/meigma/car/internal/row"
	"github.com/meigma/car/internal/sizing"
	"github.com/meigma/car/internal/varint"
)

// ReadAt reads the single row whose framed block occupies [offset,
// offset+length) in src, without touching any other part of the archive.
//
// The range must come from an Index for the same archive; it is not checked
// against the header. The block's row bytes are still re-hashed against its
// embedded identifier unless ReadWithVerify(false) is given.
func ReadAt(src io.ReaderAt, offset, length uint64, opts ...ReadOption) (Row, error) {
	cfg := newReadConfig(opts)

	off, err := sizing.Offset(offset)
	if err != nil {
		return Row{}, err
	}
	limit := cfg.maxBlockSize
	if limit > 0 {
		limit += varint.MaxLen
	}
	n, err := sizing.BlockLen(length, limit)
	if err != nil {
		return Row{}, fmt.Errorf("block at %d: %w", offset, err)
	}

	buf := make([]byte, n)
	read, err := src.ReadAt(buf, off)
	if read < n {
		if err == nil || errors.Is(err, io.EOF) {
			return Row{}, fmt.Errorf("%w: block at %d: read %d of %d bytes", ErrUnexpectedEOF, offset, read, n)
		}
		return Row{}, fmt.Errorf("block at %d: %w", offset, err)
	}

	payload, err := block.Unframe(buf)
	if err != nil {
		return Row{}, fmt.Errorf("block at %d: %w", offset, err)
	}
	id, data, err := block.Split(payload)
	if err != nil {
		return Row{}, fmt.Errorf("block at %d: %w", offset, err)
	}
	if cfg.verify {
		if err := ident.Verify(id, data); err != nil {
			return Row{}, fmt.Errorf("block at %d: %w", offset, err)
		}
	}
	key, value, err := row.Decode(data)
	if err != nil {
		return Row{}, fmt.Errorf("block at %d: %w", offset, err)
	}
	return Row{Key: key, Data: value}, nil
}

// ReadAtFile opens the archive at path and reads one row with ReadAt.
func ReadAtFile(path string, offset, length uint64, opts ...ReadOption) (Row, error) {
	f, err := openFile(path)
	if err != nil {
		return Row{}, err
	}
	defer f.Close()
	return ReadAt(f, offset, length, opts...)
}

// ReadEntry reads the row located by e and checks that it carries e's key.
func ReadEntry(src io.ReaderAt, e BlockIndexEntry, opts ...ReadOption) (Row, error) {
	r, err := ReadAt(src, e.Offset, e.Length, opts...)
	if err != nil {
		return Row{}, err
	}
	if r.Key != e.Key {
		return Row{}, fmt.Errorf("%w: entry %q at %d holds %q", ErrIndexMismatch, e.Key, e.Offset, r.Key)
	}
	return r, nil
}

// ReadEntries reads the rows for entries concurrently and returns them in
// entry order. src must be safe for concurrent ReadAt calls, as *os.File
// and bytes.Reader are. The first error cancels the remaining reads.
func ReadEntries(ctx context.Context, src io.ReaderAt, entries Index, opts ...ReadOption) ([]Row, error) {
	cfg := newReadConfig(opts)
	rows := make([]Row, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := ReadEntry(src, e, opts...)
			if err != nil {
				return err
			}
			rows[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cfg.log().Debug("entries read", "count", len(entries), "concurrency", cfg.concurrency)
	return rows, nil
}
