package car

import (
	"bufio"
	"fmt"
	"io"

	"github.com/meigma/car/internal/block"
	"github.com/meigma/car/internal/header"
	"github.com/meigma/car/internal/ident"
	"github.com/meigma/car/internal/row"
)

// ReadAll reads every row of the archive in r, in stream order.
//
// Each block's embedded identifier must equal the corresponding header root,
// and, unless disabled with ReadWithVerify, the row bytes must hash to that
// identifier. Any failure aborts the read and no rows are returned.
func ReadAll(r io.Reader, opts ...ReadOption) ([]Row, error) {
	var rows []Row
	err := Scan(r, func(row Row) error {
		rows = append(rows, row)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadAllFile reads every row of the archive at path.
func ReadAllFile(path string, opts ...ReadOption) ([]Row, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f, opts...)
}

// Scan performs the same validated walk as ReadAll but hands each row to fn
// as soon as it is verified, holding one block in memory at a time. Rows
// delivered before an error are valid; the archive as a whole is not. An
// error from fn stops the scan and is returned as is.
func Scan(r io.Reader, fn func(Row) error, opts ...ReadOption) error {
	cfg := newReadConfig(opts)
	br := byteReader(r)

	hdr, _, err := readHeader(br, cfg.maxBlockSize)
	if err != nil {
		return err
	}
	roots, err := hdr.CIDs()
	if err != nil {
		return err
	}

	for i, root := range roots {
		payload, _, err := block.ReadFramed(br, cfg.maxBlockSize)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		id, data, err := block.Split(payload)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if !id.Equals(root) {
			return fmt.Errorf("block %d: %w", i, &CIDMismatchError{Expected: root.String(), Actual: id.String()})
		}
		if cfg.verify {
			if err := ident.Verify(id, data); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
		}
		key, value, err := row.Decode(data)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err := fn(Row{Key: key, Data: value}); err != nil {
			return err
		}
	}

	cfg.log().Debug("archive read", "blocks", len(roots), "verified", cfg.verify)
	return nil
}

// readHeader reads the framed header and rejects archives without roots.
// It returns the header and its framed size.
func readHeader(r block.Reader, limit uint64) (header.Header, uint64, error) {
	payload, n, err := block.ReadFramed(r, limit)
	if err != nil {
		return header.Header{}, 0, fmt.Errorf("read header: %w", err)
	}
	hdr, err := header.Decode(payload)
	if err != nil {
		return header.Header{}, 0, err
	}
	if len(hdr.Roots) == 0 {
		return header.Header{}, 0, ErrNoRoots
	}
	return hdr, n, nil
}

// byteReader returns r when it can already read single bytes, and a
// buffered reader over it otherwise.
func byteReader(r io.Reader) block.Reader {
	if br, ok := r.(block.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}
