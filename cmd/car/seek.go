package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/car"
	"github.com/meigma/car/catalog"
)

type seekFlags struct {
	keys        []string
	indexPath   string
	catalogDir  string
	digest      string
	checkDigest bool
}

func (a *app) newSeekCmd() *cobra.Command {
	var f seekFlags

	cmd := &cobra.Command{
		Use:   "seek <file> [<offset> <length>]",
		Short: "Read single rows by byte range or key",
		Long: `Seek reads rows without scanning the archive. Either give the offset and
length printed by index, or one or more --key values together with an
index file (--index) or a catalog (--catalog).

An index file is checked against the archive size; --check-digest also
hashes the archive and compares it with the digest the index records.
The catalog is keyed by archive digest, so the archive is hashed unless
--digest supplies it.`,
		Example: `  car seek rows.car 61 48
  car seek rows.car --key user/42 --index rows.car.idx
  car seek rows.car --key a --key b --catalog ~/.cache/car
  car seek rows.car --key a --catalog ~/.cache/car --digest sha256:4f1c...`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(f.keys) == 0 && len(args) != 3:
				return errors.New("expected <file> <offset> <length>, or <file> with --key")
			case len(f.keys) > 0 && len(args) != 1:
				return errors.New("--key cannot be combined with an offset and length")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(f.keys) == 0 {
				return a.seekRange(args[0], args[1], args[2])
			}
			return a.seekKeys(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringArrayVar(&f.keys, "key", nil, "row key to read (repeatable)")
	cmd.Flags().StringVar(&f.indexPath, "index", "", "index file written by index --out or write --index")
	cmd.Flags().StringVar(&f.catalogDir, "catalog", "", "catalog directory (default: catalog_dir from config)")
	cmd.Flags().StringVar(&f.digest, "digest", "", "archive digest for catalog lookups, as printed by inspect")
	cmd.Flags().BoolVar(&f.checkDigest, "check-digest", false, "hash the archive and compare it with the index file's digest")
	return cmd
}

func (a *app) seekRange(path, offsetArg, lengthArg string) error {
	offset, err := strconv.ParseUint(offsetArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q", offsetArg)
	}
	length, err := strconv.ParseUint(lengthArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid length %q", lengthArg)
	}

	r, err := car.ReadAtFile(path, offset, length, a.readOptions()...)
	if err != nil {
		return err
	}
	a.printSeek(r)
	return nil
}

func (a *app) seekKeys(ctx context.Context, path string, f seekFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := os.Open(path) //nolint:gosec // user-supplied path
	if err != nil {
		return err
	}
	defer file.Close()

	entries, err := a.locate(archive{path: path, file: file}, f)
	if err != nil {
		return err
	}

	rows, err := car.ReadEntries(ctx, file, entries, a.readOptions()...)
	if err != nil {
		return err
	}
	for _, r := range rows {
		a.printSeek(r)
	}
	return nil
}

// archive is the open archive a seek reads from.
type archive struct {
	path string
	file *os.File
}

// digest hashes the whole archive.
func (ar archive) digest() (digest.Digest, error) {
	if _, err := ar.file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	d, err := car.Digest(ar.file)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", ar.path, err)
	}
	return d, nil
}

// locate resolves the requested keys to index entries using the index file
// or the catalog.
func (a *app) locate(ar archive, f seekFlags) (car.Index, error) {
	lookup, closeFn, err := a.lookupFunc(ar, f)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	entries := make(car.Index, 0, len(f.keys))
	for _, key := range f.keys {
		e, ok, err := lookup(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("key %q not found", key)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type lookupFunc func(key string) (car.BlockIndexEntry, bool, error)

func (a *app) lookupFunc(ar archive, f seekFlags) (lookupFunc, func(), error) {
	if f.indexPath != "" {
		idx, err := a.loadIndexFor(ar, f)
		if err != nil {
			return nil, nil, err
		}
		return func(key string) (car.BlockIndexEntry, bool, error) {
			e, ok := idx.Lookup(key)
			return e, ok, nil
		}, func() {}, nil
	}

	dir := a.catalogDir(f.catalogDir)
	if dir == "" {
		return nil, nil, errors.New("--key requires --index or --catalog")
	}

	var d digest.Digest
	if f.digest != "" {
		parsed, err := digest.Parse(f.digest)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --digest: %w", err)
		}
		d = parsed
	} else {
		a.logger.Debug("hashing archive for catalog lookup", "path", ar.path)
		computed, err := ar.digest()
		if err != nil {
			return nil, nil, err
		}
		d = computed
	}

	c, err := catalog.Open(dir, catalog.WithLogger(a.logger))
	if err != nil {
		return nil, nil, err
	}
	return func(key string) (car.BlockIndexEntry, bool, error) {
		return c.Lookup(d, key)
	}, func() { _ = c.Close() }, nil
}

// loadIndexFor loads the index file and checks that it can describe ar:
// its blocks must fit inside the archive and, with --check-digest, the
// recorded digest must match.
func (a *app) loadIndexFor(ar archive, f seekFlags) (car.Index, error) {
	idx, err := car.LoadIndexFile(f.indexPath)
	if err != nil {
		return nil, err
	}

	info, err := ar.file.Stat()
	if err != nil {
		return nil, err
	}
	if end := idx.Entries.End(); end > uint64(info.Size()) { //nolint:gosec // file sizes are non-negative
		return nil, fmt.Errorf("index %s covers %d bytes but %s holds %d", f.indexPath, end, ar.path, info.Size())
	}

	if f.checkDigest && idx.Archive != "" {
		d, err := ar.digest()
		if err != nil {
			return nil, err
		}
		if d != idx.Archive {
			return nil, fmt.Errorf("index %s describes archive %s, not %s", f.indexPath, idx.Archive, d)
		}
	}
	return idx.Entries, nil
}

func (a *app) printSeek(r car.Row) {
	fmt.Fprintf(a.out, "Row Key: %s\n", r.Key)
	fmt.Fprintf(a.out, "Data: %s\n", displayData(r.Data))
}
