// Package catalog stores archive indexes in a local Pebble database so rows
// can be located by archive digest and key without rescanning the archive.
//
// Two kinds of records are kept per archive:
//
//	idx/<digest>             the complete index, CBOR encoded
//	key/<digest>\x00<key>    the first entry for key, CBOR encoded
package catalog

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/car"
	"github.com/meigma/car/internal/codec"
)

// ErrNotFound is returned when the catalog holds no index for an archive.
var ErrNotFound = errors.New("catalog: archive not found")

const (
	indexPrefix = "idx/"
	keyPrefix   = "key/"
)

// Catalog is a persistent store of archive indexes. It is safe for
// concurrent use.
type Catalog struct {
	db     *pebble.DB
	sync   bool
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger for catalog events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = l
	}
}

// WithSync controls whether writes are synced to disk before returning
// (default: true).
func WithSync(enabled bool) Option {
	return func(c *Catalog) {
		c.sync = enabled
	}
}

// Open opens or creates the catalog in dir.
func Open(dir string, opts ...Option) (*Catalog, error) {
	c := &Catalog{sync: true}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", dir, err)
	}
	c.db = db
	c.logger.Debug("catalog opened", "dir", dir)
	return c, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put records idx as the index of the archive with digest d, replacing any
// index previously recorded for it.
func (c *Catalog) Put(d digest.Digest, idx car.Index) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("catalog put: %w", err)
	}
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("catalog put %s: %w", d, err)
	}

	value, err := codec.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	b := c.db.NewBatch()
	defer b.Close()

	start, end := keyRange(d)
	if err := b.DeleteRange(start, end, nil); err != nil {
		return err
	}
	if err := b.Set(indexKey(d), value, nil); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(idx))
	for _, e := range idx {
		if _, ok := seen[e.Key]; ok {
			continue
		}
		seen[e.Key] = struct{}{}
		v, err := codec.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %q: %w", e.Key, err)
		}
		if err := b.Set(entryKey(d, e.Key), v, nil); err != nil {
			return err
		}
	}
	if err := b.Commit(c.writeOptions()); err != nil {
		return fmt.Errorf("catalog put %s: %w", d, err)
	}
	c.logger.Debug("index cataloged", "digest", d, "entries", len(idx), "keys", len(seen))
	return nil
}

// Lookup returns the first entry for key in the archive with digest d.
// The boolean is false when the archive is cataloged but has no such key;
// ErrNotFound is returned when the archive is not cataloged at all.
func (c *Catalog) Lookup(d digest.Digest, key string) (car.BlockIndexEntry, bool, error) {
	var e car.BlockIndexEntry
	ok, err := c.get(entryKey(d, key), &e)
	if err != nil {
		return car.BlockIndexEntry{}, false, err
	}
	if ok {
		return e, true, nil
	}
	if err := c.requireIndex(d); err != nil {
		return car.BlockIndexEntry{}, false, err
	}
	return car.BlockIndexEntry{}, false, nil
}

// Index returns the complete index recorded for the archive with digest d.
func (c *Catalog) Index(d digest.Digest) (car.Index, error) {
	var idx car.Index
	ok, err := c.get(indexKey(d), &idx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d)
	}
	return idx, nil
}

// Delete removes every record for the archive with digest d. Deleting an
// archive that is not cataloged is not an error.
func (c *Catalog) Delete(d digest.Digest) error {
	b := c.db.NewBatch()
	defer b.Close()

	start, end := keyRange(d)
	if err := b.DeleteRange(start, end, nil); err != nil {
		return err
	}
	if err := b.Delete(indexKey(d), nil); err != nil {
		return err
	}
	if err := b.Commit(c.writeOptions()); err != nil {
		return fmt.Errorf("catalog delete %s: %w", d, err)
	}
	c.logger.Debug("index removed", "digest", d)
	return nil
}

// get decodes the value stored under k into v. It reports false when k is
// absent.
func (c *Catalog) get(k []byte, v any) (bool, error) {
	value, closer, err := c.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog get: %w", err)
	}
	defer closer.Close()

	if err := codec.Unmarshal(value, v); err != nil {
		return false, fmt.Errorf("decode catalog record: %w", err)
	}
	return true, nil
}

// requireIndex returns ErrNotFound when no index is recorded for d.
func (c *Catalog) requireIndex(d digest.Digest) error {
	_, closer, err := c.db.Get(indexKey(d))
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, d)
	}
	if err != nil {
		return fmt.Errorf("catalog get: %w", err)
	}
	return closer.Close()
}

func (c *Catalog) writeOptions() *pebble.WriteOptions {
	if c.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func indexKey(d digest.Digest) []byte {
	return []byte(indexPrefix + d.String())
}

func entryKey(d digest.Digest, key string) []byte {
	return []byte(keyPrefix + d.String() + "\x00" + key)
}

// keyRange returns the bounds covering every entry record of d.
func keyRange(d digest.Digest) (start, end []byte) {
	prefix := keyPrefix + d.String()
	return []byte(prefix + "\x00"), []byte(prefix + "\x01")
}
