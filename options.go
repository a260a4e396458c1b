package car

import (
	"log/slog"

	"github.com/meigma/car/internal/block"
)

// DefaultMaxBlockSize is the default limit on a single block (256MB).
const DefaultMaxBlockSize = block.DefaultMaxSize

// defaultReadConcurrency is used by ReadEntries when no concurrency is set.
const defaultReadConcurrency = 4

// config holds writer configuration.
type config struct {
	hash         Hash
	maxBlockSize uint64
	logger       *slog.Logger
}

// Option configures a Writer.
type Option func(*config)

// WithHash sets the digest algorithm for block identifiers (default SHA2-256).
func WithHash(h Hash) Option {
	return func(c *config) {
		c.hash = h
	}
}

// WithMaxBlockSize rejects rows whose block would exceed limit bytes, and
// fails Finalize if the header would, so the archive stays readable under the
// same limit. Set to 0 to disable.
func WithMaxBlockSize(limit uint64) Option {
	return func(c *config) {
		c.maxBlockSize = limit
	}
}

// WithLogger sets the logger for writer events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) config {
	c := config{
		hash:         HashSHA256,
		maxBlockSize: DefaultMaxBlockSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// readConfig holds configuration shared by the read paths.
type readConfig struct {
	verify       bool
	maxBlockSize uint64
	concurrency  int
	logger       *slog.Logger
}

// ReadOption configures ReadAll, Scan, BuildIndex, ReadAt and friends.
type ReadOption func(*readConfig)

// ReadWithVerify controls whether row bytes are re-hashed and compared with
// the identifier embedded in their block (default: true).
//
// Sequential reads always compare the embedded identifier with the header
// root; this adds detection of row bytes altered after the fact.
func ReadWithVerify(enabled bool) ReadOption {
	return func(c *readConfig) {
		c.verify = enabled
	}
}

// ReadWithMaxBlockSize limits the size of a single block. Larger length
// prefixes fail with ErrSizeOverflow before any allocation.
// Set to 0 to disable the limit.
func ReadWithMaxBlockSize(limit uint64) ReadOption {
	return func(c *readConfig) {
		c.maxBlockSize = limit
	}
}

// ReadWithConcurrency sets the number of concurrent reads used by
// ReadEntries. Values <= 0 use the default (4).
func ReadWithConcurrency(n int) ReadOption {
	return func(c *readConfig) {
		if n <= 0 {
			n = defaultReadConcurrency
		}
		c.concurrency = n
	}
}

// ReadWithLogger sets the logger for read events.
func ReadWithLogger(l *slog.Logger) ReadOption {
	return func(c *readConfig) {
		c.logger = l
	}
}

func newReadConfig(opts []ReadOption) readConfig {
	c := readConfig{
		verify:       true,
		maxBlockSize: DefaultMaxBlockSize,
		concurrency:  defaultReadConcurrency,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// log returns the logger, falling back to a discard logger if nil.
func (c *readConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
