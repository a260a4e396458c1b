package car

import (
	"github.com/meigma/car/internal/cartype"
	"github.com/meigma/car/internal/header"
	"github.com/meigma/car/internal/ident"
)

// Re-export types from internal packages for the public API.
type (
	// Row is a single key/value record.
	Row = cartype.Row

	// BlockIndexEntry locates one framed block: Offset is the position of
	// its length prefix and Length covers prefix and block.
	BlockIndexEntry = cartype.BlockIndexEntry

	// Hash identifies the digest algorithm used for block identifiers.
	Hash = ident.Hash
)

// Hash algorithms.
const (
	HashSHA256 = ident.SHA256
	HashBLAKE3 = ident.BLAKE3
)

// Version is the archive header version written and accepted by this package.
const Version = header.Version

// ParseHash resolves a hash algorithm by name ("sha2-256" or "blake3").
var ParseHash = ident.ParseHash
