package car

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/car/internal/testutil"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(testutil.SampleRows(25))
	require.NoError(t, err)

	s, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)

	_, headerSize := splitHeader(t, data)
	assert.Equal(t, Version, s.Version)
	assert.Equal(t, 25, s.Roots)
	assert.Equal(t, uint64(headerSize), s.HeaderSize)
	assert.Equal(t, uint64(len(data)), s.Size)
	assert.Zero(t, s.Trailing)
	assert.Equal(t, digest.FromBytes(data), s.Digest)
	assert.Equal(t, idx, s.Index)

	d, err := Digest(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, s.Digest, d)
}

func TestInspectCountsTrailingBytes(t *testing.T) {
	t.Parallel()

	data, _, err := BuildInMemory(exampleRows())
	require.NoError(t, err)
	data = append(data, bytes.Repeat([]byte{0}, 4096)...)

	s, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), s.Trailing)
	assert.Equal(t, uint64(len(data)), s.Size)
	assert.Equal(t, digest.FromBytes(data), s.Digest)
}

func TestInspectFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rows.car")
	idx, err := WriteRowsFile(path, exampleRows())
	require.NoError(t, err)

	s, err := InspectFile(path)
	require.NoError(t, err)
	assert.Equal(t, idx, s.Index)

	_, err = InspectFile(filepath.Join(t.TempDir(), "missing.car"))
	require.Error(t, err)
}

func TestInspectTruncated(t *testing.T) {
	t.Parallel()

	data, _, err := BuildInMemory(exampleRows())
	require.NoError(t, err)

	_, err = Inspect(bytes.NewReader(data[:len(data)-3]))
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}
