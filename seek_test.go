package car

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/car/internal/block"
	"github.com/meigma/car/internal/row"
	"github.com/meigma/car/internal/testutil"
)

func TestReadAtEveryEntry(t *testing.T) {
	t.Parallel()

	rows := testutil.SampleRows(40)
	data, idx, err := BuildInMemory(rows)
	require.NoError(t, err)

	built, err := BuildIndex(bytes.NewReader(data))
	require.NoError(t, err)

	for i, e := range built {
		src := testutil.NewByteSource(data)
		got, err := ReadAt(src, e.Offset, e.Length)
		require.NoError(t, err)
		assert.Equal(t, rows[i], got)
		assert.Equal(t, [][2]int64{{int64(e.Offset), int64(e.Length)}}, src.Reads(),
			"read outside block %d", i)

		got, err = ReadEntry(bytes.NewReader(data), idx[i])
		require.NoError(t, err)
		assert.Equal(t, rows[i], got)
	}
}

func TestReadAtBadRange(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(exampleRows())
	require.NoError(t, err)
	src := bytes.NewReader(data)
	e := idx[0]

	_, err = ReadAt(src, e.Offset, e.Length-1)
	require.ErrorIs(t, err, ErrUnexpectedEOF)

	_, err = ReadAt(src, e.Offset, e.Length+1)
	require.ErrorIs(t, err, ErrMalformedBlock)

	_, err = ReadAt(src, uint64(len(data)), 10)
	require.ErrorIs(t, err, ErrUnexpectedEOF)

	last := idx[len(idx)-1]
	_, err = ReadAt(src, last.Offset, last.Length+5)
	require.ErrorIs(t, err, ErrUnexpectedEOF)

	_, err = ReadAt(src, e.Offset, 1<<40)
	require.ErrorIs(t, err, ErrSizeOverflow)
}

func TestReadAtDetectsTamperedRow(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(exampleRows())
	require.NoError(t, err)
	e := idx[0]
	tampered := testutil.Flip(data, int(e.End())-1)

	_, err = ReadEntry(bytes.NewReader(tampered), e)
	require.ErrorIs(t, err, ErrCIDMismatch)

	got, err := ReadEntry(bytes.NewReader(tampered), e, ReadWithVerify(false))
	require.NoError(t, err)
	assert.Equal(t, "a", got.Key)
}

func TestReadAtUnsupportedHash(t *testing.T) {
	t.Parallel()

	encoded, err := row.Marshal("k", []byte("v"))
	require.NoError(t, err)
	mh, err := multihash.Sum(encoded, multihash.SHA2_512, -1)
	require.NoError(t, err)
	framed := block.AppendFrame(nil, block.Compose(cid.NewCidV1(cid.DagCBOR, mh), encoded))

	_, err = ReadAt(bytes.NewReader(framed), 0, uint64(len(framed)))
	require.ErrorIs(t, err, ErrMalformedBlock)
}

func TestReadEntryKeyMismatch(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(exampleRows())
	require.NoError(t, err)

	e := idx[0]
	e.Key = "b"
	_, err = ReadEntry(bytes.NewReader(data), e)
	require.ErrorIs(t, err, ErrIndexMismatch)
}

func TestReadAtFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rows.car")
	rows := testutil.SampleRows(6)
	idx, err := WriteRowsFile(path, rows)
	require.NoError(t, err)

	e, ok := idx.Lookup("row-004")
	require.True(t, ok)
	got, err := ReadAtFile(path, e.Offset, e.Length)
	require.NoError(t, err)
	assert.Equal(t, rows[4], got)
}

func TestReadEntries(t *testing.T) {
	t.Parallel()

	rows := testutil.SampleRows(100)
	data, idx, err := BuildInMemory(rows)
	require.NoError(t, err)

	got, err := ReadEntries(context.Background(), testutil.NewByteSource(data), idx, ReadWithConcurrency(8))
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	subset := Index{idx[42], idx[7], idx[42]}
	got, err = ReadEntries(context.Background(), bytes.NewReader(data), subset)
	require.NoError(t, err)
	assert.Equal(t, []Row{rows[42], rows[7], rows[42]}, got)
}

func TestReadEntriesStopsOnError(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(testutil.SampleRows(10))
	require.NoError(t, err)

	bad := append(Index(nil), idx...)
	bad[5].Key = "wrong"
	got, err := ReadEntries(context.Background(), bytes.NewReader(data), bad)
	require.ErrorIs(t, err, ErrIndexMismatch)
	assert.Nil(t, got)
}

func TestReadEntriesCancelled(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(testutil.SampleRows(10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadEntries(ctx, bytes.NewReader(data), idx)
	require.ErrorIs(t, err, context.Canceled)
}
