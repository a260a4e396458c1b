package car

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/car/internal/block"
	"github.com/meigma/car/internal/header"
	"github.com/meigma/car/internal/testutil"
)

// splitHeader parses the framed header at the start of data and returns it
// with its framed size.
func splitHeader(t *testing.T, data []byte) (header.Header, int) {
	t.Helper()
	payload, n, err := block.ReadFramed(bufio.NewReader(bytes.NewReader(data)), 0)
	require.NoError(t, err)
	h, err := header.Decode(payload)
	require.NoError(t, err)
	return h, int(n)
}

// replaceHeader returns data with its header replaced by h.
func replaceHeader(t *testing.T, data []byte, h header.Header) []byte {
	t.Helper()
	_, n := splitHeader(t, data)
	hdr, err := header.Encode(h)
	require.NoError(t, err)
	return append(block.AppendFrame(nil, hdr), data[n:]...)
}

func exampleRows() []Row {
	return []Row{
		{Key: "a", Data: []byte("1")},
		{Key: "b", Data: []byte("22")},
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(exampleRows())
	require.NoError(t, err)
	require.Len(t, idx, 2)

	rows, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, exampleRows(), rows)
}

func TestArchiveRoundTripBLAKE3(t *testing.T) {
	t.Parallel()

	rows := testutil.SampleRows(20)
	data, _, err := BuildInMemory(rows, WithHash(HashBLAKE3))
	require.NoError(t, err)

	h, _ := splitHeader(t, data)
	cids, err := h.CIDs()
	require.NoError(t, err)
	assert.Equal(t, uint64(HashBLAKE3), cids[0].Prefix().MhType)

	got, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriterIsDeterministic(t *testing.T) {
	t.Parallel()

	rows := testutil.SampleRows(10)
	a, idxA, err := BuildInMemory(rows)
	require.NoError(t, err)
	b, idxB, err := BuildInMemory(rows)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, idxA, idxB)
}

func TestFinalizeIndexLayout(t *testing.T) {
	t.Parallel()

	data, idx, err := BuildInMemory(testutil.SampleRows(50))
	require.NoError(t, err)

	h, headerSize := splitHeader(t, data)
	assert.Len(t, h.Roots, 50)
	assert.Equal(t, Version, h.Version)

	require.NoError(t, idx.Validate())
	assert.Equal(t, uint64(headerSize), idx[0].Offset)
	for i := 0; i < len(idx)-1; i++ {
		assert.Equal(t, idx[i].Offset+idx[i].Length, idx[i+1].Offset)
	}
	assert.Equal(t, uint64(len(data)), idx.End())
}

func TestWriterRootsFollowInsertionOrder(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Key: "z", Data: []byte("last")},
		{Key: "a", Data: []byte("first")},
		{Key: "z", Data: []byte("duplicate key")},
	}
	data, idx, err := BuildInMemory(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "z"}, idx.Keys())

	got, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriterUseAfterFinalize(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.AddRow("a", []byte("1")))
	assert.Equal(t, 1, w.Len())

	_, err := w.Finalize()
	require.NoError(t, err)
	size := buf.Len()

	require.ErrorIs(t, w.AddRow("b", []byte("2")), ErrFinalized)
	_, err = w.Finalize()
	require.ErrorIs(t, err, ErrFinalized)
	assert.Equal(t, size, buf.Len())
}

func TestFinalizeWithoutRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	_, err := w.Finalize()
	require.ErrorIs(t, err, ErrNoRoots)
	assert.Zero(t, buf.Len())

	require.ErrorIs(t, w.AddRow("a", nil), ErrFinalized)
}

func TestFinalizeWriteFailure(t *testing.T) {
	t.Parallel()

	w := NewWriter(&testutil.FailingWriter{Limit: 40})
	for _, r := range testutil.SampleRows(5) {
		require.NoError(t, w.AddRow(r.Key, r.Data))
	}
	_, err := w.Finalize()
	require.ErrorIs(t, err, testutil.ErrWriteFailed)

	_, err = w.Finalize()
	require.ErrorIs(t, err, ErrFinalized)
}

func TestWriterUsesSinkOffset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString("preamble")
	sink := NewSink(&buf, int64(buf.Len()))

	idx, err := WriteRows(sink, exampleRows())
	require.NoError(t, err)

	plain, plainIdx, err := BuildInMemory(exampleRows())
	require.NoError(t, err)
	assert.Equal(t, plain, buf.Bytes()[len("preamble"):])
	for i := range idx {
		assert.Equal(t, plainIdx[i].Offset+uint64(len("preamble")), idx[i].Offset)
		assert.Equal(t, plainIdx[i].Length, idx[i].Length)
	}

	// Index entries address the combined stream directly.
	r, err := ReadEntry(bytes.NewReader(buf.Bytes()), idx[1])
	require.NoError(t, err)
	assert.Equal(t, exampleRows()[1], r)
}

func TestWriterMaxBlockSize(t *testing.T) {
	t.Parallel()

	w := NewWriter(&bytes.Buffer{}, WithMaxBlockSize(64))
	require.NoError(t, w.AddRow("small", []byte("ok")))
	err := w.AddRow("big", bytes.Repeat([]byte("x"), 128))
	require.ErrorIs(t, err, ErrSizeOverflow)
	assert.Equal(t, 1, w.Len())
}

func TestWriterHeaderSizeLimit(t *testing.T) {
	t.Parallel()

	// Each root is roughly 60 bytes of text; five of them overflow 200 bytes
	// while every block stays under it.
	var buf bytes.Buffer
	w := NewWriter(&buf, WithMaxBlockSize(200))
	for _, r := range testutil.SampleRows(5) {
		require.NoError(t, w.AddRow(r.Key, r.Data[:min(len(r.Data), 8)]))
	}
	_, err := w.Finalize()
	require.ErrorIs(t, err, ErrSizeOverflow)
	assert.Zero(t, buf.Len())
}

func TestWriteRowsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rows.car")
	rows := testutil.SampleRows(8)

	idx, err := WriteRowsFile(path, rows)
	require.NoError(t, err)
	assert.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, idx.End(), uint64(info.Size()))

	got, err := ReadAllFile(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileWriterAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "aborted.car")

	fw, err := CreateFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fw.Path())
	require.NoError(t, fw.AddRow("a", []byte("1")))
	fw.Abort()
	fw.Abort()

	assert.NoFileExists(t, path)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileWriterFailedFinalizeLeavesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.car")

	fw, err := CreateFile(path)
	require.NoError(t, err)
	_, err = fw.Finalize()
	require.ErrorIs(t, err, ErrNoRoots)

	assert.NoFileExists(t, path)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.ErrorIs(t, fw.AddRow("a", nil), ErrFinalized)
}

func TestFileWriterReplacesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rows.car")
	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0o600))

	_, err := WriteRowsFile(path, exampleRows())
	require.NoError(t, err)

	got, err := ReadAllFile(path)
	require.NoError(t, err)
	assert.Equal(t, exampleRows(), got)
}
