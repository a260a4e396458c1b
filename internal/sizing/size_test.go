package sizing

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/car/internal/cartype"
)

func TestBlockLen(t *testing.T) {
	t.Parallel()

	n, err := BlockLen(100, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	_, err = BlockLen(101, 100)
	require.ErrorIs(t, err, cartype.ErrSizeOverflow)

	n, err = BlockLen(1<<20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1<<20, n)

	_, err = BlockLen(math.MaxUint64, 0)
	require.ErrorIs(t, err, cartype.ErrSizeOverflow)
}

func TestOffset(t *testing.T) {
	t.Parallel()

	off, err := Offset(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), off)

	_, err = Offset(math.MaxUint64)
	require.ErrorIs(t, err, cartype.ErrSizeOverflow)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data, err := ReadAllWithLimit(bytes.NewReader([]byte("12345")), 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), data)

	_, err = ReadAllWithLimit(bytes.NewReader([]byte("123456")), 5)
	require.ErrorIs(t, err, cartype.ErrSizeOverflow)
}
