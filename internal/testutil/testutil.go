// Package testutil holds helpers shared by archive tests.
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/meigma/car/internal/cartype"
)

// SampleRows returns n rows with distinct keys and payloads of varying
// length, including an empty one.
func SampleRows(n int) []cartype.Row {
	rows := make([]cartype.Row, n)
	for i := range rows {
		rows[i] = cartype.Row{
			Key:  fmt.Sprintf("row-%03d", i),
			Data: bytes.Repeat([]byte{byte('a' + i%26)}, i*7%300),
		}
	}
	return rows
}

// ByteSource is an in-memory io.ReaderAt that records the ranges it serves.
type ByteSource struct {
	data []byte

	mu    sync.Mutex
	reads [][2]int64
}

// NewByteSource returns a source backed by data.
func NewByteSource(data []byte) *ByteSource {
	return &ByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (s *ByteSource) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	s.reads = append(s.reads, [2]int64{off, int64(len(p))})
	s.mu.Unlock()

	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Reads returns the (offset, length) of every ReadAt call so far.
func (s *ByteSource) Reads() [][2]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]int64(nil), s.reads...)
}

// Flip returns a copy of data with the byte at i inverted.
func Flip(data []byte, i int) []byte {
	out := bytes.Clone(data)
	out[i] ^= 0xff
	return out
}

// FailingWriter accepts limit bytes and then fails every write.
type FailingWriter struct {
	Limit int
	n     int
}

// ErrWriteFailed is returned by FailingWriter once its limit is reached.
var ErrWriteFailed = errors.New("testutil: write failed")

// Write implements io.Writer.
func (w *FailingWriter) Write(p []byte) (int, error) {
	room := w.Limit - w.n
	if room <= 0 {
		return 0, ErrWriteFailed
	}
	if len(p) > room {
		w.n += room
		return room, ErrWriteFailed
	}
	w.n += len(p)
	return len(p), nil
}
