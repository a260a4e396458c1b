package car

import (
	"io"
)

// Sink is the destination of an archive. Offset reports the absolute stream
// position at which the next written byte will land.
type Sink interface {
	io.Writer
	Offset() int64
}

// NewSink wraps w in a Sink whose position starts at base. Use a non-zero
// base when the archive does not begin at the start of w.
func NewSink(w io.Writer, base int64) Sink {
	return &countingSink{w: w, n: base}
}

// countingSink tracks the position of the underlying writer by counting
// bytes written.
type countingSink struct {
	w io.Writer
	n int64
}

// Write implements io.Writer.
func (s *countingSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.n += int64(n)
	return n, err
}

// Offset implements Sink.
func (s *countingSink) Offset() int64 {
	return s.n
}

// Flush flushes the underlying writer when it buffers.
func (s *countingSink) Flush() error {
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

type flusher interface {
	Flush() error
}

// countingReader wraps a reader and counts bytes read.
type countingReader struct {
	r io.Reader
	n uint64
}

// Read implements io.Reader.
func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += uint64(n) //nolint:gosec // n is non-negative by the io.Reader contract
	return n, err
}
