package car

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter builds an archive on disk.
//
// Blocks are written to a temp file beside the target path; Finalize renames
// it into place only once every block and the flush have succeeded, so a
// failed write never leaves a truncated archive at path.
type FileWriter struct {
	tmp *tempFile
	w   *Writer
}

// CreateFile returns a FileWriter for path. Parent directories are created
// as needed.
func CreateFile(path string, opts ...Option) (*FileWriter, error) {
	tmp, err := createTemp(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	return &FileWriter{tmp: tmp, w: NewWriter(tmp.bw, opts...)}, nil
}

// Path returns the final archive path.
func (f *FileWriter) Path() string {
	return f.tmp.target
}

// AddRow encodes a row and buffers it.
func (f *FileWriter) AddRow(key string, data []byte) error {
	return f.w.AddRow(key, data)
}

// Finalize writes the archive and moves it to its final path.
func (f *FileWriter) Finalize() (Index, error) {
	idx, err := f.w.Finalize()
	if err != nil {
		f.Abort()
		return nil, err
	}
	if err := f.tmp.commit(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Abort discards the partially written archive. It is safe to call more
// than once and after Finalize.
func (f *FileWriter) Abort() {
	f.tmp.discard()
}

// WriteRowsFile writes rows as an archive at path.
func WriteRowsFile(path string, rows []Row, opts ...Option) (Index, error) {
	fw, err := CreateFile(path, opts...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := fw.AddRow(r.Key, r.Data); err != nil {
			fw.Abort()
			return nil, err
		}
	}
	return fw.Finalize()
}

// tempFile is a buffered temp file that replaces target on commit.
type tempFile struct {
	target string
	f      *os.File
	bw     *bufio.Writer
}

// createTemp opens a temp file in target's directory, creating the
// directory as needed.
func createTemp(target string) (*tempFile, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, ".car-*")
	if err != nil {
		return nil, err
	}
	return &tempFile{target: target, f: f, bw: bufio.NewWriter(f)}, nil
}

// commit flushes and syncs the temp file, then renames it over target.
// The temp file is removed on any failure.
func (t *tempFile) commit() error {
	if t.f == nil {
		return os.ErrClosed
	}
	if err := t.bw.Flush(); err != nil {
		t.discard()
		return err
	}
	if err := t.f.Sync(); err != nil {
		t.discard()
		return err
	}
	tmpPath := t.f.Name()
	err := t.f.Close()
	t.f = nil
	if err == nil {
		err = os.Rename(tmpPath, t.target)
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// discard closes and removes the temp file. It is a no-op after commit.
func (t *tempFile) discard() {
	if t.f == nil {
		return
	}
	tmpPath := t.f.Name()
	t.f.Close()
	os.Remove(tmpPath)
	t.f = nil
}

// openFile opens an archive for reading.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // caller-chosen path
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return f, nil
}
