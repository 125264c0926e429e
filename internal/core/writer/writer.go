// Package writer is the Output Writer (C7): an append-only file owned
// exclusively by the scheduler, receiving plaintext segment buffers in
// strict index order. Progress is reported by the scheduler, not here.
package writer

import (
	"os"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
)

// Writer appends segment bytes to a single output file, truncated at
// job start. No framing bytes are introduced; bytes are written exactly as
// received.
type Writer struct {
	path string
	file *os.File
}

// Open truncates (or creates) path and returns a Writer over it.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, hlserr.NewWriteError(path, err)
	}
	return &Writer{path: path, file: f}, nil
}

// Write appends data to the output file.
func (w *Writer) Write(data []byte) error {
	if _, err := w.file.Write(data); err != nil {
		return hlserr.NewWriteError(w.path, err)
	}
	return nil
}

// Close flushes and closes the output file. Safe to call once, at job end
// whether the job succeeded, failed, or was cancelled; the caller decides
// whether to delete a partial file.
func (w *Writer) Close() error {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return hlserr.NewWriteError(w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return hlserr.NewWriteError(w.path, err)
	}
	return nil
}

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }
