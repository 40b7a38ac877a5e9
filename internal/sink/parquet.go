package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/multierr"
)

// Writer streams typed rows to a parquet file. Rows go to a hidden temp
// file next to the target; Commit renames it into place and Abort removes
// it, so the target path only ever holds a complete file.
type Writer[T any] struct {
	path    string
	tmp     string
	file    *os.File
	pw      *parquet.GenericWriter[T]
	rows    int
	batches int
	closed  bool
}

func Create[T any](path string) (*Writer[T], error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}
	return &Writer[T]{
		path: path,
		tmp:  f.Name(),
		file: f,
		pw:   parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Snappy)),
	}, nil
}

// WriteBatch writes rows as one row group.
func (w *Writer[T]) WriteBatch(rows []T) error {
	if w.closed {
		return fmt.Errorf("write to closed parquet writer %s", w.path)
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := w.pw.Write(rows); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if err := w.pw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	w.rows += len(rows)
	w.batches++
	return nil
}

func (w *Writer[T]) Rows() int    { return w.rows }
func (w *Writer[T]) Batches() int { return w.batches }
func (w *Writer[T]) Path() string { return w.path }

func (w *Writer[T]) Commit() error {
	if w.closed {
		return fmt.Errorf("parquet writer %s already closed", w.path)
	}
	w.closed = true
	err := multierr.Combine(w.pw.Close(), w.file.Sync(), w.file.Close())
	if err != nil {
		return multierr.Append(err, os.Remove(w.tmp))
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		return multierr.Append(err, os.Remove(w.tmp))
	}
	return nil
}

// Abort discards everything written. It is a no-op after Commit.
func (w *Writer[T]) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return multierr.Combine(w.pw.Close(), w.file.Close(), os.Remove(w.tmp))
}

// Scan reads path in chunks of at most batch rows and hands each chunk to
// fn. The chunk slice is reused between calls.
func Scan[T any](path string, batch int, fn func(rows []T) error) (int, error) {
	if batch <= 0 {
		batch = 1024
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	buf := make([]T, batch)
	total := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += n
			if ferr := fn(buf[:n]); ferr != nil {
				return total, ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, fmt.Errorf("read %s: %w", path, err)
		}
	}
}
