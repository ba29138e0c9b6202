// Package artifact handles the on-disk files that carry data between stages.
// Writers never expose partial files: content goes to a temp file in the
// destination directory, is synced, and is renamed into place.
package artifact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
)

// WriteFile creates path's parent directories and atomically replaces path
// with whatever fill writes. If fill or any filesystem step fails, path is
// left untouched and the temp file is removed.
func WriteFile(path string, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("artifact: create temp in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, 256<<10)
	if err = fill(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("artifact: flush %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("artifact: fsync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("artifact: chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact: rename into %s: %w", path, err)
	}
	return nil
}

// WriteBytes is WriteFile for an in-memory payload.
func WriteBytes(path string, b []byte) error {
	return WriteFile(path, func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	})
}

// Open opens path for a single sequential pass and tells the kernel so.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open %s: %w", path, err)
	}
	adviseSequential(f)
	return f, nil
}

// Checksum returns the xxh3 64-bit digest of b.
func Checksum(b []byte) uint64 {
	return xxh3.Hash(b)
}

// ChecksumFile streams path through xxh3.
func ChecksumFile(path string) (uint64, int64, error) {
	f, err := Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	h := xxh3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, n, fmt.Errorf("artifact: hash %s: %w", path, err)
	}
	return h.Sum64(), n, nil
}
