// Package file implements a local filesystem-backed data source, used when
// the extract stage is pointed at a path or a file:// URL.
package file

import (
	"context"
	"io"

	"batchetl/internal/artifact"
)

// Local opens one file on the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the file for a sequential read. A context that is already
// done short-circuits before touching the filesystem. Filesystem errors keep
// their cause, so errors.Is(err, os.ErrNotExist) works.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := artifact.Open(l.path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
