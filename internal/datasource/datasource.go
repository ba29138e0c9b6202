// Package datasource defines where the extract stage reads raw bytes from.
// Implementations live in subpackages: httpds for http(s) sources and file
// for local paths.
package datasource

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// Source yields the raw payload of one extraction. Callers must close the
// returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsRemote reports whether location names an http(s) endpoint rather than a
// local file (a plain path or a file:// URL).
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

// LocalPath converts a file:// URL into a filesystem path. Anything else is
// returned unchanged.
func LocalPath(location string) string {
	if !strings.HasPrefix(strings.ToLower(location), "file://") {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		return strings.TrimPrefix(location, "file://")
	}
	if u.Host != "" && u.Host != "localhost" {
		return u.Host + u.Path
	}
	return u.Path
}
