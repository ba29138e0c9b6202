package sqlite

import (
	"context"

	"batchetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		r, err := newRepository(ctx, dsn, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
