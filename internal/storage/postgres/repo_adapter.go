package postgres

import (
	"context"

	"batchetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// init registers the "postgres" backend with the storage factory.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		dsn := cfg.DSN
		if dsn == "" {
			dsn = BuildDSN(cfg)
		}
		r, err := newRepository(ctx, Config{DSN: dsn, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
