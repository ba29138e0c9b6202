package mysql

import (
	"context"

	"batchetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
