// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose schema migrations, a health probe, and error
// classification helpers used by the stores.
//
// Typical startup sequence:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//
// The error helpers (IsNotFoundError, IsDuplicateKeyError,
// IsForeignKeyViolationError, IsCheckViolationError) let business code branch
// on SQLSTATE classes without importing pgconn everywhere.
package pg
