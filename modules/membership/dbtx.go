package membership

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the slice of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// registry, store, and ledger run against the pool directly or inside a
// reconciler transaction without knowing which.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStarter begins pgx transactions. *pgxpool.Pool satisfies it; tests
// substitute pgxmock.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
