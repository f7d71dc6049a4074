package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ohmyjons/simple-elt/internal/retry"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// Identifier splits an optionally schema-qualified table name into a pgx identifier.
func Identifier(tableName string) pgx.Identifier {
	return pgx.Identifier(strings.Split(tableName, "."))
}

// createTableSQL renders the CREATE TABLE statement for the inferred columns.
func createTableSQL(ident pgx.Identifier, columns []Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf("%s %s", pgx.Identifier{c.Name}.Sanitize(), c.Type.SQL())
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", ident.Sanitize(), strings.Join(defs, ",\n\t"))
}

// WriteTable replaces tableName with the contents of table in a single transaction:
// drop, create, copy, commit. On any failure the transaction is rolled back.
func WriteTable(ctx context.Context, pool *pgxpool.Pool, tableName string, table *Table) (int64, error) {
	ident := Identifier(tableName)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: acquire connection: %w", elt.ErrConnection, err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, classifyWriteError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return 0, classifyWriteError("drop table", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(ident, table.Columns)); err != nil {
		return 0, classifyWriteError("create table", err)
	}

	copied, err := tx.CopyFrom(ctx, ident, table.ColumnNames(), pgx.CopyFromRows(table.Rows))
	if err != nil {
		return 0, classifyWriteError("copy rows", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, classifyWriteError("commit", err)
	}
	return copied, nil
}

// classifyWriteError wraps err as a connection error when the session was lost
// and as a write error otherwise.
func classifyWriteError(step string, err error) error {
	if retry.IsConnectionFailure(err) {
		return fmt.Errorf("%s: %w: %w", step, elt.ErrConnection, err)
	}
	return fmt.Errorf("%s: %w: %w", step, elt.ErrWrite, err)
}
