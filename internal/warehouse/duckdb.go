package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/ohmyjons/simple-elt/internal/objectstore"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// DuckDBWarehouse loads into a local DuckDB database. Datasets are schemas and
// staged objects are read through an objectstore.Store.
type DuckDBWarehouse struct {
	db      *sql.DB
	store   objectstore.Store
	logger  elt.Logger
	dialect DuckDBDialect
}

// NewDuckDBWarehouse opens (or creates) the database file at path. An empty
// path opens an in-memory database.
func NewDuckDBWarehouse(path string, store objectstore.Store, logger elt.Logger) (*DuckDBWarehouse, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create duckdb directory: %w", err)
		}
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open duckdb %s: %w", elt.ErrConnection, path, err)
	}
	// One connection keeps an in-memory database shared across calls.
	db.SetMaxOpenConns(1)
	return &DuckDBWarehouse{db: db, store: store, logger: logger}, nil
}

func (w *DuckDBWarehouse) Dialect(bool) Dialect {
	return w.dialect
}

func (w *DuckDBWarehouse) Close() error {
	return w.db.Close()
}

// DB exposes the underlying handle.
func (w *DuckDBWarehouse) DB() *sql.DB {
	return w.db
}

// Load copies the staged objects into the destination inside one transaction,
// so a failed load leaves the previous table contents in place.
func (w *DuckDBWarehouse) Load(ctx context.Context, job LoadJob) (LoadResult, error) {
	if err := validateJob(job); err != nil {
		return LoadResult{}, err
	}

	tmpDir, err := os.MkdirTemp("", "elt-duckdb-*")
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w: %w", job.Destination, elt.ErrLoad, err)
	}
	defer os.RemoveAll(tmpDir)

	files := make([]string, len(job.Objects))
	for i, object := range job.Objects {
		path := filepath.Join(tmpDir, fmt.Sprintf("part-%04d", i))
		if err := w.fetch(ctx, job.Bucket, object, path); err != nil {
			return LoadResult{}, fmt.Errorf("load %s: %w: %w", job.Destination, elt.ErrLoad, err)
		}
		files[i] = path
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w: %w", job.Destination, elt.ErrLoad, err)
	}
	defer func() { _ = tx.Rollback() }()

	table := w.dialect.TableName(job.Destination)

	before, err := w.prepareTable(ctx, tx, job)
	if err != nil {
		return LoadResult{}, err
	}

	for _, f := range files {
		if _, err := tx.ExecContext(ctx, copyStatement(table, f, job)); err != nil {
			return LoadResult{}, classifyDuckDBLoadError(job.Destination, err)
		}
	}

	var after int64
	if err := tx.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&after); err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w: %w", job.Destination, elt.ErrLoad, err)
	}

	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("commit load %s: %w: %w", job.Destination, elt.ErrLoad, err)
	}
	return LoadResult{Table: job.Destination, Rows: after - before}, nil
}

// prepareTable applies the create and write dispositions and returns the row
// count the COPY starts from.
func (w *DuckDBWarehouse) prepareTable(ctx context.Context, tx *sql.Tx, job LoadJob) (int64, error) {
	dest := job.Destination
	table := w.dialect.TableName(dest)
	loadErr := func(err error) error {
		return fmt.Errorf("load %s: %w: %w", dest, elt.ErrLoad, err)
	}

	if _, err := tx.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+w.dialect.QuoteIdent(dest.Dataset)); err != nil {
		return 0, loadErr(err)
	}

	exists, err := relationExists(ctx, tx, dest, "BASE TABLE")
	if err != nil {
		return 0, loadErr(err)
	}
	if !exists && job.CreateDisposition == CreateNever {
		return 0, fmt.Errorf("load %s: table does not exist and create disposition is %s: %w", dest, CreateNever, elt.ErrLoad)
	}

	switch {
	case job.WriteDisposition == WriteTruncate:
		if _, err := tx.ExecContext(ctx, "CREATE OR REPLACE TABLE "+table+" ("+w.columnDefs(job.Schema)+")"); err != nil {
			return 0, loadErr(err)
		}
		return 0, nil
	case !exists:
		if _, err := tx.ExecContext(ctx, "CREATE TABLE "+table+" ("+w.columnDefs(job.Schema)+")"); err != nil {
			return 0, loadErr(err)
		}
		return 0, nil
	}

	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
		return 0, loadErr(err)
	}
	if job.WriteDisposition == WriteEmpty && count > 0 {
		return 0, fmt.Errorf("load %s: table has %d rows and write disposition is %s: %w", dest, count, WriteEmpty, elt.ErrLoad)
	}
	return count, nil
}

func (w *DuckDBWarehouse) columnDefs(schema elt.Schema) string {
	defs := make([]string, len(schema))
	for i, c := range schema {
		def := w.dialect.QuoteIdent(c.Name) + " " + duckDBType(c.Type)
		if c.Required() {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return strings.Join(defs, ", ")
}

// copyStatement reads with the job schema only; the sniffer is off so empty
// objects load as zero rows.
func copyStatement(table, file string, job LoadJob) string {
	compression := "none"
	if job.Gzip {
		compression = "gzip"
	}
	return fmt.Sprintf("COPY %s FROM %s (FORMAT csv, AUTO_DETECT false, HEADER false, DELIMITER %s, QUOTE '\"', COMPRESSION '%s', SKIP %d)",
		table, sqlString(file), sqlString(job.FieldDelimiter), compression, job.SkipLeadingRows)
}

func (w *DuckDBWarehouse) fetch(ctx context.Context, bucket, object, path string) error {
	r, err := w.store.NewReader(ctx, bucket, object)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("fetch %s: %w", w.store.URI(bucket, object), err)
	}
	return f.Close()
}

// duckDBConversionMarkers identify errors caused by a value that does not
// convert to its column type.
var duckDBConversionMarkers = []string{
	"conversion error",
	"could not convert",
	"error when converting column",
	"invalid input error: csv error",
	"not null constraint failed",
}

func classifyDuckDBLoadError(dest TableRef, err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range duckDBConversionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("load %s: %w: %w", dest, elt.ErrTypeMismatch, err)
		}
	}
	return fmt.Errorf("load %s: %w: %w", dest, elt.ErrLoad, err)
}

// CreateView creates the view with CREATE VIEW, or CREATE OR REPLACE VIEW for
// the replace disposition.
func (w *DuckDBWarehouse) CreateView(ctx context.Context, def ViewDefinition) (ViewResult, error) {
	if def.UseLegacySQL {
		return ViewResult{}, fmt.Errorf("view %s: duckdb has no legacy SQL dialect: %w", def.View, elt.ErrViewDefinition)
	}
	viewErr := func(err error) error {
		return fmt.Errorf("create view %s: %w: %w", def.View, elt.ErrViewDefinition, err)
	}

	conn, err := w.db.Conn(ctx)
	if err != nil {
		return ViewResult{}, viewErr(err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+w.dialect.QuoteIdent(def.View.Dataset)); err != nil {
		return ViewResult{}, viewErr(err)
	}

	exists, err := relationExists(ctx, conn, def.View, "VIEW")
	if err != nil {
		return ViewResult{}, viewErr(err)
	}

	name := w.dialect.TableName(def.View)
	switch {
	case exists && def.Disposition != elt.ViewReplace:
		w.logger.Verbose("view %s already exists, leaving it unchanged", def.View)
		return ViewResult{View: def.View, Action: ViewUnchanged}, nil
	case exists:
		if _, err := conn.ExecContext(ctx, "CREATE OR REPLACE VIEW "+name+" AS "+def.Query); err != nil {
			return ViewResult{}, viewErr(err)
		}
		return ViewResult{View: def.View, Action: ViewReplaced}, nil
	default:
		if _, err := conn.ExecContext(ctx, "CREATE VIEW "+name+" AS "+def.Query); err != nil {
			return ViewResult{}, viewErr(err)
		}
		return ViewResult{View: def.View, Action: ViewCreated}, nil
	}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func relationExists(ctx context.Context, q queryRower, ref TableRef, tableType string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ? AND table_type = ?`,
		ref.Dataset, ref.Table, tableType).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return n > 0, err
}

func duckDBType(t elt.FieldType) string {
	switch t {
	case elt.TypeInt64:
		return "BIGINT"
	case elt.TypeFloat64:
		return "DOUBLE"
	case elt.TypeNumeric:
		return "DECIMAL(38, 9)"
	case elt.TypeBool:
		return "BOOLEAN"
	case elt.TypeDate:
		return "DATE"
	case elt.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
