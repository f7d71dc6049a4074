package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/ohmyjons/simple-elt/internal/db"
	"github.com/ohmyjons/simple-elt/internal/objectstore"
	"github.com/ohmyjons/simple-elt/internal/retry"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// ExtractStage streams a Postgres table into one delimited object.
type ExtractStage struct {
	Source         *elt.ConnectionConfig
	Schema         string
	Table          string
	Store          objectstore.Store
	Bucket         string
	Object         string
	FieldDelimiter string
	Gzip           bool
	Logger         elt.Logger
}

func (s *ExtractStage) Name() string { return "extract" }

func (s *ExtractStage) Phase() State { return StateExtracting }

// CopyQuery is the statement the stage streams: every row of the source table
// as headerless CSV.
func (s *ExtractStage) CopyQuery() string {
	source := pgx.Identifier{s.Schema, s.Table}.Sanitize()
	delimiter := "'" + strings.ReplaceAll(s.FieldDelimiter, "'", "''") + "'"
	return fmt.Sprintf("COPY (SELECT * FROM %s) TO STDOUT WITH (FORMAT csv, DELIMITER %s)", source, delimiter)
}

// Run opens its own pool so every attempt starts from a fresh connection.
func (s *ExtractStage) Run(ctx context.Context) (Artifact, error) {
	pool, release, err := db.Open(ctx, s.Source, s.Logger)
	if err != nil {
		return Artifact{}, err
	}
	defer release()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: acquire connection: %w", elt.ErrConnection, err)
	}
	defer conn.Release()

	uri := s.Store.URI(s.Bucket, s.Object)
	w, err := s.Store.NewWriter(ctx, s.Bucket, s.Object)
	if err != nil {
		return Artifact{}, fmt.Errorf("open %s: %w: %w", uri, elt.ErrWrite, err)
	}
	committed := false
	defer func() {
		if !committed {
			w.Abort()
		}
	}()

	tw := &trackingWriter{w: w}
	var out io.Writer = tw
	var zw *gzip.Writer
	if s.Gzip {
		zw = gzip.NewWriter(tw)
		out = zw
	}

	query := s.CopyQuery()
	s.Logger.Verbose("extract: %s -> %s", query, uri)
	tag, err := conn.Conn().PgConn().CopyTo(ctx, out, query)
	if err != nil {
		return Artifact{}, classifyExtractError(uri, tw.err, err)
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			return Artifact{}, fmt.Errorf("compress %s: %w: %w", uri, elt.ErrWrite, err)
		}
	}
	if err := w.Close(); err != nil {
		return Artifact{}, fmt.Errorf("commit %s: %w: %w", uri, elt.ErrWrite, err)
	}
	committed = true

	rows := tag.RowsAffected()
	s.Logger.Info("extracted %d rows from %s.%s to %s", rows, s.Schema, s.Table, uri)
	return Artifact{Location: uri, Rows: rows}, nil
}

// classifyExtractError separates destination failures from source failures.
// writeErr is the first error the object writer returned, if any.
func classifyExtractError(uri string, writeErr, err error) error {
	switch {
	case writeErr != nil:
		return fmt.Errorf("write %s: %w: %w", uri, elt.ErrWrite, writeErr)
	case retry.IsConnectionFailure(err):
		return fmt.Errorf("extract: %w: %w", elt.ErrConnection, err)
	default:
		return fmt.Errorf("extract: %w: %w", elt.ErrQuery, err)
	}
}

// trackingWriter remembers the first write error so it can be told apart from
// the query error pgconn reports after a failed write.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
