package warehouse

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/ohmyjons/simple-elt/internal/logging"
	"github.com/ohmyjons/simple-elt/internal/objectstore"
	"github.com/ohmyjons/simple-elt/pkg/elt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = elt.Schema{
	{Name: "name", Type: elt.TypeString, Mode: elt.ModeNullable},
	{Name: "qty", Type: elt.TypeInt64, Mode: elt.ModeNullable},
	{Name: "price", Type: elt.TypeFloat64, Mode: elt.ModeNullable},
	{Name: "day", Type: elt.TypeDate, Mode: elt.ModeNullable},
}

type duckFixture struct {
	store *objectstore.FileStore
	wh    *DuckDBWarehouse
}

func newDuckFixture(t *testing.T) *duckFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := objectstore.NewFileStore(filepath.Join(dir, "objects"))
	require.NoError(t, err)
	wh, err := NewDuckDBWarehouse(filepath.Join(dir, "wh.duckdb"), store, logging.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })
	return &duckFixture{store: store, wh: wh}
}

func (f *duckFixture) put(t *testing.T, object, content string, gz bool) {
	t.Helper()
	w, err := f.store.NewWriter(context.Background(), "bucket", object)
	require.NoError(t, err)
	if gz {
		zw := gzip.NewWriter(w)
		_, err = io.WriteString(zw, content)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	} else {
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func job(objects ...string) LoadJob {
	return LoadJob{
		Bucket:            "bucket",
		Objects:           objects,
		Destination:       TableRef{Dataset: "sales", Table: "items"},
		Schema:            testSchema,
		CreateDisposition: CreateIfNeeded,
		WriteDisposition:  WriteTruncate,
		FieldDelimiter:    ",",
	}
}

func (f *duckFixture) count(t *testing.T, query string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.wh.DB().QueryRow(query).Scan(&n))
	return n
}

func TestDuckDB_LoadTruncates(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "items.csv", "apple,3,1.5,2024-01-01\npear,,2.25,2024-01-02\n", false)

	for i := 0; i < 2; i++ {
		res, err := f.wh.Load(ctx, job("items.csv"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Rows)
	}

	assert.Equal(t, int64(2), f.count(t, `SELECT count(*) FROM sales.items`))
	assert.Equal(t, int64(1), f.count(t, `SELECT count(*) FROM sales.items WHERE qty IS NULL`))
}

func TestDuckDB_LoadGzipAndAppend(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "a.csv.gz", "apple,3,1.5,2024-01-01\n", true)

	j := job("a.csv.gz")
	j.Gzip = true
	_, err := f.wh.Load(ctx, j)
	require.NoError(t, err)

	j.WriteDisposition = WriteAppend
	res, err := f.wh.Load(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows)
	assert.Equal(t, int64(2), f.count(t, `SELECT count(*) FROM sales.items`))
}

func TestDuckDB_LoadCustomDelimiter(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "items.psv", "apple|3|1.5|2024-01-01\n", false)

	j := job("items.psv")
	j.FieldDelimiter = "|"
	res, err := f.wh.Load(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows)
}

func TestDuckDB_LoadEmptyObject(t *testing.T) {
	for _, gz := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "gzip"}[gz], func(t *testing.T) {
			ctx := context.Background()
			f := newDuckFixture(t)
			f.put(t, "items.csv", "apple,3,1.5,2024-01-01\n", false)
			_, err := f.wh.Load(ctx, job("items.csv"))
			require.NoError(t, err)

			f.put(t, "empty.csv", "", gz)
			j := job("empty.csv")
			j.Gzip = gz
			res, err := f.wh.Load(ctx, j)
			require.NoError(t, err)
			assert.Equal(t, int64(0), res.Rows)
			assert.Equal(t, int64(0), f.count(t, `SELECT count(*) FROM sales.items`))
		})
	}
}

func TestDuckDB_ShortRowIsTypeMismatch(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "short.csv", "apple,3\n", false)

	_, err := f.wh.Load(ctx, job("short.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, elt.ErrTypeMismatch)
}

func TestDuckDB_TypeMismatchKeepsPreviousRows(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "good.csv", "apple,3,1.5,2024-01-01\n", false)
	f.put(t, "bad.csv", "apple,three,1.5,2024-01-01\n", false)

	_, err := f.wh.Load(ctx, job("good.csv"))
	require.NoError(t, err)

	_, err = f.wh.Load(ctx, job("bad.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, elt.ErrTypeMismatch)

	assert.Equal(t, int64(1), f.count(t, `SELECT count(*) FROM sales.items`))
}

func TestDuckDB_LoadDispositionErrors(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "items.csv", "apple,3,1.5,2024-01-01\n", false)

	j := job("items.csv")
	j.CreateDisposition = CreateNever
	_, err := f.wh.Load(ctx, j)
	assert.ErrorIs(t, err, elt.ErrLoad)

	_, err = f.wh.Load(ctx, job("items.csv"))
	require.NoError(t, err)

	j = job("items.csv")
	j.WriteDisposition = WriteEmpty
	_, err = f.wh.Load(ctx, j)
	assert.ErrorIs(t, err, elt.ErrLoad)

	_, err = f.wh.Load(ctx, job("missing.csv"))
	assert.ErrorIs(t, err, elt.ErrLoad)

	_, err = f.wh.Load(ctx, job())
	assert.ErrorIs(t, err, elt.ErrLoad)
}

func TestDuckDB_CreateViewDispositions(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)
	f.put(t, "items.csv", "apple,3,1.5,2024-01-01\n", false)
	_, err := f.wh.Load(ctx, job("items.csv"))
	require.NoError(t, err)

	def := ViewDefinition{
		View:        TableRef{Dataset: "sales", Table: "totals"},
		Query:       `SELECT name, qty * price AS total FROM "sales"."items"`,
		Disposition: elt.ViewIfAbsent,
	}

	res, err := f.wh.CreateView(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, ViewCreated, res.Action)

	def.Query = `SELECT name, qty * price * 2 AS total FROM "sales"."items"`
	res, err = f.wh.CreateView(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, ViewUnchanged, res.Action)

	var total float64
	require.NoError(t, f.wh.DB().QueryRow(`SELECT total FROM sales.totals`).Scan(&total))
	assert.Equal(t, 4.5, total)

	def.Disposition = elt.ViewReplace
	res, err = f.wh.CreateView(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, ViewReplaced, res.Action)

	require.NoError(t, f.wh.DB().QueryRow(`SELECT total FROM sales.totals`).Scan(&total))
	assert.Equal(t, 9.0, total)
}

func TestDuckDB_CreateViewErrors(t *testing.T) {
	ctx := context.Background()
	f := newDuckFixture(t)

	_, err := f.wh.CreateView(ctx, ViewDefinition{
		View:  TableRef{Dataset: "sales", Table: "v"},
		Query: `SELECT * FROM "sales"."does_not_exist"`,
	})
	assert.ErrorIs(t, err, elt.ErrViewDefinition)

	_, err = f.wh.CreateView(ctx, ViewDefinition{
		View:         TableRef{Dataset: "sales", Table: "v"},
		Query:        `SELECT 1`,
		UseLegacySQL: true,
	})
	assert.ErrorIs(t, err, elt.ErrViewDefinition)
}
