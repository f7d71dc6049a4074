package objectstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ohmyjons/simple-elt/pkg/elt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_WriteCommitRead(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	w, err := store.NewWriter(ctx, "staging", "exports/sales.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "a,1\nb,2\n")
	require.NoError(t, err)

	_, err = store.NewReader(ctx, "staging", "exports/sales.csv")
	assert.ErrorIs(t, err, ErrNotFound, "object must not be visible before Close")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "Close is idempotent")

	r, err := store.NewReader(ctx, "staging", "exports/sales.csv")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,1\nb,2\n", string(data))
}

func TestFileStore_OverwriteReplacesObject(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, content := range []string{"first run with more bytes\n", "second\n"} {
		w, err := store.NewWriter(ctx, "b", "o.csv")
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	path, err := store.Path("b", "o.csv")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

func TestFileStore_AbortLeavesPreviousObject(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	w, err := store.NewWriter(ctx, "b", "o.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(w, "kept\n")
	require.NoError(t, w.Close())

	w, err = store.NewWriter(ctx, "b", "o.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(w, "partial")
	w.Abort()
	w.Abort()

	r, err := store.NewReader(ctx, "b", "o.csv")
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	r.Close()
	assert.Equal(t, "kept\n", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "b"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func TestFileStore_RejectsEscapingPaths(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.NewWriter(context.Background(), "b", "../../etc/passwd")
	assert.Error(t, err)
	_, err = store.NewWriter(context.Background(), "", "o.csv")
	assert.Error(t, err)
}

func TestFileStore_URI(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	uri := store.URI("bucket", "sales.csv")
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, "/bucket/sales.csv"))
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(context.Background(), &elt.PipelineConfig{StorageBackend: elt.StorageFile, StorageRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = New(context.Background(), &elt.PipelineConfig{StorageBackend: "ftp"})
	assert.ErrorIs(t, err, elt.ErrConfiguration)
}
