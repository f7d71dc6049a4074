package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestGCSStore(t *testing.T) *GCSStore {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	store := &GCSStore{client: client}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGCSStore_URI(t *testing.T) {
	store := newTestGCSStore(t)
	assert.Equal(t, "gs://staging/exports/sales.csv", store.URI("staging", "exports/sales.csv"))
}

func TestGCSWriter_AbortCancelsUpload(t *testing.T) {
	store := newTestGCSStore(t)

	w, err := store.NewWriter(context.Background(), "staging", "sales.csv")
	require.NoError(t, err)
	gw := w.(*gcsWriter)
	assert.Equal(t, "text/csv", gw.w.ContentType)

	w.Abort()
	assert.True(t, gw.done)
	assert.NoError(t, w.Close(), "Close after Abort is a no-op")
}
