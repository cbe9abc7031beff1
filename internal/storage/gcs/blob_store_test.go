package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	store, err := New(client, Config{Bucket: "film-pages"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.ErrorContains(t, err, "client is required")

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()

	_, err = New(client, Config{})
	assert.ErrorContains(t, err, "bucket name is required")
}

func TestPutObjectUploadsPage(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/film-pages/o")
		assert.Equal(t, "pages/ABP-123.html", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "<title>ABP-123</title>")
		assert.Contains(t, string(body), "text/html")

		fmt.Fprintln(w, `{"name": "pages/ABP-123.html", "bucket": "film-pages"}`)
	})
	store := newTestStore(t, handler)

	uri, err := store.PutObject(context.Background(), "pages/ABP-123.html", "text/html", []byte("<title>ABP-123</title>"))
	require.NoError(t, err)
	assert.Equal(t, "gs://film-pages/pages/ABP-123.html", uri)
}

func TestPutObjectErrors(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := store.PutObject(context.Background(), "pages/ABP-123.html", "text/html", []byte("x"))
	assert.Error(t, err)

	_, err = store.PutObject(context.Background(), "", "text/html", []byte("x"))
	assert.ErrorContains(t, err, "path is required")
}
