package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shopmicro/shopmicro/pkg/errors"
	"github.com/shopmicro/shopmicro/pkg/httpclient"
)

func newTestHTTPClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		MaxConnsPerHost: 10,
	})
}

func TestCatalogClient_GetProduct_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/products/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":42,"name":"Widget","price":1999,"stock_quantity":7}}`))
	}))
	defer server.Close()

	client := NewCatalogClient(newTestHTTPClient(), server.URL)

	snapshot, err := client.GetProduct(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, int64(42), snapshot.ID)
	assert.Equal(t, "Widget", snapshot.Name)
	assert.Equal(t, int64(1999), snapshot.Price)
	assert.Equal(t, 7, snapshot.StockQuantity)
	assert.False(t, snapshot.IsFallback())
}

func TestCatalogClient_GetProduct_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"product with id 99 not found"}}`))
	}))
	defer server.Close()

	client := NewCatalogClient(newTestHTTPClient(), server.URL)

	snapshot, err := client.GetProduct(context.Background(), 99)
	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogClient_GetProduct_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`))
	}))
	defer server.Close()

	client := NewCatalogClient(newTestHTTPClient(), server.URL)

	snapshot, err := client.GetProduct(context.Background(), 1)
	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogClient_GetProduct_ConnectionRefused(t *testing.T) {
	// Grab a port that nothing is listening on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewCatalogClient(newTestHTTPClient(), url)

	snapshot, err := client.GetProduct(context.Background(), 1)
	assert.Nil(t, snapshot)
	require.Error(t, err)
}

func TestCatalogClient_GetProduct_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewCatalogClient(newTestHTTPClient(), server.URL)

	snapshot, err := client.GetProduct(context.Background(), 1)
	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode product response")
}

func TestCatalogClient_GetProduct_MissingData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewCatalogClient(newTestHTTPClient(), server.URL)

	snapshot, err := client.GetProduct(context.Background(), 1)
	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing data")
}

func TestCatalogClient_GetProduct_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewCatalogClient(newTestHTTPClient(), server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetProduct(ctx, 1)
	require.Error(t, err)
}
