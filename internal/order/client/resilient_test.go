package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shopmicro/shopmicro/pkg/errors"
	"github.com/shopmicro/shopmicro/pkg/httpclient"
)

// stubCatalog returns a fixed snapshot or error for every lookup.
type stubCatalog struct {
	snapshot *ProductSnapshot
	err      error
	calls    int
}

func (s *stubCatalog) GetProduct(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func newResilientTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestResolve_Success(t *testing.T) {
	catalog := &stubCatalog{snapshot: &ProductSnapshot{
		ID: 5, Name: "Widget", Price: 1000, StockQuantity: 3,
	}}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, "Widget", snapshot.Name)
	assert.Equal(t, int64(1000), snapshot.Price)
	assert.False(t, snapshot.IsFallback())
	assert.Equal(t, 1, catalog.calls)
}

func TestResolve_NotFoundPropagates(t *testing.T) {
	catalog := &stubCatalog{err: apperrors.NotFound("product", "5")}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 5)

	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolve_TransportErrorFallsBack(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("dial tcp: connection refused")}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 9)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.True(t, snapshot.IsFallback())
	assert.Equal(t, int64(9), snapshot.ID)
	assert.Equal(t, FallbackProductName, snapshot.Name)
	assert.Equal(t, int64(0), snapshot.Price)
	assert.Equal(t, 0, snapshot.StockQuantity)
}

func TestResolve_CircuitOpenFallsBack(t *testing.T) {
	catalog := &stubCatalog{err: httpclient.ErrCircuitOpen}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)

	assert.True(t, snapshot.IsFallback())
	assert.Equal(t, int64(7), snapshot.ID)
}

func TestResolve_ServerErrorFallsBack(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("product service returned status 500")}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 3)
	require.NoError(t, err)

	assert.True(t, snapshot.IsFallback())
}

func TestResolve_ContextCanceledPropagates(t *testing.T) {
	catalog := &stubCatalog{err: context.Canceled}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snapshot, err := resolver.Resolve(ctx, 5)

	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_CallerDeadlinePropagates(t *testing.T) {
	catalog := &stubCatalog{err: context.DeadlineExceeded}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	snapshot, err := resolver.Resolve(ctx, 5)

	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolve_ClientTimeoutFallsBack(t *testing.T) {
	// The HTTP client's per-attempt timeout surfaces as a deadline error,
	// but the caller's context is still live. That is a transient failure
	// and must degrade to the fallback, not reach the workflow raw.
	catalog := &stubCatalog{err: fmt.Errorf(
		"call product service: http request failed after 3 attempts: %w",
		context.DeadlineExceeded)}
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 8)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.True(t, snapshot.IsFallback())
	assert.Equal(t, int64(8), snapshot.ID)
}

func TestResolve_SlowCatalogRetriesThenFallsBack(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	httpc := httpclient.New(httpclient.Config{
		Timeout:         30 * time.Millisecond,
		MaxRetries:      2,
		RetryWaitMin:    1 * time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 10,
	})
	catalog := NewCatalogClient(httpc, server.URL)
	resolver := NewResilientProductClient(catalog, newResilientTestLogger())

	snapshot, err := resolver.Resolve(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	// All attempts were made against the slow catalog, then the lookup
	// degraded to the fallback snapshot.
	assert.True(t, snapshot.IsFallback())
	assert.Equal(t, int64(4), snapshot.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestFallbackSnapshot_Shape(t *testing.T) {
	s := FallbackSnapshot(11)

	assert.Equal(t, int64(11), s.ID)
	assert.Equal(t, FallbackProductName, s.Name)
	assert.Equal(t, int64(0), s.Price)
	assert.Equal(t, 0, s.StockQuantity)
	assert.True(t, s.IsFallback())
}
