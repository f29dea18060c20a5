package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGet_NormalizesStringPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/tea-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"tea-1","name":"Dragon Well Green","price":"$14.99","origin":"Hangzhou"}`))
	}))
	defer server.Close()

	sut := NewClient(server.URL, 5*time.Second, zap.NewNop())
	product, err := sut.Get(context.Background(), "tea-1")
	require.NoError(t, err)
	assert.Equal(t, "Dragon Well Green", product.Name)
	assert.InDelta(t, 14.99, float64(product.Price), 1e-9)
}

func TestGet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	sut := NewClient(server.URL, 5*time.Second, zap.NewNop())
	_, err := sut.Get(context.Background(), "tea-404")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestGet_EmptyID(t *testing.T) {
	sut := NewClient("http://unused", 5*time.Second, zap.NewNop())
	_, err := sut.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		w.Write([]byte(`[{"id":"tea-1","name":"Green","price":14.99},{"id":"tea-2","name":"Black","price":"$5.00"}]`))
	}))
	defer server.Close()

	sut := NewClient(server.URL, 5*time.Second, zap.NewNop())
	products, err := sut.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.InDelta(t, 5.00, float64(products[1].Price), 1e-9)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sut := NewClient(server.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := sut.Get(ctx, "tea-1")
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState, "breaker tripped too early on call %d", i+1)
	}

	_, err := sut.Get(ctx, "tea-1")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	sut := NewClient(server.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := sut.Get(ctx, "tea-404")
		require.ErrorIs(t, err, ErrProductNotFound)
	}
}
