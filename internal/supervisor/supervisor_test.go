package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/carwizard/internal/metrics"
)

type fakeServer struct {
	stopped  chan struct{}
	shutdown atomic.Bool
	failWith error
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopped: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.failWith != nil {
		return f.failWith
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stopped)
	return nil
}

type fixedCounter struct {
	n   int
	err error
}

func (c fixedCounter) Count(context.Context) (int, error) {
	return c.n, c.err
}

func TestHTTPService_ShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	require.True(t, srv.shutdown.Load())
	require.Equal(t, "http-server", svc.String())
}

func TestHTTPService_ReportsListenError(t *testing.T) {
	srv := newFakeServer()
	srv.failWith = errors.New("address in use")

	err := NewHTTPService(srv, 0).Serve(context.Background())
	require.ErrorContains(t, err, "address in use")
}

func TestOneShotService_TerminatesTree(t *testing.T) {
	var runs atomic.Int32
	tree := NewTree(nil, TreeConfig{})
	tree.AddAPIService(NewOneShotService("once", func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tree.Serve(ctx))
	require.Equal(t, int32(1), runs.Load())
}

func TestTree_StopsOnCancel(t *testing.T) {
	tree := NewTree(nil, TreeConfig{ShutdownTimeout: time.Second})
	srv := newFakeServer()
	tree.AddAPIService(NewHTTPService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestCatalogStatsService_SetsGauge(t *testing.T) {
	svc := NewCatalogStatsService(fixedCounter{n: 42}, time.Hour, nil)
	require.NoError(t, svc.refresh(context.Background()))
	require.Equal(t, float64(42), testutil.ToFloat64(metrics.CatalogVehicles))
	require.Equal(t, "catalog-stats", svc.String())
}

func TestCatalogStatsService_CountError(t *testing.T) {
	svc := NewCatalogStatsService(fixedCounter{err: errors.New("db closed")}, 0, nil)
	err := svc.Serve(context.Background())
	require.ErrorContains(t, err, "db closed")
}
