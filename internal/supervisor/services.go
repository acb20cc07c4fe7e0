package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/rpggio/carwizard/internal/metrics"
)

// HTTPServer is the part of *http.Server the HTTP service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server until its context is canceled, then shuts
// it down gracefully.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server. A non-positive timeout defaults to 10s.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string {
	return "http-server"
}

// OneShotService runs fn once. When fn returns, the whole tree stops: a
// stdio MCP session ends when its client disconnects and is not restarted.
type OneShotService struct {
	name   string
	fn     func(ctx context.Context) error
	logger *slog.Logger
}

// NewOneShotService wraps fn.
func NewOneShotService(name string, fn func(ctx context.Context) error, logger *slog.Logger) *OneShotService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OneShotService{name: name, fn: fn, logger: logger}
}

func (o *OneShotService) Serve(ctx context.Context) error {
	if err := o.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Error("service exited with error", "service", o.name, "error", err)
	}
	return suture.ErrTerminateSupervisorTree
}

func (o *OneShotService) String() string {
	return o.name
}

// VehicleCounter counts catalog vehicles.
type VehicleCounter interface {
	Count(ctx context.Context) (int, error)
}

// CatalogStatsService refreshes the catalog size gauge on an interval.
type CatalogStatsService struct {
	counter  VehicleCounter
	interval time.Duration
	logger   *slog.Logger
}

// NewCatalogStatsService creates the refresher. A non-positive interval
// defaults to one minute.
func NewCatalogStatsService(counter VehicleCounter, interval time.Duration, logger *slog.Logger) *CatalogStatsService {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CatalogStatsService{counter: counter, interval: interval, logger: logger}
}

func (c *CatalogStatsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.refresh(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *CatalogStatsService) refresh(ctx context.Context) error {
	n, err := c.counter.Count(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("counting catalog vehicles: %w", err)
	}
	metrics.CatalogVehicles.Set(float64(n))
	c.logger.Debug("catalog stats refreshed", "vehicles", n)
	return nil
}

func (c *CatalogStatsService) String() string {
	return "catalog-stats"
}
