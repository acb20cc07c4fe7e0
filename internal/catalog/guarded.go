// Package catalog holds adapters around vehicle catalogs: a circuit breaker
// for query paths and a YAML file loader for imports.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rpggio/carwizard/internal/domain/recommend"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/rpggio/carwizard/internal/metrics"
)

// ErrUnavailable is returned while the breaker rejects queries.
var ErrUnavailable = errors.New("catalog unavailable")

// BreakerConfig configures the circuit breaker around catalog queries.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests is the number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic reset period for counts in closed state.
	Interval time.Duration

	// Timeout is the duration in open state before moving to half-open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "catalog",
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
	}
}

// Guarded wraps a Catalog with a circuit breaker. Once the breaker opens,
// queries fail fast with ErrUnavailable until the timeout elapses.
type Guarded struct {
	inner   recommend.Catalog
	breaker *gobreaker.CircuitBreaker[[]vehicle.Vehicle]
}

// NewGuarded wraps inner.
func NewGuarded(inner recommend.Catalog, cfg BreakerConfig, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A caller giving up is not a catalog failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CatalogBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("catalog breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	metrics.CatalogBreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return &Guarded{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[]vehicle.Vehicle](settings),
	}
}

// Query runs the inner query through the breaker.
func (g *Guarded) Query(ctx context.Context, filters vehicle.CatalogFilters) ([]vehicle.Vehicle, error) {
	result, err := g.breaker.Execute(func() ([]vehicle.Vehicle, error) {
		return g.inner.Query(ctx, filters)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// State reports the current breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}
