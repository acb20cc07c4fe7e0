package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpggio/carwizard/internal/domain/activity"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
)

// Recommender produces ranked recommendation lists.
type Recommender interface {
	Recommend(ctx context.Context, criteria vehicle.Criteria) ([]vehicle.RankedVehicle, error)
}

// SessionTracker tracks wizard sessions.
type SessionTracker interface {
	CreateOrGet(ctx context.Context, id string, meta session.ClientMetadata) (*session.Session, bool, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, id string, req session.UpdateRequest) (*session.Session, error)
	History(ctx context.Context, id string) ([]session.Step, error)
}

// ActivityLog records and lists analytics events.
type ActivityLog interface {
	RecordRecommendation(ctx context.Context, sessionID string, criteria vehicle.Criteria, vehicleIDs []string) error
	RecordSessionStarted(ctx context.Context, sessionID string) error
	RecordSessionStep(ctx context.Context, sessionID, step, action string, completed bool) error
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services bundles the domain services behind the REST API.
type Services struct {
	Recommend Recommender
	Sessions  SessionTracker
	Activity  ActivityLog
}

// Options configures the router.
type Options struct {
	// Auth guards /api and /mcp when set.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when set.
	MCP http.Handler

	CORSOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	// DefaultLimit applies when a request does not set a limit; 0 returns all.
	DefaultLimit int
	// MaxLimit caps any limit; 0 means no cap.
	MaxLimit int

	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	services Services
	opts     Options
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(services Services, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{services: services, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRequests > 0 && opts.RateLimitWindow > 0 {
			r.Use(httprate.Limit(
				opts.RateLimitRequests,
				opts.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByRealIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeErrorBody(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				}),
			))
		}
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}

		r.Get("/taxonomy", srv.handleTaxonomy)
		r.Post("/recommendations", srv.handleRecommend)

		r.Post("/sessions", srv.handleCreateSession)
		r.Get("/sessions/{id}", srv.handleGetSession)
		r.Put("/sessions/{id}", srv.handleUpdateSession)
		r.Get("/sessions/{id}/history", srv.handleSessionHistory)

		r.Get("/activity", srv.handleActivity)
	})

	if opts.MCP != nil {
		mcp := opts.MCP
		if opts.Auth != nil {
			mcp = opts.Auth(mcp)
		}
		r.Handle("/mcp", mcp)
		r.Handle("/mcp/*", mcp)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
