package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
)

// RecommendService defines recommendation operations needed by MCP.
type RecommendService interface {
	Recommend(ctx context.Context, criteria vehicle.Criteria) ([]vehicle.RankedVehicle, error)
}

// SessionService defines session operations needed by MCP.
type SessionService interface {
	CreateOrGet(ctx context.Context, id string, meta session.ClientMetadata) (*session.Session, bool, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, id string, req session.UpdateRequest) (*session.Session, error)
	History(ctx context.Context, id string) ([]session.Step, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	RecordRecommendation(ctx context.Context, sessionID string, criteria vehicle.Criteria, vehicleIDs []string) error
	RecordSessionStarted(ctx context.Context, sessionID string) error
	RecordSessionStep(ctx context.Context, sessionID, step, action string, completed bool) error
}

// Services contains all domain services needed by MCP.
type Services struct {
	Recommend RecommendService
	Sessions  SessionService
	Activity  ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      IdentityResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// TrafficLog logs every request and response at debug level.
	TrafficLog bool

	DefaultLimit int
	MaxLimit     int

	Logger *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "carwizard",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(defaultIdentity))
	}
	if cfg.TrafficLog {
		server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
		server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))
	}

	registerTools(server, &toolset{
		services:     cfg.Services,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       cfg.Logger,
	})

	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{
		JSONResponse:   true,
		SessionTimeout: 30 * time.Minute,
	})
}
