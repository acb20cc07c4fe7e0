package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/carwizard/internal/catalog"
	"github.com/rpggio/carwizard/internal/config"
	"github.com/rpggio/carwizard/internal/domain/activity"
	"github.com/rpggio/carwizard/internal/domain/recommend"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/mcp"
	"github.com/rpggio/carwizard/internal/sqlite"
	"github.com/rpggio/carwizard/internal/supervisor"
	"github.com/rpggio/carwizard/internal/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and MCP server",
		Long: `Run the server in the configured transport mode.

http mode serves the REST API under /api and MCP over streamable HTTP at /mcp.
stdio mode serves MCP on stdin/stdout and logs to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return serve(cmd.Context(), &cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	db, err := openDB(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer db.Close()

	catalogRepo := sqlite.NewCatalogRepository(db)
	if cfg.Catalog.SeedPath != "" {
		n, err := importCatalog(ctx, catalogRepo, cfg.Catalog.SeedPath)
		if err != nil {
			logger.Error("failed to import catalog", "path", cfg.Catalog.SeedPath, "error", err)
			return err
		}
		logger.Info("catalog imported", "path", cfg.Catalog.SeedPath, "vehicles", n)
	}

	var vehicles recommend.Catalog = catalogRepo
	if cfg.Catalog.BreakerEnabled {
		breaker := catalog.DefaultBreakerConfig()
		breaker.FailureThreshold = cfg.Catalog.FailureThreshold
		breaker.Timeout = cfg.Catalog.OpenTimeout
		vehicles = catalog.NewGuarded(catalogRepo, breaker, logger)
	}

	recommendSvc := recommend.NewService(vehicles, logger)
	sessionSvc := session.NewService(sqlite.NewSessionRepository(db), logger)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	identities := sqlite.NewIdentityRepository(db)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Recommend: recommendSvc,
			Sessions:  sessionSvc,
			Activity:  activitySvc,
		},
		Resolver:      identities,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		TrafficLog:    cfg.Transport.TrafficLog,
		DefaultLimit:  cfg.Recommend.DefaultLimit,
		MaxLimit:      cfg.Recommend.MaxLimit,
		Logger:        logger,
	})

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{})
	tree.AddBackgroundService(supervisor.NewCatalogStatsService(catalogRepo, time.Minute, logger))

	if cfg.Transport.Mode == "stdio" {
		return runStdioMode(ctx, logger, tree, mcpServer)
	}

	opts := transport.Options{
		MCP:          mcp.NewHTTPHandler(mcpServer),
		CORSOrigins:  cfg.Transport.CORSOrigins,
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
		Logger:       logger,
	}
	if cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(identities)
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimitRequests = cfg.RateLimit.Requests
		opts.RateLimitWindow = cfg.RateLimit.Window
	}
	router := transport.NewServer(transport.Services{
		Recommend: recommendSvc,
		Sessions:  sessionSvc,
		Activity:  activitySvc,
	}, opts)

	return runHTTPMode(ctx, logger, tree, router, cfg.Server.Host, cfg.Server.Port)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, tree *supervisor.Tree, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// The session ends when stdin closes, which stops the whole tree.
	tree.AddAPIService(supervisor.NewOneShotService("mcp-stdio", func(ctx context.Context) error {
		return mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
	}, logger))
	return runTree(ctx, logger, tree)
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, tree *supervisor.Tree, handler http.Handler, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, 5*time.Second))

	logger.Info("server listening", "addr", addr)
	return runTree(ctx, logger, tree)
}

func runTree(ctx context.Context, logger *slog.Logger, tree *supervisor.Tree) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

// newLogger builds the process logger. Stdio mode logs to stderr to keep
// stdout clean for JSON-RPC.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	closeLog := func() {}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			closeLog = func() { _ = file.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeLog
}

// openDB opens the database, creating its directory, and applies the schema.
func openDB(path string) (*sqlite.DB, error) {
	if err := ensureDBDir(path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
