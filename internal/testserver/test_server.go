// Package testserver starts the full HTTP stack over an in-memory database
// for end-to-end tests.
package testserver

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/carwizard/internal/domain/activity"
	"github.com/rpggio/carwizard/internal/domain/recommend"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/rpggio/carwizard/internal/mcp"
	"github.com/rpggio/carwizard/internal/sqlite"
	"github.com/rpggio/carwizard/internal/transport"
)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Token    string
	Identity string
}

// SampleCatalog is seeded into every test server.
func SampleCatalog() []vehicle.Vehicle {
	return []vehicle.Vehicle{
		{ID: "A", Make: "Skoda", Model: "Kodiaq", Price: 1_000_000, BodyType: "SUV", FuelType: "Petrol", Tags: []string{"family-focused"}, QualityScore: 80},
		{ID: "B", Make: "Volvo", Model: "XC60", Price: 2_000_000, BodyType: "SUV", FuelType: "Petrol (MHEV)", Tags: []string{"family-focused", "safety"}, QualityScore: 60},
		{ID: "C", Make: "Tesla", Model: "Model 3", Price: 900_000, BodyType: "Sedan", FuelType: "Electric", Tags: []string{"city"}, QualityScore: 70},
	}
}

// New starts a server with auth enabled on /api and /mcp. token is
// registered for identity.
func New(t *testing.T, token, identity string) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	catalogRepo := sqlite.NewCatalogRepository(db)
	require.NoError(t, catalogRepo.Upsert(context.Background(), SampleCatalog()))

	recommendSvc := recommend.NewService(catalogRepo, nil)
	sessionSvc := session.NewService(sqlite.NewSessionRepository(db), nil)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	identities := sqlite.NewIdentityRepository(db)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Recommend: recommendSvc,
			Sessions:  sessionSvc,
			Activity:  activitySvc,
		},
		Resolver:      identities,
		AuthEnabled:   true,
		TransportMode: "http",
	})

	router := transport.NewServer(transport.Services{
		Recommend: recommendSvc,
		Sessions:  sessionSvc,
		Activity:  activitySvc,
	}, transport.Options{
		Auth: transport.AuthMiddleware(identities),
		MCP:  mcp.NewHTTPHandler(mcpServer),
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Token:    token,
		Identity: identity,
	}

	require.NoError(t, ts.AddAPIKey(token, identity))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, identity string) error {
	return sqlite.NewIdentityRepository(ts.DB).AddAPIKey(context.Background(), token, identity, "test")
}
