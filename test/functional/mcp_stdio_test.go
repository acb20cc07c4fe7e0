package functional_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const seedCatalog = `vehicles:
  - id: A
    make: Skoda
    model: Kodiaq
    price: 1000000
    body_type: SUV
    fuel_type: Petrol
    tags: [family-focused]
    quality_score: 80
  - id: B
    make: Volvo
    model: XC60
    price: 2000000
    body_type: SUV
    fuel_type: Petrol (MHEV)
    tags: [family-focused, safety]
    quality_score: 60
`

// stdioSession wraps an MCP client session for stdio transport testing
type stdioSession struct {
	session *sdkmcp.ClientSession
}

func newStdioSession(t *testing.T) *stdioSession {
	t.Helper()

	// Find the binary
	binaryPath := "./bin/carwizard"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/carwizard"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'go build -o bin/carwizard ./cmd/server' first.")
		}
	}
	binaryPath, err := filepath.Abs(binaryPath)
	require.NoError(t, err)

	seedPath := filepath.Join(t.TempDir(), "vehicles.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedCatalog), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"CARWIZARD_TRANSPORT_MODE=stdio",
		"CARWIZARD_DB_PATH=:memory:",
		"CARWIZARD_CATALOG_SEED_PATH="+seedPath,
	)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		cancel()
	})

	return &stdioSession{session: session}
}

func (s *stdioSession) callTool(t *testing.T, name string, args map[string]any, out any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	require.False(t, result.IsError, "Tool %s returned error", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)

	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "Tool %s returned no text content", name)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
}

func TestStdioFunctional_Tools(t *testing.T) {
	s := newStdioSession(t)

	tools, err := s.session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 6)

	var tags struct {
		FuelTypes []string `json:"fuel_types"`
	}
	s.callTool(t, "list_tags", map[string]any{}, &tags)
	require.Contains(t, tags.FuelTypes, "Any")
}

func TestStdioFunctional_WizardFlow(t *testing.T) {
	s := newStdioSession(t)

	var started struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	s.callTool(t, "start_session", map[string]any{}, &started)
	id := started.Session.ID
	require.NotEmpty(t, id)

	s.callTool(t, "update_session", map[string]any{
		"session_id":    id,
		"step":          "priorities",
		"action":        "select",
		"priority_tags": []string{"safety"},
	}, nil)

	var rec struct {
		Vehicles []struct {
			ID string `json:"id"`
		} `json:"vehicles"`
		Total int `json:"total"`
	}
	s.callTool(t, "recommend_vehicles", map[string]any{
		"usage_tags":    []string{"family-focused"},
		"priority_tags": []string{"safety"},
		"session_id":    id,
	}, &rec)
	require.Equal(t, 2, rec.Total)
	require.Equal(t, "B", rec.Vehicles[0].ID)

	var history struct {
		Steps []struct {
			Step string `json:"step"`
		} `json:"steps"`
		Replay struct {
			Steps int `json:"steps"`
		} `json:"replay"`
	}
	s.callTool(t, "get_session_history", map[string]any{"session_id": id}, &history)
	require.Len(t, history.Steps, 2)
	require.Equal(t, 2, history.Replay.Steps)
}
