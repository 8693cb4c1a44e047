package server

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/database"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
)

// pickFreePort tries to get a free TCP port on 127.0.0.1
func pickFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func startSSEServer(t *testing.T, ctx context.Context) *mcp.ClientSession {
	cfg := database.NewConfig()
	cfg.URL = "file:test-e2e?mode=memory&cache=shared"
	cfg.EmbeddingDims = 4
	store, err := database.NewStore(cfg, dataset.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv, err := NewMCPServer(store)
	require.NoError(t, err)

	port, err := pickFreePort()
	require.NoError(t, err)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	endpoint := "/sse"

	// start SSE server
	go func() { _ = srv.RunSSE(ctx, addr, endpoint) }()

	// wait briefly for server to bind
	time.Sleep(150 * time.Millisecond)

	// connect with MCP SSE client
	client := mcp.NewClient(&mcp.Implementation{Name: "e2e-client", Version: "test"}, nil)
	transport := mcp.NewSSEClientTransport("http://"+addr+endpoint, nil)

	// retry connect a few times to avoid flakes
	var session *mcp.ClientSession
	for i := 0; i < 5; i++ {
		session, err = client.Connect(ctx, transport)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestSSEServer_ListTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startSSEServer(t, ctx)

	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	require.True(t, names["fetch_entity_by_name"])
	require.True(t, names["find_similar_entities"])
	require.True(t, names["health_check"])
}

func TestSSEServer_EmptyNameIsStructuredError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startSSEServer(t, ctx)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "fetch_entity_by_name",
		Arguments: map[string]any{"name": ""},
	})
	require.NoError(t, err, "tool failures must come back as structured error payloads, not transport errors")
	require.True(t, res.IsError)
}
