package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/tools"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registry := tools.NewRegistry(zap.NewNop())
	tools.NewToolset(nil, nil).Register(registry)
	registry.Register(mcp.NewTool("explode"), func(context.Context, domain.Row) (any, error) {
		return nil, errors.New("kaboom")
	})
	return New(registry, "test", nil)
}

func handle(t *testing.T, s *Server, msg string) map[string]any {
	t.Helper()
	resp := s.MCP().HandleMessage(context.Background(), json.RawMessage(msg))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestServer_ListsRegistry(t *testing.T) {
	s := newTestServer(t)
	out := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	result := out["result"].(map[string]any)
	var names []string
	for _, tool := range result["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		tools.NameGetLogs, tools.NameARP, tools.NameDHCP, tools.NameLLDP, tools.NameSystem,
		tools.NameFwRules, tools.NameMkfwRule, tools.NameRmfwRule, tools.NameInterfaceList, "explode",
	}, names)
}

func TestServer_CallTool(t *testing.T) {
	s := newTestServer(t)
	out := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"system","arguments":{}}}`)

	result := out["result"].(map[string]any)
	assert.NotEqual(t, true, result["isError"])
	content := result["content"].([]any)
	require.Len(t, content, 1)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(content[0].(map[string]any)["text"].(string)), &status))
	assert.Equal(t, 12.5, status["cpu_usage"])
}

func TestServer_ToolFailureIsErrorResult(t *testing.T) {
	s := newTestServer(t)
	out := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"explode"}}`)

	result := out["result"].(map[string]any)
	assert.Equal(t, true, result["isError"])
	text := result["content"].([]any)[0].(map[string]any)["text"].(string)
	assert.Equal(t, "Error executing tool: kaboom", text)
}

func TestServer_Serve(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"t","version":"0"},"capabilities":{}}}` + "\n")
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen returns once the input is exhausted
	require.NoError(t, s.Serve(ctx, in, &out))

	var resp map[string]any
	require.NoError(t, json.NewDecoder(&out).Decode(&resp))
	result := resp["result"].(map[string]any)
	assert.Equal(t, Name, result["serverInfo"].(map[string]any)["name"])
}
