package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/hub"
	"opnsense-mcp/internal/tools"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	logger := zap.NewNop()

	registry := tools.NewRegistry(logger)
	tools.NewToolset(nil, logger).Register(registry)
	registry.Register(mcp.NewTool("explode"), func(context.Context, domain.Row) (any, error) {
		return nil, errors.New("kaboom")
	})
	registry.Register(mcp.NewTool("echo"), func(_ context.Context, args domain.Row) (any, error) {
		return args, nil
	})

	events := hub.New(logger)
	t.Cleanup(events.Shutdown)

	mux := http.NewServeMux()
	New(registry, events, logger, WithVersion("1.2.3")).Routes(mux)
	srv := httptest.NewServer(Chain(mux, Recover(logger), CORS(nil), Logger(logger)))
	t.Cleanup(srv.Close)
	return srv, events
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

// contentText unwraps the single text block of a tool response
func contentText(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	content, ok := out["content"].([]any)
	require.True(t, ok, "missing content in %v", out)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(block["text"].(string)), &result))
	return result
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestInitialize(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		body string
		want string
	}{
		{"", DefaultProtocolVersion},
		{`{"protocolVersion":"undefined"}`, DefaultProtocolVersion},
		{`{"protocolVersion":"2025-03-26"}`, "2025-03-26"},
	}
	for _, tt := range tests {
		resp, out := post(t, srv.URL+"/initialize", tt.body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, tt.want, out["protocolVersion"])
		assert.Equal(t, map[string]any{"name": ServerName, "version": "1.2.3"}, out["serverInfo"])
		assert.Equal(t, map[string]any{"tools": map[string]any{"listChanged": false}}, out["capabilities"])
	}
}

func TestListTools(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Tools, 11)
	assert.Equal(t, tools.NameGetLogs, out.Tools[0].Name)
	assert.Equal(t, "object", out.Tools[0].InputSchema["type"])
}

func TestCallTool(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("fixture", func(t *testing.T) {
		resp, out := post(t, srv.URL+"/tool/arp", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		result := contentText(t, out)
		assert.Equal(t, "success", result["status"])
		assert.Len(t, result["arp"], 1)
	})

	t.Run("arguments", func(t *testing.T) {
		resp, out := post(t, srv.URL+"/tool/echo", `{"limit": 5, "search": "trogdor"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, map[string]any{"limit": float64(5), "search": "trogdor"}, contentText(t, out))
	})

	t.Run("unknown tool", func(t *testing.T) {
		resp, out := post(t, srv.URL+"/tool/nope", "{}")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Tool not found: nope", out["detail"])
	})

	t.Run("tool failure", func(t *testing.T) {
		resp, out := post(t, srv.URL+"/tool/explode", "{}")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Error executing tool: kaboom", out["detail"])
	})

	t.Run("non-object body", func(t *testing.T) {
		resp, out := post(t, srv.URL+"/tool/arp", `[1,2]`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, out["detail"], "must be a JSON object")
	})
}

func TestSend(t *testing.T) {
	srv, events := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := events.Subscribe(ctx, "client-1")
	require.NoError(t, err)
	defer sub.Close()

	connected, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventConnected, connected.Name)

	resp, out := post(t, srv.URL+"/send/client-1", `{"data":{"hello":"world"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sent", out["status"])

	event, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventMessage, event.Name)
	assert.NotEmpty(t, event.ID)
	assert.JSONEq(t, `{"hello":"world"}`, string(event.Data))

	resp, out = post(t, srv.URL+"/send/ghost", `{"event":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Client ghost not connected", out["detail"])
}

func TestSend_RejectsLineBreaks(t *testing.T) {
	srv, events := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := events.Subscribe(ctx, "client-1")
	require.NoError(t, err)
	defer sub.Close()
	_, err = sub.Next(ctx)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
	}{
		{"event newline", `{"event":"note\ndata: {}\n\nevent: admin","data":1}`},
		{"event carriage return", `{"event":"note\rretry: 1","data":1}`},
		{"id newline", `{"id":"1\nretry: 1","data":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, srv.URL+"/send/client-1", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, out["detail"], "line breaks")
		})
	}

	resp, _ := post(t, srv.URL+"/send/client-1", `{"event":"note","id":"7","data":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	event, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "note", event.Name)
	assert.Equal(t, "7", event.ID)
}
