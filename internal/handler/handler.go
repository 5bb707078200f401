package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/hub"
	"opnsense-mcp/internal/tools"
)

// DefaultProtocolVersion is answered when the client sends none
const DefaultProtocolVersion = "2024-11-05"

// ServerName identifies the server in the handshake
const ServerName = "opnsense-mcp"

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of a failed direct call
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Handler serves the tool endpoints
type Handler struct {
	registry *tools.Registry
	hub      *hub.Hub
	info     mcp.Implementation
	logger   *zap.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithVersion sets the version reported in the handshake
func WithVersion(version string) Option {
	return func(h *Handler) {
		h.info.Version = version
	}
}

// New creates a handler over registry. Events are pushed through events,
// which may be nil when the SSE surface is disabled.
func New(registry *tools.Registry, events *hub.Hub, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		registry: registry,
		hub:      events,
		info:     mcp.Implementation{Name: ServerName, Version: "dev"},
		logger:   logger.Named("http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the handler's endpoints on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /initialize", h.Initialize)
	mux.HandleFunc("GET /tools", h.ListTools)
	mux.HandleFunc("POST /tool/{name}", h.CallTool)
	mux.HandleFunc("POST /jsonrpc", h.JSONRPC)
	mux.HandleFunc("POST /send/{client_id}", h.Send)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// InitializeRequest is the handshake body
type InitializeRequest struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ClientInfo      map[string]any `json:"clientInfo,omitempty"`
}

// Initialize answers the protocol handshake
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}
	h.writeJSON(w, h.initializeResult(req.ProtocolVersion), http.StatusOK)
}

func (h *Handler) initializeResult(requested string) map[string]any {
	if requested == "" || requested == "undefined" {
		requested = DefaultProtocolVersion
	}
	return map[string]any{
		"protocolVersion": requested,
		"serverInfo":      h.info,
		"capabilities":    map[string]any{"tools": map[string]bool{"listChanged": false}},
	}
}

// ListTools returns the tool catalog
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.catalog(), http.StatusOK)
}

func (h *Handler) catalog() map[string]any {
	return map[string]any{"tools": h.registry.Definitions()}
}

// CallTool runs the named tool with the request body as its arguments
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	body, err := readBody(r)
	if err != nil {
		h.writeError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	args, err := decodeArguments(body)
	if err != nil {
		h.writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, callErr := h.dispatch(r.Context(), name, args)
	if callErr != nil {
		h.writeError(w, callErr.detail, callErr.status)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// SendRequest is the body of a push to an SSE client
type SendRequest struct {
	Event string          `json:"event"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
}

// Send pushes an event onto a connected client's queue
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	if h.hub == nil {
		h.writeError(w, fmt.Sprintf("Client %s not connected", clientID), http.StatusNotFound)
		return
	}

	var req SendRequest
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}

	if strings.ContainsAny(req.Event, "\r\n") || strings.ContainsAny(req.ID, "\r\n") {
		h.writeError(w, "Invalid request body: event and id must not contain line breaks", http.StatusBadRequest)
		return
	}

	event := domain.Event{Name: req.Event, ID: req.ID, Data: req.Data}
	if event.Name == "" {
		event.Name = domain.EventMessage
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if len(event.Data) == 0 {
		event.Data = json.RawMessage("null")
	}

	err = h.hub.Publish(clientID, event)
	switch {
	case errors.Is(err, domain.ErrClientNotConnected):
		h.writeError(w, fmt.Sprintf("Client %s not connected", clientID), http.StatusNotFound)
	case errors.Is(err, domain.ErrQueueFull):
		h.writeError(w, fmt.Sprintf("Client %s queue is full", clientID), http.StatusServiceUnavailable)
	case err != nil:
		h.logger.Error("failed to publish event", zap.String("client_id", clientID), zap.Error(err))
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		h.writeJSON(w, map[string]string{"status": "sent"}, http.StatusOK)
	}
}

// callError is a dispatch failure with its transport mappings
type callError struct {
	status int
	code   int
	detail string
}

// dispatch runs a tool and wraps its result as a text content block
func (h *Handler) dispatch(ctx context.Context, name string, args domain.Row) (map[string]any, *callError) {
	result, err := h.registry.Call(ctx, name, args)
	if err != nil {
		if errors.Is(err, domain.ErrToolNotFound) {
			return nil, &callError{
				status: http.StatusNotFound,
				code:   mcp.METHOD_NOT_FOUND,
				detail: fmt.Sprintf("Tool not found: %s", name),
			}
		}
		h.logger.Error("error executing tool", zap.String("tool", name), zap.Error(err))
		return nil, &callError{
			status: http.StatusInternalServerError,
			code:   mcp.INTERNAL_ERROR,
			detail: fmt.Sprintf("Error executing tool: %v", err),
		}
	}

	text, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("failed to encode tool result", zap.String("tool", name), zap.Error(err))
		return nil, &callError{
			status: http.StatusInternalServerError,
			code:   mcp.INTERNAL_ERROR,
			detail: fmt.Sprintf("Error executing tool: %v", err),
		}
	}
	return map[string]any{
		"content": []mcp.Content{mcp.NewTextContent(string(text))},
	}, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}

// decodeArguments parses a tool argument object. An empty body is an empty
// object; anything other than an object is rejected.
func decodeArguments(body []byte) (domain.Row, error) {
	if len(body) == 0 {
		return domain.Row{}, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case map[string]any:
		return domain.Row(t), nil
	case nil:
		return domain.Row{}, nil
	}
	return nil, errors.New("arguments must be a JSON object")
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode JSON", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, detail string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Detail: detail}, statusCode)
}
