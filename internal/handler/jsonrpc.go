package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// JSON-RPC method names
const (
	MethodInitialize    = "initialize"
	MethodToolsList     = "tools/list"
	MethodListOfferings = "ListOfferings"
	MethodToolsCall     = "tools/call"
	MethodToolCall      = "tool/call"
)

// RPCRequest is a JSON-RPC 2.0 request envelope
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the error member of a response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope. A nil ID encodes as null.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// JSONRPC serves the JSON-RPC envelope. Protocol failures are reported in
// the error member with HTTP 200.
func (h *Handler) JSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeJSON(w, rpcError(nil, mcp.PARSE_ERROR, fmt.Sprintf("Parse error: %v", err)), http.StatusOK)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSON(w, rpcError(nil, mcp.PARSE_ERROR, fmt.Sprintf("Parse error: %v", err)), http.StatusOK)
		return
	}
	h.writeJSON(w, h.handleRPC(r, req), http.StatusOK)
}

func (h *Handler) handleRPC(r *http.Request, req RPCRequest) RPCResponse {
	if req.Method == "" {
		return rpcError(req.ID, mcp.INVALID_REQUEST, "Invalid request: method is required")
	}

	params, err := decodeArguments(req.Params)
	if err != nil {
		return rpcError(req.ID, mcp.INVALID_PARAMS, fmt.Sprintf("Invalid params: %v", err))
	}

	h.logger.Debug("jsonrpc request", zap.String("method", req.Method))
	switch req.Method {
	case MethodInitialize:
		return rpcResult(req.ID, h.initializeResult(params.String("protocolVersion")))

	case MethodToolsList, MethodListOfferings:
		return rpcResult(req.ID, h.catalog())

	case MethodToolsCall, MethodToolCall:
		name := params.String("name", "tool")
		if name == "" {
			return rpcError(req.ID, mcp.INVALID_PARAMS, "Invalid params: tool name is required")
		}
		args := params.Nested("arguments")
		if args == nil {
			args = params.Nested("args")
		}
		result, callErr := h.dispatch(r.Context(), name, args)
		if callErr != nil {
			return rpcError(req.ID, callErr.code, callErr.detail)
		}
		return rpcResult(req.ID, result)
	}

	return rpcError(req.ID, mcp.METHOD_NOT_FOUND, fmt.Sprintf("Method not found: %s", req.Method))
}

func rpcResult(id json.RawMessage, result any) RPCResponse {
	return RPCResponse{JSONRPC: mcp.JSONRPC_VERSION, ID: id, Result: result}
}

func rpcError(id json.RawMessage, code int, message string) RPCResponse {
	return RPCResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}
