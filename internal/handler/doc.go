// Package handler implements the HTTP surface of the tool server.
//
// # Endpoints
//
// Handler serves the tool catalog and dispatch endpoints:
//
//	GET  /health            liveness probe
//	POST /initialize        protocol handshake
//	GET  /tools             tool catalog
//	POST /tool/{name}       direct tool call, body is the argument object
//	POST /jsonrpc           JSON-RPC 2.0 envelope over the same tools
//	POST /send/{client_id}  push an event onto a connected SSE client
//
// The SSE stream itself and the metrics exposition are mounted by the
// caller, see hub.Handler and telemetry.PrometheusMetrics.
//
// # Response Format
//
// Tool results are wrapped as a single text content block holding the JSON
// encoded result. Direct calls report failures with an HTTP status and a
// {"detail": ...} body. JSON-RPC calls always answer 200 and report failures
// in the error object using the standard codes.
//
// # Middleware
//
// Chain composes Recover, CORS and Logger around the mux.
package handler
