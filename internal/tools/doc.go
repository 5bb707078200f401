// Package tools implements the tool catalog served over HTTP, JSON-RPC and
// stdio MCP.
//
// Every tool takes a loosely-typed argument object and returns a
// JSON-serializable payload. Read tools degrade to fixture payloads when no
// appliance is configured, and report upstream failures inside the payload
// with a status field rather than as an error. Registry.Call is the single
// execution boundary: unknown names fail with domain.ErrToolNotFound and
// panics are recovered into domain.ErrInternal.
package tools
