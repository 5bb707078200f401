package domain

import "errors"

var (
	// ErrUpstreamUnavailable means the appliance client is missing or failed
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrToolNotFound means no tool is registered under the requested name
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidParams means a request lacked a required parameter
	ErrInvalidParams = errors.New("invalid params")
	// ErrClientNotConnected means no subscription exists for the client id
	ErrClientNotConnected = errors.New("client not connected")
	// ErrQueueFull means the client's queue reached its configured bound
	ErrQueueFull = errors.New("client queue full")
	// ErrInternal marks unexpected failures during dispatch
	ErrInternal = errors.New("internal error")
)
