// Package hub routes server-pushed events to individual SSE clients.
//
// Each connected client owns an unbounded-by-default FIFO queue keyed by its
// client id. A queue exists from Subscribe until the subscription is closed,
// the client is unsubscribed, a close sentinel is consumed, or the context
// given to Subscribe is cancelled. Publishing to a client without a queue
// returns domain.ErrClientNotConnected.
package hub
