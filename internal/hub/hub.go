package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// ErrClosed is returned by Subscription.Next once the subscription ended
var ErrClosed = errors.New("subscription closed")

// ErrShutdown is returned by Subscribe after Shutdown
var ErrShutdown = errors.New("hub shut down")

// Metrics receives hub state changes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	SetConnectedClients(n int)
	ObservePublish(outcome string)
}

// Publish outcomes reported to Metrics
const (
	OutcomeSent         = "sent"
	OutcomeNotConnected = "not_connected"
	OutcomeQueueFull    = "queue_full"
)

// Option configures a Hub
type Option func(*Hub)

// WithMaxQueue bounds each client queue. Zero or negative means unbounded.
func WithMaxQueue(n int) Option {
	return func(h *Hub) {
		h.maxQueue = n
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

type item struct {
	event domain.Event
	close bool
}

// queue is one client's pending events. Fields are guarded by Hub.mu.
type queue struct {
	items   []item
	notify  chan struct{}
	done    chan struct{}
	removed bool
}

func newQueue() *queue {
	return &queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Hub manages per-client event queues
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*queue
	maxQueue int
	shutdown bool
	metrics  Metrics
	logger   *zap.Logger
}

// New creates a new Hub
func New(logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients: make(map[string]*queue),
		logger:  logger.Named("hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe creates the queue for clientID and returns its consumer handle.
// A second Subscribe for the same id supersedes the first: pending events
// move to the new handle and the old handle ends. Cancelling ctx closes the
// subscription.
func (h *Hub) Subscribe(ctx context.Context, clientID string) (*Subscription, error) {
	q := newQueue()

	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil, ErrShutdown
	}
	if old, ok := h.clients[clientID]; ok {
		q.items = old.items
		old.items = nil
		h.releaseLocked(old)
		h.logger.Debug("subscription superseded", zap.String("client_id", clientID))
	}
	h.clients[clientID] = q
	if len(q.items) > 0 {
		q.signal()
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.setConnected(count)
	h.logger.Info("client connected", zap.String("client_id", clientID), zap.Int("total", count))

	sub := &Subscription{hub: h, clientID: clientID, q: q}
	sub.stop = context.AfterFunc(ctx, sub.release)
	return sub, nil
}

// Publish appends event to clientID's queue
func (h *Hub) Publish(clientID string, event domain.Event) error {
	h.mu.Lock()
	q, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		h.observe(OutcomeNotConnected)
		return fmt.Errorf("client %s: %w", clientID, domain.ErrClientNotConnected)
	}
	if h.maxQueue > 0 && len(q.items) >= h.maxQueue {
		h.mu.Unlock()
		h.observe(OutcomeQueueFull)
		return fmt.Errorf("client %s: %w", clientID, domain.ErrQueueFull)
	}
	event.ClientID = clientID
	q.items = append(q.items, item{event: event})
	q.signal()
	h.mu.Unlock()

	h.observe(OutcomeSent)
	return nil
}

// CloseClient enqueues the close sentinel. The consumer receives every event
// published before it and then ends.
func (h *Hub) CloseClient(clientID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.clients[clientID]
	if !ok {
		return fmt.Errorf("client %s: %w", clientID, domain.ErrClientNotConnected)
	}
	q.items = append(q.items, item{close: true})
	q.signal()
	return nil
}

// Unsubscribe removes clientID's queue and discards pending events
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	q, ok := h.clients[clientID]
	if ok {
		h.removeLocked(clientID, q)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.setConnected(count)
		h.logger.Info("client disconnected", zap.String("client_id", clientID), zap.Int("total", count))
	}
}

// Shutdown ends every subscription and rejects new ones
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.shutdown = true
	for id, q := range h.clients {
		h.removeLocked(id, q)
	}
	h.mu.Unlock()

	h.setConnected(0)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Connected reports whether clientID has a queue
func (h *Hub) Connected(clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[clientID]
	return ok
}

// removeIfCurrent drops clientID only while q is still its queue, so a
// superseded handle cannot remove its replacement
func (h *Hub) removeIfCurrent(clientID string, q *queue) {
	h.mu.Lock()
	current, ok := h.clients[clientID]
	removed := ok && current == q
	if removed {
		h.removeLocked(clientID, q)
	} else {
		h.releaseLocked(q)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if removed {
		h.setConnected(count)
		h.logger.Info("client disconnected", zap.String("client_id", clientID), zap.Int("total", count))
	}
}

func (h *Hub) removeLocked(clientID string, q *queue) {
	delete(h.clients, clientID)
	h.releaseLocked(q)
}

func (h *Hub) releaseLocked(q *queue) {
	if q.removed {
		return
	}
	q.removed = true
	q.items = nil
	close(q.done)
}

func (h *Hub) setConnected(n int) {
	if h.metrics != nil {
		h.metrics.SetConnectedClients(n)
	}
}

func (h *Hub) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObservePublish(outcome)
	}
}

func (q *queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Subscription is one consumer's handle on a client queue
type Subscription struct {
	hub       *Hub
	clientID  string
	q         *queue
	stop      func() bool
	greeted   bool
	closeOnce sync.Once
}

// ClientID returns the subscribed client id
func (s *Subscription) ClientID() string {
	return s.clientID
}

// Next returns the next event. The first call yields the synthetic connected
// event. It returns ErrClosed once the subscription has ended, or ctx's
// error if ctx is done first. Next must not be called concurrently.
func (s *Subscription) Next(ctx context.Context) (domain.Event, error) {
	if !s.greeted {
		s.greeted = true
		return connectedEvent(s.clientID), nil
	}

	h := s.hub
	for {
		h.mu.Lock()
		if s.q.removed {
			h.mu.Unlock()
			return domain.Event{}, ErrClosed
		}
		if len(s.q.items) > 0 {
			it := s.q.items[0]
			s.q.items[0] = item{}
			s.q.items = s.q.items[1:]
			h.mu.Unlock()

			if it.close {
				s.Close()
				return domain.Event{}, ErrClosed
			}
			return it.event, nil
		}
		h.mu.Unlock()

		select {
		case <-s.q.notify:
		case <-s.q.done:
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		}
	}
}

// Done is closed when the subscription ends
func (s *Subscription) Done() <-chan struct{} {
	return s.q.done
}

// Close ends the subscription and removes the client queue. It is safe to
// call more than once.
func (s *Subscription) Close() {
	if s.stop != nil {
		s.stop()
	}
	s.release()
}

func (s *Subscription) release() {
	s.closeOnce.Do(func() {
		s.hub.removeIfCurrent(s.clientID, s.q)
	})
}

func connectedEvent(clientID string) domain.Event {
	data, _ := json.Marshal(map[string]string{
		"status":    "connected",
		"client_id": clientID,
	})
	return domain.Event{
		Name:     domain.EventConnected,
		ID:       clientID,
		Data:     data,
		ClientID: clientID,
	}
}
