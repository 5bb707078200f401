package domain

import "encoding/json"

// EventConnected is the synthetic first event on every subscription
const EventConnected = "connected"

// EventMessage is the default event name for pushed events
const EventMessage = "message"

// Event is a server-to-client notification
type Event struct {
	Name     string          `json:"event"`
	ID       string          `json:"id"`
	Data     json.RawMessage `json:"data"`
	ClientID string          `json:"-"`
}
