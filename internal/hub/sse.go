package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// ClientIDHeader names the request header carrying the client id
const ClientIDHeader = "X-Client-ID"

// DefaultKeepAlive is the interval between SSE comment frames
const DefaultKeepAlive = 30 * time.Second

// Handler serves the SSE stream for one client per request
type Handler struct {
	hub       *Hub
	keepAlive time.Duration
}

// NewHandler creates an SSE handler. A non-positive keepAlive uses
// DefaultKeepAlive.
func NewHandler(h *Hub, keepAlive time.Duration) *Handler {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &Handler{hub: h, keepAlive: keepAlive}
}

// ServeHTTP streams the client's queue until the client disconnects or the
// subscription ends
func (sh *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	clientID := r.Header.Get(ClientIDHeader)
	if clientID == "" {
		clientID = uuid.NewString()
	}

	sub, err := sh.hub.Subscribe(r.Context(), clientID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.Header().Set(ClientIDHeader, clientID)
	w.WriteHeader(http.StatusOK)

	for {
		ctx, cancel := context.WithTimeout(r.Context(), sh.keepAlive)
		event, err := sub.Next(ctx)
		cancel()

		switch {
		case err == nil:
			if err := WriteEvent(w, event); err != nil {
				sh.hub.logger.Debug("write event failed", zap.String("client_id", clientID), zap.Error(err))
				return
			}
		case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
		default:
			return
		}
		flusher.Flush()
	}
}

// fieldBreaks removes line terminators from single-line SSE fields
var fieldBreaks = strings.NewReplacer("\r\n", "", "\r", "", "\n", "")

// WriteEvent writes one SSE frame. Data is compacted onto a single line;
// data that is not JSON is split into one data field per line. Line breaks
// in the event name and id are dropped.
func WriteEvent(w io.Writer, event domain.Event) error {
	data := []byte(event.Data)
	if len(data) == 0 {
		data = []byte("{}")
	} else {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err == nil {
			data = buf.Bytes()
		}
	}

	name := fieldBreaks.Replace(event.Name)
	if name == "" {
		name = domain.EventMessage
	}

	var frame strings.Builder
	fmt.Fprintf(&frame, "event: %s\nid: %s\n", name, fieldBreaks.Replace(event.ID))
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for _, line := range lines {
		frame.WriteString("data: ")
		frame.WriteString(strings.TrimSuffix(line, "\r"))
		frame.WriteByte('\n')
	}
	frame.WriteByte('\n')

	_, err := io.WriteString(w, frame.String())
	return err
}
