package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/logging"
)

const (
	writeTimeout = 2 * time.Second
	logBacklog   = 64
)

const (
	// EventPrompt is pushed to every WebSocket client when the arbiter needs
	// a choice between close matches.
	EventPrompt = "prompt"
	// EventLog carries one daemon log line to clients that connected with
	// ?logs=1.
	EventLog = "log"
)

// Event is an unsolicited message pushed to WebSocket clients. Replies to
// commands never carry an event field.
type Event struct {
	Event  string            `json:"event"`
	Prompt *arbiter.Prompt   `json:"prompt,omitempty"`
	Log    *logging.LogEvent `json:"log,omitempty"`
}

// Hub tracks connected WebSocket clients. It implements arbiter.Selector and
// logging.EventSink.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ws *websocket.Conn
	mu sync.Mutex

	// logs is nil for clients that did not ask for the log stream.
	logs chan logging.LogEvent
	done chan struct{}
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.JSON.Send(c.ws, v)
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) add(ws *websocket.Conn, streamLogs bool) *client {
	c := &client{ws: ws, done: make(chan struct{})}
	if streamLogs {
		c.logs = make(chan logging.LogEvent, logBacklog)
		go c.forwardLogs()
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.done)
	_ = c.ws.Close()
}

// forwardLogs writes queued log events until the client is removed. Send
// failures are not logged: this goroutine is downstream of the logger.
func (c *client) forwardLogs() {
	for {
		select {
		case <-c.done:
			return
		case evt := <-c.logs:
			_ = c.send(Event{Event: EventLog, Log: &evt})
		}
	}
}

// PublishLog queues evt for every log-streaming client. A client whose
// backlog is full misses the event.
func (h *Hub) PublishLog(evt logging.LogEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.logs == nil {
			continue
		}
		select {
		case c.logs <- evt:
		default:
		}
	}
}

// Clients reports how many WebSocket clients are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Prompt broadcasts p to every connected client.
func (h *Hub) Prompt(ctx context.Context, p arbiter.Prompt) error {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	var errs []error
	for _, c := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.send(Event{Event: EventPrompt, Prompt: &p}); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		h.logger.Debug("prompt broadcast incomplete",
			logging.Int("clients", len(targets)),
			logging.Int("failed", len(errs)),
		)
	}
	return errors.Join(errs...)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.ws.Close()
	}
}
