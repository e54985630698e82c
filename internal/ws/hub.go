// Package ws streams bus events to WebSocket observers. Every event payload
// is fanned out to all attached clients as an individual JSON text frame, so
// browser consumers can parse each object on its own.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/logger"
)

// Gauge receives the attached client count. Prometheus gauges satisfy it.
type Gauge interface {
	Set(v float64)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub owns the set of attached clients. Registration, detachment and
// broadcasting all funnel through Run, which is the only goroutine that
// touches the client set.
type Hub struct {
	log   *logger.Logger
	gauge Gauge
	count atomic.Int64

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub builds a hub. gauge may be nil when client counts are not exported.
func NewHub(log *logger.Logger, gauge Gauge) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:        log,
		gauge:      gauge,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.attach(c)
		case c := <-h.unregister:
			h.drop(c)
		case data := <-h.broadcast:
			h.fanout(data)
		}
	}
}

// Attach subscribes the hub to every event type on the bus.
func (h *Hub) Attach(b *bus.Bus) bus.Subscription {
	return b.SubscribeAll(events.AllTypes, func(_ context.Context, event events.Event) error {
		data, err := json.Marshal(event.Payload())
		if err != nil {
			return err
		}
		h.Broadcast(data)
		return nil
	})
}

// Broadcast queues a frame for every attached client. Frames are dropped
// rather than blocking the publisher when the hub falls behind.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.log.Warnf("websocket broadcast queue full, frame dropped")
	}
}

// ConnectionCount reports the number of attached clients.
func (h *Hub) ConnectionCount() int {
	return int(h.count.Load())
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) attach(c *client) {
	h.clients[c] = true
	n := len(h.clients)
	h.setCount(n)

	welcome, err := json.Marshal(map[string]any{
		"type":        "connected",
		"message":     "Connected to UI Pipeline System",
		"connections": n,
	})
	if err == nil {
		c.queue(welcome)
	}
	h.log.Infof("websocket client attached, %d connected", n)
}

func (h *Hub) drop(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.setCount(len(h.clients))
	h.log.Debugf("websocket client detached, %d connected", len(h.clients))
}

func (h *Hub) fanout(data []byte) {
	for c := range h.clients {
		if !c.queue(data) {
			h.log.Warnf("websocket client send buffer full, disconnecting")
			h.drop(c)
		}
	}
}

func (h *Hub) setCount(n int) {
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
	h.count.Store(int64(n))
}
