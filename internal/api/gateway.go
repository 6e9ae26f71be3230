// Package api hosts the websocket event gateway: a read-only feed of task
// lifecycle and log events for observability clients.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/bus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client represents one connected websocket consumer.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// hub maintains the set of active clients and broadcasts events to them.
type hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
}

// EventGateway bridges the event bus to websocket clients. The feed is
// one-way: client messages are read only to keep the connection alive.
type EventGateway struct {
	hub      *hub
	eventBus *bus.EventBus
	logger   *logrus.Logger
}

// NewEventGateway creates the gateway and subscribes it to all bus events.
func NewEventGateway(eventBus *bus.EventBus, logger *logrus.Logger) *EventGateway {
	gateway := &EventGateway{
		hub: &hub{
			clients:    make(map[*client]bool),
			broadcast:  make(chan []byte, 256),
			register:   make(chan *client),
			unregister: make(chan *client),
		},
		eventBus: eventBus,
		logger:   logger,
	}

	eventBus.SubscribeAll(gateway.handleEvent)
	go gateway.hub.run()

	return gateway
}

// handleEvent serializes a bus event and hands it to the hub.
func (gw *EventGateway) handleEvent(event bus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		gw.logger.Errorf("Failed to marshal event for broadcast: %v", err)
		return
	}

	select {
	case gw.hub.broadcast <- data:
	default:
		gw.logger.Warn("Broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (gw *EventGateway) ClientCount() int {
	gw.hub.mu.RLock()
	defer gw.hub.mu.RUnlock()
	return len(gw.hub.clients)
}

// HandleConnection upgrades an HTTP request to a websocket event feed.
func (gw *EventGateway) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		gw.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	cl := &client{
		hub:  gw.hub,
		conn: conn,
		send: make(chan []byte, 256),
		id:   fmt.Sprintf("client-%d", time.Now().UnixNano()),
	}

	gw.hub.register <- cl
	gw.logger.Infof("Event gateway client connected: %s", cl.id)

	go cl.writePump()
	go gw.readPump(cl)
}

// readPump drains the connection; incoming frames are discarded.
func (gw *EventGateway) readPump(cl *client) {
	defer func() {
		cl.hub.unregister <- cl
		_ = cl.conn.Close()
		gw.logger.Infof("Event gateway client disconnected: %s", cl.id)
	}()

	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				gw.logger.Errorf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps broadcast events to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// run processes register/unregister requests and fans broadcasts out to
// every connected client. Slow clients are disconnected rather than
// blocking the hub.
func (h *hub) run() {
	for {
		select {
		case cl := <-h.register:
			h.mu.Lock()
			h.clients[cl] = true
			h.mu.Unlock()

		case cl := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[cl]; ok {
				delete(h.clients, cl)
				close(cl.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for cl := range h.clients {
				select {
				case cl.send <- message:
				default:
					close(cl.send)
					delete(h.clients, cl)
				}
			}
			h.mu.Unlock()
		}
	}
}
