package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the stream requires a valid token, so any origin may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is one frame sent to console clients
type StreamMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StreamHub pushes new unclassified alerts and bus events to connected
// consoles. It implements events.LivePublisher.
type StreamHub struct {
	events   *service.EventService
	interval time.Duration

	clients    map[*websocket.Conn]*sync.Mutex
	mu         sync.RWMutex
	broadcast  chan StreamMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	lastSeen   time.Time
}

func NewStreamHub(events *service.EventService, interval time.Duration) *StreamHub {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StreamHub{
		events:     events,
		interval:   interval,
		clients:    make(map[*websocket.Conn]*sync.Mutex),
		broadcast:  make(chan StreamMessage, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set and polls for new alerts until ctx is done
func (h *StreamHub) Run(ctx context.Context) {
	if last, err := h.events.Last(ctx); err == nil {
		h.lastSeen = last
	}
	logger.Info("Event stream started", map[string]interface{}{"interval": h.interval.String()})

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = &sync.Mutex{}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Debug("Stream client connected", map[string]interface{}{"total_clients": total})

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Debug("Stream client disconnected", map[string]interface{}{"total_clients": total})

		case msg := <-h.broadcast:
			h.send(msg)

		case <-ticker.C:
			h.poll(ctx)

		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]*sync.Mutex)
			h.mu.Unlock()
			logger.Info("Event stream stopped", nil)
			return
		}
	}
}

// PublishEvent queues a bus event for every client; it never blocks
func (h *StreamHub) PublishEvent(eventType string, data interface{}) {
	msg := StreamMessage{Type: eventType, Timestamp: time.Now().UTC(), Data: data}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("Event stream backlog full, dropping message", map[string]interface{}{"type": eventType})
	}
}

// ClientCount reports the connected consoles
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection handles GET /api/events/stream
func (h *StreamHub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Stream upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	h.register <- conn
	go h.readLoop(conn)
}

// readLoop discards client frames and notices disconnects
func (h *StreamHub) readLoop(conn *websocket.Conn) {
	defer func() { h.unregister <- conn }()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ping.C:
				if err := h.write(conn, func() error {
					return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
				}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Stream client closed unexpectedly", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

func (h *StreamHub) poll(ctx context.Context) {
	if h.ClientCount() == 0 {
		return
	}
	feed, err := h.events.Since(ctx, h.lastSeen)
	if err != nil {
		logger.Error("Stream poll failed", err, nil)
		return
	}
	last, err := h.events.Last(ctx)
	if err == nil && last.After(h.lastSeen) {
		h.lastSeen = last
	}
	if len(feed) > 0 {
		h.send(StreamMessage{Type: "events.new", Timestamp: time.Now().UTC(), Data: feed})
	}
}

func (h *StreamHub) send(msg StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn := conn
		go func() {
			err := h.write(conn, func() error {
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				return conn.WriteJSON(msg)
			})
			if err != nil {
				h.unregister <- conn
			}
		}()
	}
}

// write serializes writers per connection; gorilla allows one at a time
func (h *StreamHub) write(conn *websocket.Conn, fn func() error) error {
	h.mu.RLock()
	lock, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	lock.Lock()
	defer lock.Unlock()
	return fn()
}
