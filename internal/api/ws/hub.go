package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/shared/id"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueue      = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware governs origins
	},
}

// clientMessage is what the UI may send
type clientMessage struct {
	Type string `json:"type"`
}

type client struct {
	id   id.ClientID
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans events out to every connected client
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{} // Protected by mu
	closed  bool

	logger   *zap.Logger
	metrics  *monitoring.Metrics
	snapshot func() any
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// WithMetrics adds metrics tracking to the hub
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// WithSnapshot sets the state sent to each client on connect
func (h *Hub) WithSnapshot(fn func() any) *Hub {
	h.snapshot = fn
	return h
}

// Emit queues event for every client. It never blocks.
func (h *Hub) Emit(event browser.Event) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	h.broadcast(string(event.Type), payload)
}

func (h *Hub) broadcast(msgType string, payload []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
			h.recordMessage("out", msgType)
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow stream client", zap.String("client_id", string(c.id)))
		h.unregister(c)
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// HandleConnection upgrades the request and streams events until the client
// goes away
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   id.NewClientID(),
		conn: conn,
		send: make(chan []byte, sendQueue),
	}

	if h.snapshot != nil {
		if payload, err := sonic.Marshal(gin.H{"type": "snapshot", "data": h.snapshot()}); err == nil {
			cl.send <- payload
		}
	}

	if !h.register(cl) {
		conn.Close()
		return
	}

	h.logger.Info("Stream client connected", zap.String("client_id", string(cl.id)))
	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Info("Stream client disconnected", zap.String("client_id", string(c.id)))
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Stream read error", zap.String("client_id", string(c.id)), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			msg.Type = "invalid"
		}
		h.recordMessage("in", msg.Type)

		var reply []byte
		switch msg.Type {
		case "ping":
			reply, _ = sonic.Marshal(gin.H{"type": "pong", "timestamp": time.Now().Unix()})
		default:
			reply, _ = sonic.Marshal(gin.H{"type": "error", "message": "unknown message type"})
		}

		h.reply(c, reply)
	}
}

// reply queues payload for one client if it is still registered
func (h *Hub) reply(c *client, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

func (h *Hub) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

var _ browser.Emitter = (*Hub)(nil)
