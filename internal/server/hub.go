package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"PatternSentinel/internal/export"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Envelope is the message pushed to WebSocket clients.
type Envelope struct {
	Type    string    `json:"type"`
	Initial bool      `json:"initial,omitempty"`
	TS      time.Time `json:"ts"`
	Data    BatchView `json:"data"`
}

// BatchView is the wire form of a batch.
type BatchView struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	Interval    int           `json:"interval"`
	Source      string        `json:"source"`
	CreatedAt   time.Time     `json:"created_at"`
	AnchorTime  time.Time     `json:"anchor_time"`
	AnchorClose string        `json:"anchor_close"`
	Pattern     string        `json:"pattern"`
	HistoryLen  int           `json:"history_len"`
	Lines       []export.Line `json:"lines"`
}

// NewBatchView converts a batch for JSON output.
func NewBatchView(b *model.Batch) BatchView {
	return BatchView{
		ID:          b.ID,
		Symbol:      b.Symbol,
		Interval:    b.Interval,
		Source:      b.Source,
		CreatedAt:   b.CreatedAt,
		AnchorTime:  b.AnchorTime,
		AnchorClose: export.Price(b.AnchorClose).String(),
		Pattern:     b.Pattern,
		HistoryLen:  b.HistoryLen,
		Lines:       export.Lines(b.Lines),
	}
}

// client is a single WebSocket peer.
type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans new batches out to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(b *model.Batch, initial bool) ([]byte, error) {
	return json.Marshal(Envelope{Type: "batch", Initial: initial, TS: time.Now().UTC(), Data: NewBatchView(b)})
}

// Broadcast sends a batch to every client. Slow clients drop messages.
func (h *Hub) Broadcast(b *model.Batch) {
	if b == nil {
		return
	}
	msg, err := encode(b, false)
	if err != nil {
		h.logger.Error("encode batch", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("ws client send buffer full, dropping batch", zap.String("batch", b.ID))
		}
	}
}

// Serve upgrades the request and registers the client. initial batches are
// sent before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial []*model.Batch) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64), hub: h}
	for _, b := range initial {
		if msg, err := encode(b, true); err == nil {
			select {
			case c.send <- msg:
			default:
			}
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.setGauge(count)
	h.logger.Info("ws client connected", zap.Int("clients", count))

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.setGauge(count)
}

func (h *Hub) setGauge(n int) {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(n))
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.setGauge(0)
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		c.hub.logger.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
