package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/observe"
	"github.com/ayusman/signbridge/internal/server/api"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer is how many events a slow client may lag behind before
	// further events are dropped for it.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Intake accepts landmarks classified outside the camera pipeline.
type Intake interface {
	Submit(ctx context.Context, source string, points []detector.Point3D) (event.Event, error)
	NoHand(ctx context.Context, source string)
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes every app event to connected websocket clients and feeds
// landmark frames sent by browser-side detectors back into the app.
type Hub struct {
	intake  Intake
	metrics *observe.Metrics
	log     *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

var _ app.Sink = (*Hub)(nil)

// NewHub creates a Hub. intake may be nil, in which case client frames are
// ignored.
func NewHub(intake Intake, m *observe.Metrics, log *slog.Logger) *Hub {
	if m == nil {
		m = observe.Discard()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		intake:  intake,
		metrics: m,
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

// Publish implements app.Sink. It never blocks: a client whose buffer is
// full misses the event.
func (h *Hub) Publish(_ context.Context, ev event.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debug("websocket client lagging, event dropped", slog.String("kind", string(ev.Kind)))
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(c)
	}()

	h.readLoop(r.Context(), c)
	h.unregister(c)
	<-done
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.WSClients.Add(context.Background(), 1)
	h.log.Debug("websocket client connected", slog.Int("clients", len(h.clients)))
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.WSClients.Add(context.Background(), -1)
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readLoop consumes client frames until the connection fails. Each frame is
// a landmark payload; an empty one means the browser saw no hand.
func (h *Hub) readLoop(ctx context.Context, c *wsClient) {
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if h.intake == nil {
			continue
		}
		h.handleFrame(ctx, c, data)
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *wsClient, data []byte) {
	var req api.LandmarksRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.reply(c, event.StatusInvalidInput, "invalid JSON")
		return
	}
	if req.Empty() {
		h.intake.NoHand(ctx, event.SourceBrowser)
		return
	}

	points, err := req.ToPoints()
	if err != nil {
		h.reply(c, event.StatusInvalidInput, err.Error())
		return
	}
	if _, err := h.intake.Submit(ctx, event.SourceBrowser, points); err != nil {
		switch {
		case errors.Is(err, app.ErrDetectionDisabled):
			h.reply(c, event.StatusDisabled, err.Error())
		case errors.Is(err, asl.ErrInvalidLandmarks):
			h.reply(c, event.StatusInvalidInput, err.Error())
		default:
			h.log.Warn("classify browser landmarks", slog.String("error", err.Error()))
		}
	}
}

// reply sends a status event to one client only.
func (h *Hub) reply(c *wsClient, status, message string) {
	msg, err := json.Marshal(event.Event{
		Kind:    event.KindStatus,
		Time:    time.Now(),
		Source:  event.SourceBrowser,
		Status:  status,
		Message: message,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// writeLoop drains the client's queue and keeps the connection alive with
// pings. It exits when the queue is closed or a write fails.
func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
