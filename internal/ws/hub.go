package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"signal-market/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event types published to market rooms.
const (
	EventMarketCreated  = "market_created"
	EventBetPlaced      = "bet_placed"
	EventMarketClosed   = "market_closed"
	EventMarketResolved = "market_resolved"
	EventPayoutClaimed  = "payout_claimed"
)

// Msg is a message sent to clients.
type Msg struct {
	Type     string `json:"type"`
	MarketID string `json:"market_id"`
	Data     any    `json:"data"`
}

// Hub manages per-market WebSocket subscriptions. A connection subscribed
// to the "*" room receives events for every market.
type Hub struct {
	log logrus.FieldLogger

	mu      sync.RWMutex
	rooms   map[string]map[*conn]bool
	allConn map[*conn]bool
}

type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	hub    *Hub
	market string
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:     log,
		rooms:   make(map[string]map[*conn]bool),
		allConn: make(map[*conn]bool),
	}
}

// Publish sends a message to all subscribers of a market.
func (h *Hub) Publish(marketID uint64, msgType string, data any) {
	id := strconv.FormatUint(marketID, 10)
	b, err := json.Marshal(Msg{Type: msgType, MarketID: id, Data: data})
	if err != nil {
		h.log.WithError(err).Warn("ws: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range []string{id, "*"} {
		for c := range h.rooms[room] {
			select {
			case c.send <- b:
			default:
				// slow client, drop
			}
		}
	}
}

// Subscribers returns the number of connections in a market room.
func (h *Hub) Subscribers(marketID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[marketID])
}

// HandleWS is the HTTP handler for WebSocket connections.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("ws: upgrade failed")
		return
	}
	c := &conn{
		ws:   wsConn,
		send: make(chan []byte, 64),
		hub:  h,
	}
	h.mu.Lock()
	h.allConn[c] = true
	h.mu.Unlock()
	metrics.WSConnections.Inc()

	// Allow ?market_id= for clients that cannot send a subscribe frame.
	if id := r.URL.Query().Get("market_id"); id != "" {
		h.subscribe(c, id)
	}

	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		c.hub.removeConn(c)
		c.ws.Close()
	}()
	c.ws.SetReadLimit(4096)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			break
		}
		// {"action":"subscribe","market_id":"3"}
		var sub struct {
			Action   string `json:"action"`
			MarketID string `json:"market_id"`
		}
		if err := json.Unmarshal(msg, &sub); err != nil {
			continue
		}
		switch sub.Action {
		case "subscribe":
			c.hub.subscribe(c, sub.MarketID)
		case "unsubscribe":
			c.hub.unsubscribe(c, sub.MarketID)
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) subscribe(c *conn, marketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.allConn[c] {
		return
	}
	// Unsubscribe from previous market if any
	if c.market != "" {
		h.leave(c, c.market)
	}
	c.market = marketID
	room, ok := h.rooms[marketID]
	if !ok {
		room = make(map[*conn]bool)
		h.rooms[marketID] = room
	}
	room[c] = true
}

func (h *Hub) unsubscribe(c *conn, marketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, marketID)
	if c.market == marketID {
		c.market = ""
	}
}

// leave must be called with h.mu held.
func (h *Hub) leave(c *conn, marketID string) {
	if room, ok := h.rooms[marketID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, marketID)
		}
	}
}

func (h *Hub) removeConn(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.allConn[c] {
		return
	}
	delete(h.allConn, c)
	if c.market != "" {
		h.leave(c, c.market)
	}
	close(c.send)
	metrics.WSConnections.Dec()
}
