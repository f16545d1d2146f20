package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kylechrisking/it-empire-idle/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer. Imports carry a whole snapshot.
	maxMessageSize = 256 << 10
	// Time allowed for the game loop to answer one intent.
	intentWait = 5 * time.Second
)

// IntentGetState asks for a full state push. It is answered by the client
// itself and never reaches the game loop.
const IntentGetState engine.IntentType = "GET_STATE"

// Client is one WebSocket connection.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	sendMu         sync.Mutex
	closed         bool
	minInterval    time.Duration
	lastActionTime time.Time
	holding        bool
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.sendBuffer),
	}
	if hub.actionsPerSec > 0 {
		c.minInterval = time.Second / time.Duration(hub.actionsPerSec)
	}
	return c
}

// Serve registers the client and runs both pumps until the connection ends.
func (c *Client) Serve(ctx context.Context) {
	if !c.hub.Register(c) {
		c.conn.Close()
		return
	}
	go c.WritePump()
	c.pushState(ctx)
	c.ReadPump(ctx)
}

// ReadPump pumps intents from the websocket connection to the game loop.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		if c.holding {
			c.dispatch(ctx, engine.Intent{Type: engine.IntentHoldEnd})
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", "err", err)
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var intent engine.Intent
		if err := json.Unmarshal(message, &intent); err != nil {
			c.hub.logger.Warn("Failed to parse intent from WebSocket", "err", err)
			c.reply(Message{Type: MsgError, Data: map[string]string{"error": "malformed message"}})
			continue
		}

		c.handleIntent(ctx, intent)
	}
}

func (c *Client) handleIntent(ctx context.Context, intent engine.Intent) {
	// Rate limiting; hold end always passes so a held button can be released.
	if c.minInterval > 0 && intent.Type != engine.IntentHoldEnd {
		if time.Since(c.lastActionTime) < c.minInterval {
			c.hub.logger.Debug("Rate limit exceeded for client intent", "type", intent.Type)
			return
		}
		c.lastActionTime = time.Now()
	}

	if intent.Type == IntentGetState {
		c.pushState(ctx)
		return
	}

	out, err := c.dispatch(ctx, intent)
	if err != nil {
		c.reply(Message{Type: MsgError, Data: map[string]string{
			"intent": string(intent.Type),
			"error":  err.Error(),
		}})
		return
	}

	switch intent.Type {
	case engine.IntentHoldStart:
		c.holding = true
	case engine.IntentHoldEnd:
		c.holding = false
	case engine.IntentExport:
		c.reply(Message{Type: MsgExport, Data: json.RawMessage(out.Data)})
		return
	}
	c.reply(Message{Type: MsgResult, Data: map[string]interface{}{
		"intent": intent.Type,
		"amount": out.Amount,
	}})
}

func (c *Client) dispatch(ctx context.Context, intent engine.Intent) (engine.Outcome, error) {
	if c.hub.scheduler == nil {
		return engine.Outcome{}, errors.New("game loop not attached")
	}
	ctx, cancel := context.WithTimeout(ctx, intentWait)
	defer cancel()
	return c.hub.scheduler.Handle(ctx, intent)
}

func (c *Client) pushState(ctx context.Context) {
	if c.hub.scheduler == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, intentWait)
	defer cancel()
	st, err := c.hub.scheduler.Status(ctx)
	if err != nil {
		c.hub.logger.Warn("Failed to read state for client", "err", err)
		return
	}
	c.reply(Message{Type: MsgState, Data: st})
}

// reply queues msg for this client only. A full queue drops it.
func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to serialize reply", "type", msg.Type, "err", err)
		return
	}
	if !c.enqueue(payload) {
		c.hub.metrics.RecordWSDrop()
	}
}

// enqueue queues payload without blocking. It reports false only when the
// queue is full; a closed client silently discards.
func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close closes send once. Only the hub calls it.
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
		}
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("Failed to upgrade websocket", "err", err)
			h.metrics.RecordWSError()
			return
		}
		NewClient(h, conn).Serve(r.Context())
	}
}
