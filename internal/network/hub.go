package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/domain/achievement"
	"github.com/kylechrisking/it-empire-idle/internal/engine"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/metrics"
)

// Outgoing message types.
const (
	MsgState        = "state"
	MsgBalance      = "balance"
	MsgTaskProgress = "taskProgress"
	MsgHired        = "hired"
	MsgUnlock       = "unlock"
	MsgAchievement  = "achievement"
	MsgTutorial     = "tutorial"
	MsgNotice       = "notice"
	MsgResult       = "result"
	MsgExport       = "export"
	MsgError        = "error"
)

// Message is the envelope of everything pushed to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active clients and broadcasts engine output to them.
// It is the engine's Presenter: every callback is a non-blocking broadcast.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector

	// notices sent while nobody was connected, replayed to the next client
	pending [][]byte

	scheduler     *engine.Scheduler
	sendBuffer    int
	maxClients    int
	actionsPerSec int
}

var _ engine.Presenter = (*Hub)(nil)

// maxPendingNotices bounds the notices kept for clients that have not connected yet.
const maxPendingNotices = 16

type outbound struct {
	payload []byte
	retain  bool // keep for the next client when nobody receives it
}

// NewHub initializes a new WebSocket Hub.
func NewHub(s *engine.Scheduler, log *logger.Logger, buf config.BufferConfig, actionsPerSec int) *Hub {
	return &Hub{
		broadcast:     make(chan outbound, buf.Broadcast),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		logger:        log,
		metrics:       metrics.Get(),
		scheduler:     s,
		sendBuffer:    buf.ClientSend,
		maxClients:    buf.MaxClientsPerHub,
		actionsPerSec: actionsPerSec,
	}
}

// SetScheduler attaches the loop that client intents are sent to.
func (h *Hub) SetScheduler(s *engine.Scheduler) {
	h.scheduler = s
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
// Run is the only place that closes a client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.maxClients > 0 && len(h.clients) >= h.maxClients {
				h.mu.Unlock()
				h.logger.Warn("Rejecting WebSocket client, hub is full", "max", h.maxClients)
				client.close()
				continue
			}
			h.clients[client] = true
			for _, payload := range h.pending {
				client.enqueue(payload)
			}
			h.pending = nil
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			if len(h.clients) == 0 && msg.retain {
				h.pending = append(h.pending, msg.payload)
				if len(h.pending) > maxPendingNotices {
					h.pending = h.pending[len(h.pending)-maxPendingNotices:]
				}
			}
			for client := range h.clients {
				if client.enqueue(msg.payload) {
					h.metrics.RecordWSMessage(false)
					continue
				}
				client.close()
				delete(h.clients, client)
				h.metrics.RecordWSConnection(-1)
				h.metrics.RecordWSDrop()
			}
			h.mu.Unlock()
		}
	}
}

// Register adds c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes msg and queues it for every client. A full queue drops
// the message instead of stalling the game loop.
func (h *Hub) Broadcast(msg Message) {
	h.send(msg, false)
}

func (h *Hub) send(msg Message, retain bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for WebSocket broadcast", "type", msg.Type, "err", err)
		return
	}
	select {
	case h.broadcast <- outbound{payload: payload, retain: retain}:
	default:
		h.metrics.RecordWSDrop()
	}
}

func (h *Hub) OnBalanceChanged(balance float64) {
	h.Broadcast(Message{Type: MsgBalance, Data: map[string]float64{"balance": balance}})
}

func (h *Hub) OnTaskProgress(entityID string, fraction float64) {
	h.Broadcast(Message{Type: MsgTaskProgress, Data: map[string]interface{}{"id": entityID, "progress": fraction}})
}

func (h *Hub) OnEntityHired(entityID string) {
	h.Broadcast(Message{Type: MsgHired, Data: map[string]string{"id": entityID}})
}

func (h *Hub) OnUnlock(feature string) {
	h.Broadcast(Message{Type: MsgUnlock, Data: map[string]string{"feature": feature}})
}

func (h *Hub) OnAchievementUnlocked(def achievement.Definition) {
	h.Broadcast(Message{Type: MsgAchievement, Data: map[string]string{
		"id":          def.ID,
		"name":        def.Name,
		"description": def.Description,
		"reward":      def.RewardText,
	}})
}

func (h *Hub) OnTutorialMessage(text string) {
	h.Broadcast(Message{Type: MsgTutorial, Data: map[string]string{"message": text}})
}

// OnNotice broadcasts text. A notice nobody is connected to see, like the
// offline earnings on startup, is held for the next client.
func (h *Hub) OnNotice(text string) {
	h.send(Message{Type: MsgNotice, Data: map[string]string{"message": text}}, true)
}
