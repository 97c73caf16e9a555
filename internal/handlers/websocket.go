package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every frame on the push channel.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// subscribePayload is the body of subscribe/unsubscribe frames from clients.
type subscribePayload struct {
	JobID string `json:"job_id"`
}

// wsClient is one connected socket. Frames are queued on send and written by
// a single writer goroutine; event sinks must never block on the network.
type wsClient struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// enqueue queues a frame without blocking. A full buffer means the consumer
// is too slow; the frame is dropped and polling catches the client up.
func (c *wsClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

type WebSocketHandler struct {
	logger           arbor.ILogger
	eventService     interfaces.EventService
	mu               sync.RWMutex
	clients          map[string]*wsClient
	throttlers       map[string]*rate.Limiter // Per-event-type rate limiters
	heartbeat        time.Duration
	writeTimeout     time.Duration
	serverInstanceID string // Unique ID generated on startup - clients use to detect server restart
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		clients:          make(map[string]*wsClient),
		throttlers:       make(map[string]*rate.Limiter),
		heartbeat:        25 * time.Second,
		writeTimeout:     10 * time.Second,
		serverInstanceID: uuid.New().String(),
	}

	if config != nil {
		h.heartbeat = common.ParseDurationOr(config.HeartbeatInterval, h.heartbeat)
		h.writeTimeout = common.ParseDurationOr(config.WriteTimeout, h.writeTimeout)

		// Initialize throttlers from config (only if explicitly configured)
		// Nil throttlers = no throttling (disabled)
		for eventType, intervalStr := range config.ThrottleIntervals {
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Failed to parse throttle interval - throttler disabled")
				continue
			}
			h.throttlers[eventType] = rate.NewLimiter(rate.Every(duration), 1)
			logger.Debug().
				Str("event_type", eventType).
				Str("interval", intervalStr).
				Msg("Throttler initialized")
		}
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")

	return h
}

// HandleWebSocket upgrades the connection and serves the push channel.
// Clients identify their session via the X-Session-ID header or the session
// query parameter; subscriptions only activate for jobs that session owns.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromRequest(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{
		id:        uuid.New().String(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 64),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.logger.Info().
		Str("client_id", client.id).
		Str("remote", r.RemoteAddr).
		Msg("WebSocket client connected")

	// Greeting lets clients detect a server restart and resubscribe.
	h.sendMessage(client, WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"client_id":          client.id,
			"server_instance_id": h.serverInstanceID,
		},
	})

	common.SafeGo(h.logger, "ws-writer:"+client.id, func() {
		h.writePump(client)
	})

	h.readPump(client)
}

// readPump consumes control frames until the connection drops. It owns the
// teardown: every subscription this client holds is released on exit.
func (h *WebSocketHandler) readPump(client *wsClient) {
	defer func() {
		h.eventService.UnsubscribeAll(client.id)

		h.mu.Lock()
		delete(h.clients, client.id)
		h.mu.Unlock()

		client.close()
		h.logger.Info().Str("client_id", client.id).Msg("WebSocket client disconnected")
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug().Str("client_id", client.id).Msg("Ignoring malformed WebSocket frame")
			continue
		}

		switch msg.Type {
		case "subscribe":
			h.handleSubscribe(client, msg.Payload)
		case "unsubscribe":
			h.handleUnsubscribe(client, msg.Payload)
		case "ping":
			h.sendMessage(client, WSMessage{Type: "pong"})
		default:
			h.logger.Debug().
				Str("client_id", client.id).
				Str("type", msg.Type).
				Msg("Unknown WebSocket message type")
		}
	}
}

// writePump serializes all writes for one connection and emits heartbeats.
func (h *WebSocketHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case data := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				client.close()
				return
			}
		case <-ticker.C:
			beat := WSMessage{
				Type:    string(models.EventHeartbeat),
				Payload: map[string]interface{}{"timestamp": time.Now().Format(time.RFC3339)},
			}
			data, err := json.Marshal(beat)
			if err != nil {
				continue
			}
			client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				client.close()
				return
			}
		case <-client.done:
			return
		}
	}
}

// handleSubscribe activates a job subscription for the client's session.
// The sink pushes onto the client's buffered queue; it never blocks the
// publisher.
func (h *WebSocketHandler) handleSubscribe(client *wsClient, payload interface{}) {
	jobID := extractJobID(payload)
	if jobID == "" {
		h.sendMessage(client, WSMessage{Type: "error", Payload: map[string]string{"error": "subscribe requires job_id"}})
		return
	}

	sink := func(event *models.JobEvent) {
		// Progress updates may be throttled; terminal events always go out.
		if !event.Terminal() {
			if limiter, ok := h.throttlers[string(event.Type)]; ok && !limiter.Allow() {
				return
			}
		}

		data, err := json.Marshal(WSMessage{Type: string(event.Type), Payload: event})
		if err != nil {
			return
		}
		if !client.enqueue(data) {
			h.logger.Debug().
				Str("client_id", client.id).
				Str("job_id", event.JobID).
				Msg("Dropping event for slow WebSocket client")
		}
	}

	// Backlog replay happens inside Subscribe, so replayed events precede the
	// ack on the wire. The ack only confirms the request was processed;
	// whether events flow depends on ownership, which is never disclosed.
	h.eventService.Subscribe(client.id, client.sessionID, jobID, sink)
	h.sendMessage(client, WSMessage{
		Type:    string(models.EventSubscribed),
		Payload: map[string]string{"job_id": jobID},
	})
}

func (h *WebSocketHandler) handleUnsubscribe(client *wsClient, payload interface{}) {
	jobID := extractJobID(payload)
	if jobID == "" {
		return
	}
	h.eventService.Unsubscribe(client.id, jobID)
}

// sendMessage marshals and queues one frame for a client.
func (h *WebSocketHandler) sendMessage(client *wsClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}
	client.enqueue(data)
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, client := range clients {
		h.eventService.UnsubscribeAll(client.id)
		client.close()
	}
}

// extractJobID pulls job_id out of a decoded subscribe/unsubscribe payload.
func extractJobID(payload interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	var body subscribePayload
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.JobID
}
