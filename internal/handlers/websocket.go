package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope every websocket frame carries
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusUpdate is the hello frame sent on connect and on the periodic
// status tick
type StatusUpdate struct {
	Service          string `json:"service"`
	Status           string `json:"status"`
	Database         string `json:"database"`
	ServerInstanceID string `json:"serverInstanceId"` // Unique ID per server startup - clients clear state on change
}

// LogEntry is a log line forwarded to websocket clients
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// WebSocketHandler manages client connections and broadcasting. Writes are
// serialized per connection with a per-client mutex; event subscriptions
// live in EventSubscriber, log forwarding in LogBroadcaster.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized with server instance ID")
	return h
}

// HandleWebSocket handles GET /ws - upgrades the connection and keeps it
// until the client goes away
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	// Send initial status
	h.sendStatus(conn)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastStatus sends a status update to all connected clients
func (h *WebSocketHandler) BroadcastStatus(status StatusUpdate) {
	h.broadcastMessage(WSMessage{Type: "status", Payload: status})
}

// BroadcastNotice forwards a toast notice to all connected clients
func (h *WebSocketHandler) BroadcastNotice(notice interfaces.NoticePayload) {
	h.broadcastMessage(WSMessage{Type: string(interfaces.EventNotice), Payload: notice})
}

// BroadcastEvent forwards an event payload under its type
func (h *WebSocketHandler) BroadcastEvent(eventType string, payload interface{}) {
	h.broadcastMessage(WSMessage{Type: eventType, Payload: payload})
}

// BroadcastLog forwards a log line to all connected clients
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.broadcastMessage(WSMessage{Type: "log", Payload: entry})
}

// SendLog broadcasts a log line stamped with the current time
func (h *WebSocketHandler) SendLog(level, message string) {
	h.BroadcastLog(LogEntry{
		Timestamp: time.Now().Format("15:04:05"),
		Level:     strings.ToLower(level),
		Message:   message,
	})
}

// StartStatusBroadcaster starts periodic status updates
func (h *WebSocketHandler) StartStatusBroadcaster() {
	ticker := time.NewTicker(5 * time.Second)

	go func() {
		for range ticker.C {
			if h.ClientCount() > 0 {
				h.BroadcastStatus(h.currentStatus())
			}
		}
	}()
}

// sendStatus sends the current status to a single client
func (h *WebSocketHandler) sendStatus(conn *websocket.Conn) {
	data, err := json.Marshal(WSMessage{Type: "status", Payload: h.currentStatus()})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal initial status")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()

	if mutex != nil {
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send initial status")
		}
	}
}

func (h *WebSocketHandler) currentStatus() StatusUpdate {
	return StatusUpdate{
		Service:          "ONLINE",
		Status:           "ONLINE",
		Database:         "CONNECTED",
		ServerInstanceID: h.serverInstanceID,
	}
}

// broadcastMessage marshals once and writes to every client, holding each
// connection's mutex for the write
func (h *WebSocketHandler) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}
