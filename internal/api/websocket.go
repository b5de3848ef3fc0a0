// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/litelis/FrameForge/internal/services"
	"github.com/litelis/FrameForge/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Tighten for production deployments.
		return true
	},
}

// WebSocketConnection abstracts the underlying connection for testing.
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// WebSocketClient is one subscriber to a session's progress stream.
type WebSocketClient struct {
	conn      WebSocketConnection
	sessionID string
	send      chan []byte
	done      chan struct{}
	closed    int32
	lastPing  time.Time
	createdAt time.Time
}

// Close marks the client closed and closes the connection. The send channel
// is closed by the write pump.
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		if client.done != nil {
			close(client.done)
		}
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

func (client *WebSocketClient) UpdatePing() {
	client.lastPing = time.Now()
}

func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(client.lastPing) > timeout
}

// SendJSON queues a JSON message for the client, dropping it when the queue
// is full rather than blocking the pipeline.
func (client *WebSocketClient) SendJSON(message interface{}) error {
	if client.IsClosed() {
		return nil
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	if client.IsClosed() {
		return nil
	}

	select {
	case client.send <- msgBytes:
		return nil
	default:
		utils.GetLogger().Warn("WebSocket send queue full, dropping message", map[string]interface{}{
			"session_id": client.sessionID,
		})
		return nil
	}
}

// WebSocketManager groups live connections by session ID.
type WebSocketManager struct {
	connections map[string]map[WebSocketConnection]*WebSocketClient
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	shutdownCh  chan bool
	mutex       sync.RWMutex
	pingTimeout time.Duration
}

var wsManager = &WebSocketManager{
	connections: make(map[string]map[WebSocketConnection]*WebSocketClient),
	register:    make(chan *WebSocketClient, 256),
	unregister:  make(chan *WebSocketClient, 256),
	shutdownCh:  make(chan bool, 1),
	pingTimeout: 60 * time.Second,
}

func init() {
	go wsManager.run()
}

func (manager *WebSocketManager) run() {
	cleanupTicker := time.NewTicker(30 * time.Second)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)

		case client := <-manager.unregister:
			manager.unregisterClient(client)

		case <-cleanupTicker.C:
			manager.cleanupExpiredConnections()

		case <-manager.shutdownCh:
			manager.shutdown()
			return
		}
	}
}

func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	if client == nil {
		return
	}

	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.sessionID] == nil {
		manager.connections[client.sessionID] = make(map[WebSocketConnection]*WebSocketClient)
	}
	manager.connections[client.sessionID][client.conn] = client
	client.UpdatePing()
}

func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	if client == nil {
		return
	}

	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if connections, exists := manager.connections[client.sessionID]; exists {
		delete(connections, client.conn)
		if len(connections) == 0 {
			delete(manager.connections, client.sessionID)
		}
	}

	if !client.IsClosed() {
		client.Close()
	}
}

func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for sessionID, connections := range manager.connections {
		for conn, client := range connections {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(connections, conn)
				if !client.IsClosed() {
					client.Close()
				}
			}
		}
		if len(connections) == 0 {
			delete(manager.connections, sessionID)
		}
	}
}

// BroadcastToSession pushes a message to every subscriber of one session.
func (manager *WebSocketManager) BroadcastToSession(sessionID string, message interface{}) {
	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0)
	for _, client := range manager.connections[sessionID] {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		client.SendJSON(message)
	}
}

func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for _, connections := range manager.connections {
		for _, client := range connections {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[WebSocketConnection]*WebSocketClient)
}

// GetStatus reports connection counts per session.
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	total := 0
	perSession := make(map[string]int, len(manager.connections))
	for sessionID, connections := range manager.connections {
		perSession[sessionID] = len(connections)
		total += len(connections)
	}
	return map[string]interface{}{
		"total_connections": total,
		"sessions":          perSession,
	}
}

// SessionProgressWebSocket upgrades the request and streams the session's
// progress updates until the pipeline finishes or the client disconnects.
func SessionProgressWebSocket(c *gin.Context, progress *services.ProgressService) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("WebSocket upgrade failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	client := &WebSocketClient{
		conn:      &wsConnWrapper{conn},
		sessionID: sessionID,
		send:      make(chan []byte, 32),
		done:      make(chan struct{}),
		lastPing:  time.Now(),
		createdAt: time.Now(),
	}
	wsManager.register <- client

	tracker := progress.CreateTracker(sessionID)
	updates := tracker.Subscribe()

	go client.writePump()
	go client.readPump()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				client.Close()
				wsManager.unregister <- client
				return
			}
			client.SendJSON(map[string]interface{}{
				"type":       "progress",
				"session_id": sessionID,
				"phase":      update.Phase,
				"progress":   update.Progress,
				"message":    update.Message,
				"status":     update.Status,
				"timestamp":  time.Now().Format(time.RFC3339),
			})
			if update.Status == "completed" || update.Status == "failed" {
				tracker.Unsubscribe(updates)
				client.Close()
				wsManager.unregister <- client
				return
			}
		case <-tracker.Done:
			tracker.Unsubscribe(updates)
			client.Close()
			wsManager.unregister <- client
			return
		case <-client.done:
			tracker.Unsubscribe(updates)
			wsManager.unregister <- client
			return
		}
	}
}

// wsConnWrapper adapts *websocket.Conn to the WebSocketConnection interface.
type wsConnWrapper struct {
	*websocket.Conn
}

// writePump drains the send queue onto the wire and owns closing the
// channel's consumer side.
func (client *WebSocketClient) writePump() {
	pingTicker := time.NewTicker(30 * time.Second)
	defer func() {
		pingTicker.Stop()
		client.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-pingTicker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames, tracking pongs for liveness.
func (client *WebSocketClient) readPump() {
	defer client.Close()

	client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
