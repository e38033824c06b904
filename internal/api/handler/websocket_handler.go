package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"parking_billing/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketManager fans availability updates out to connected dashboards.
// Readers get an eventually-fresh free-space figure without ever taking the
// lot's exclusive lock.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 64),
	}
}

func (wsm *WebSocketManager) Start() {
	for {
		select {
		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			wsm.mutex.Unlock()
			log.Printf("WebSocket client connected. Total: %d", len(wsm.clients))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			wsm.mutex.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", len(wsm.clients))

		case message := <-wsm.broadcast:
			wsm.mutex.RLock()
			for client := range wsm.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("Error writing to WebSocket client: %v", err)
					client.Close()
					delete(wsm.clients, client)
				}
			}
			wsm.mutex.RUnlock()
		}
	}
}

// BroadcastAvailability implements service.AvailabilityNotifier.
func (wsm *WebSocketManager) BroadcastAvailability(availability domain.LotAvailabilityDTO) {
	message, err := json.Marshal(availability)
	if err != nil {
		log.Printf("Error marshaling availability update: %v", err)
		return
	}
	select {
	case wsm.broadcast <- message:
	default:
		log.Println("Broadcast channel is full, dropping availability update")
	}
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	h.wsManager.register <- conn

	go func() {
		defer func() {
			h.wsManager.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				break
			}
		}
	}()
}
