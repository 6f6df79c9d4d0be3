package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/services"
)

const sendBuffer = 256

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans index progress out to every socket watching a lesson. It
// implements services.IndexNotifier.
type Hub struct {
	log     *logger.Logger
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]*Client
}

var _ services.IndexNotifier = (*Hub)(nil)

func NewHub(baseLog *logger.Logger) *Hub {
	return &Hub{
		log:     baseLog.With("component", "ws"),
		clients: make(map[string]map[*websocket.Conn]*Client),
	}
}

type Stats struct {
	Lessons int `json:"lessons"`
	Clients int `json:"clients"`
}

func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := Stats{Lessons: len(h.clients)}
	for _, cs := range h.clients {
		s.Clients += len(cs)
	}
	return s
}

// Register starts the pumps for conn; they unregister it when the peer goes
// away. A non-nil greeting is queued for this connection only.
func (h *Hub) Register(lessonID string, conn *websocket.Conn, greeting []byte) {
	client := h.add(lessonID, conn, greeting)
	go h.readPump(lessonID, conn)
	go h.writePump(client)
}

func (h *Hub) add(lessonID string, conn *websocket.Conn, greeting []byte) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[lessonID]; !ok {
		h.clients[lessonID] = make(map[*websocket.Conn]*Client)
	}
	client := &Client{Conn: conn, Send: make(chan []byte, sendBuffer)}
	if greeting != nil {
		client.Send <- greeting
	}
	h.clients[lessonID][conn] = client
	return client
}

func (h *Hub) Unregister(lessonID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[lessonID]
	if !ok {
		return
	}
	if client, ok := clients[conn]; ok {
		close(client.Send)
		delete(clients, conn)
	}
	if len(clients) == 0 {
		delete(h.clients, lessonID)
	}
}

// Broadcast drops the message for clients whose buffer is full.
func (h *Hub) Broadcast(lessonID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[lessonID] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) NotifyIndex(ev services.IndexEvent) {
	data, err := json.Marshal(struct {
		Type string `json:"type"`
		services.IndexEvent
	}{Type: "index_status", IndexEvent: ev})
	if err != nil {
		h.log.Warn("marshal index event", "error", err)
		return
	}
	h.Broadcast(ev.LessonID.String(), data)
}

func (h *Hub) readPump(lessonID string, conn *websocket.Conn) {
	defer h.Unregister(lessonID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *Client) {
	defer func() {
		_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = client.Conn.Close()
	}()
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
