package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Conn is the part of a WebSocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage matches websocket.TextMessage.
const textMessage = 1

// Client is a connected WebSocket client, optionally bound to a cart session.
type Client struct {
	ID        string
	SessionID string
	Conn      Conn
}

// Hub fans messages out to WebSocket clients.
type Hub struct {
	clients    map[string]*Client
	sessions   map[string]map[string]bool // sessionID -> set of clientIDs
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
}

// Message is a payload addressed to one session, or to everyone when SessionID is empty.
type Message struct {
	SessionID string
	Payload   any
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.sessions = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if client.SessionID != "" {
		if h.sessions[client.SessionID] == nil {
			h.sessions[client.SessionID] = make(map[string]bool)
		}
		h.sessions[client.SessionID][client.ID] = true
	}
	log.Printf("[hub] Client %s registered (session %q)", client.ID, client.SessionID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if members := h.sessions[client.SessionID]; members != nil {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.sessions, client.SessionID)
		}
	}
	log.Printf("[hub] Client %s unregistered", client.ID)
}

func (h *Hub) handleBroadcast(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		log.Printf("[hub] Failed to marshal broadcast message: %v", err)
		return
	}

	if msg.SessionID == "" {
		for _, client := range h.clients {
			h.sendToClient(client, data)
		}
		return
	}
	for clientID := range h.sessions[msg.SessionID] {
		if client, ok := h.clients[clientID]; ok {
			h.sendToClient(client, data)
		}
	}
}

func (h *Hub) sendToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(textMessage, data); err != nil {
		log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
	}
}

// Register adds a client to the hub. Once the hub has stopped the client's
// connection is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		_ = client.Conn.Close()
	}
}

// Unregister removes a client from the hub. It is a no-op after the hub stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues payload for every client.
func (h *Hub) Broadcast(payload any) {
	h.send(&Message{Payload: payload})
}

// SendToSession queues payload for the clients bound to sessionID.
func (h *Hub) SendToSession(sessionID string, payload any) {
	h.send(&Message{SessionID: sessionID, Payload: payload})
}

// send queues msg, dropping it once the hub has stopped.
func (h *Hub) send(msg *Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients bound to sessionID.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
