package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"tasknotes/tasknotes/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketServiceInterface defines the operations provided by the WebSocket service
type WebSocketServiceInterface interface {
	Start()
	Stop()
	HandleConnection(c *gin.Context)
	SetInputChannel(ch <-chan *nats.Msg)
	ClientCount() int
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	ID     string
	UserID uuid.UUID
	Hub    *WebSocketService
	Conn   *websocket.Conn
	Send   chan []byte

	subMu         sync.RWMutex
	subscriptions map[string]bool
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WebSocketService is the hub that pushes broker events to the websocket
// connections of the user who owns them.
type WebSocketService struct {
	clients      map[string]*Client
	register     chan *Client
	unregister   chan *Client
	messages     chan []byte
	clientsMutex sync.RWMutex

	upgrader websocket.Upgrader

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}

	inputChannel <-chan *nats.Msg
}

func NewWebSocketService() *WebSocketService {
	return &WebSocketService{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		messages:   make(chan []byte, sendBufferSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Connections are authenticated by token, not by origin.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		stopChan: make(chan struct{}),
	}
}

// SetInputChannel sets the broker channel the hub reads events from. It
// must be called before Start.
func (ws *WebSocketService) SetInputChannel(ch <-chan *nats.Msg) {
	ws.inputChannel = ch
}

func (ws *WebSocketService) Start() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.isRunning {
		return
	}
	ws.isRunning = true

	go ws.run()

	if ws.inputChannel != nil {
		go ws.forwardMessages(ws.inputChannel)
	} else {
		log.Println("WebSocket service started without a broker channel, no events will be pushed")
	}
	log.Println("WebSocket service started")
}

// Stop closes every connection and stops the hub.
func (ws *WebSocketService) Stop() {
	ws.mu.Lock()
	if !ws.isRunning {
		ws.mu.Unlock()
		return
	}
	ws.isRunning = false
	close(ws.stopChan)
	ws.mu.Unlock()

	ws.clientsMutex.Lock()
	for _, client := range ws.clients {
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	ws.clientsMutex.Unlock()

	log.Println("WebSocket service stopped")
}

func (ws *WebSocketService) ClientCount() int {
	ws.clientsMutex.RLock()
	defer ws.clientsMutex.RUnlock()
	return len(ws.clients)
}

func (ws *WebSocketService) forwardMessages(input <-chan *nats.Msg) {
	for {
		select {
		case <-ws.stopChan:
			return
		case msg, ok := <-input:
			if !ok {
				log.Println("Broker channel closed, WebSocket service will no longer receive events")
				return
			}
			select {
			case ws.messages <- msg.Data:
			default:
				log.Printf("Warning: WebSocket message channel is full, discarding message from %s", msg.Subject)
			}
		}
	}
}

func (ws *WebSocketService) run() {
	for {
		select {
		case <-ws.stopChan:
			return

		case client := <-ws.register:
			ws.clientsMutex.Lock()
			ws.clients[client.ID] = client
			ws.clientsMutex.Unlock()
			log.Printf("Client connected: %s (user: %s)", client.ID, client.UserID)

		case client := <-ws.unregister:
			ws.removeClient(client)

		case data := <-ws.messages:
			ws.deliver(data)
		}
	}
}

func (ws *WebSocketService) removeClient(client *Client) {
	ws.clientsMutex.Lock()
	defer ws.clientsMutex.Unlock()
	if _, ok := ws.clients[client.ID]; ok {
		delete(ws.clients, client.ID)
		close(client.Send)
		log.Printf("Client disconnected: %s", client.ID)
	}
}

// deliver sends data to the connections of the message's owner. Messages
// without a valid owner are dropped.
func (ws *WebSocketService) deliver(data []byte) {
	var msg models.StandardMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error parsing broker message: %v", err)
		return
	}

	owner, err := uuid.Parse(msg.UserID)
	if err != nil || owner == uuid.Nil {
		log.Printf("Dropping event %s without owner", msg.Event)
		return
	}
	entity, _ := msg.Payload["entity"].(string)

	var slow []*Client
	sent := 0

	ws.clientsMutex.RLock()
	for _, client := range ws.clients {
		if client.UserID != owner || !client.subscribed(entity) {
			continue
		}
		select {
		case client.Send <- data:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	ws.clientsMutex.RUnlock()

	for _, client := range slow {
		log.Printf("Client %s send buffer full, removing client", client.ID)
		ws.removeClient(client)
	}

	log.Printf("Sent %s event to %d clients of user %s", msg.Event, sent, owner)
}

// HandleConnection upgrades an authenticated request. The user id is taken
// from the context set by the websocket auth middleware.
func (ws *WebSocketService) HandleConnection(c *gin.Context) {
	value, exists := c.Get("userID")
	userID, ok := value.(uuid.UUID)
	if !exists || !ok || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &Client{
		ID:            uuid.NewString(),
		UserID:        userID,
		Hub:           ws,
		Conn:          conn,
		Send:          make(chan []byte, sendBufferSize),
		subscriptions: map[string]bool{"all": true},
	}

	select {
	case ws.register <- client:
	case <-ws.stopChan:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) subscribed(entity string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subscriptions["all"] || (entity != "" && c.subscriptions[entity])
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.stopChan:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Error reading from WebSocket: %v", err)
			}
			return
		}
		c.processMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage handles subscribe and unsubscribe requests. Resources are
// entity names ("task", "note") or "all".
func (c *Client) processMessage(msg []byte) {
	var clientMsg ClientMessage
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		log.Printf("Error parsing client message: %v", err)
		return
	}

	switch clientMsg.Type {
	case "subscribe", "unsubscribe":
		var payload struct {
			Resource string `json:"resource"`
		}
		if err := json.Unmarshal(clientMsg.Payload, &payload); err != nil || payload.Resource == "" {
			log.Printf("Invalid %s payload from client %s", clientMsg.Type, c.ID)
			return
		}
		c.subMu.Lock()
		if clientMsg.Type == "subscribe" {
			c.subscriptions[payload.Resource] = true
		} else {
			delete(c.subscriptions, payload.Resource)
		}
		c.subMu.Unlock()
	case "ping":
	default:
		log.Printf("Unknown message type: %s", clientMsg.Type)
	}
}

var WebSocketServiceInstance WebSocketServiceInterface
