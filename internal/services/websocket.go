package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// RelayChannel carries hub messages between API instances.
	RelayChannel = "campusride:ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection of a user.
type Client struct {
	UserID   uint
	UserType models.UserType
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

// Hub keeps the open connections and routes messages to users.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	// publisher is set when Redis is available. Messages then go through
	// RelayChannel so every instance delivers to its own connections.
	publisher *redis.Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("[WS] action=connect user_id=%d user_type=%s", client.UserID, client.UserType)

		case client := <-h.unregister:
			h.remove(client)
			log.Printf("[WS] action=disconnect user_id=%d", client.UserID)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
}

// BroadcastToUser queues a raw message on every connection of the user on this instance.
// Connections with a full buffer are dropped.
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	var stale []*Client

	h.mutex.RLock()
	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range stale {
		log.Printf("[WS] action=drop user_id=%d msg=send buffer full", client.UserID)
		h.remove(client)
	}
}

func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocketMessage is the envelope of every message sent to clients.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BookingUpdate tells both sides of a booking that its status changed.
type BookingUpdate struct {
	BookingID uint                 `json:"bookingId"`
	TripID    uint                 `json:"tripId"`
	Status    models.BookingStatus `json:"status"`
}

// TripUpdate tells passengers that a trip they booked changed status.
type TripUpdate struct {
	TripID uint              `json:"tripId"`
	Status models.TripStatus `json:"status"`
}

type relayEnvelope struct {
	UserID  uint            `json:"userId"`
	Message json.RawMessage `json:"message"`
}

// EnableRelay makes SendToUser publish through Redis instead of delivering locally.
// Relay must be running on every instance for messages to arrive.
func (h *Hub) EnableRelay(client *redis.Client) {
	h.publisher = client
}

// SendToUser delivers a typed message to a user, through the relay when enabled.
func (h *Hub) SendToUser(ctx context.Context, userID uint, msgType string, data interface{}) error {
	message, err := json.Marshal(WebSocketMessage{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msgType, err)
	}

	if h.publisher == nil {
		h.BroadcastToUser(userID, message)
		return nil
	}

	envelope, err := json.Marshal(relayEnvelope{UserID: userID, Message: message})
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, RelayChannel, envelope).Err()
}

func (h *Hub) SendBookingUpdate(ctx context.Context, userID uint, update BookingUpdate) error {
	return h.SendToUser(ctx, userID, "booking_update", update)
}

func (h *Hub) SendTripUpdate(ctx context.Context, userID uint, update TripUpdate) error {
	return h.SendToUser(ctx, userID, "trip_update", update)
}

func (h *Hub) SendNotification(ctx context.Context, notification *models.Notification) error {
	return h.SendToUser(ctx, notification.UserID, "notification", notification)
}

// Relay subscribes to RelayChannel and delivers every message to local connections.
// It returns when ctx is done.
func (h *Hub) Relay(ctx context.Context, client *redis.Client) {
	pubsub := client.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.deliverRelayed(msg.Payload)
		}
	}
}

func (h *Hub) deliverRelayed(payload string) {
	var envelope relayEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		log.Printf("[WS] action=relay msg=invalid envelope: %v", err)
		return
	}
	h.BroadcastToUser(envelope.UserID, envelope.Message)
}

// ServeWebSocket upgrades the request and registers the connection for the user.
func ServeWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userType models.UserType) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] action=upgrade user_id=%d msg=%v", userID, err)
		return
	}

	client := &Client{
		UserID:   userID,
		UserType: userType,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump only watches for close and answers ping messages. Clients never send commands.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] action=read user_id=%d msg=%v", c.UserID, err)
			}
			return
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			continue
		}
		if wsMessage.Type == "ping" {
			if pong, err := json.Marshal(WebSocketMessage{Type: "pong"}); err == nil {
				select {
				case c.Send <- pong:
				default:
				}
			}
		}
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
				log.Printf("[WS] action=write user_id=%d msg=%v", c.UserID, err)
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
