package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/usecase"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Client is one websocket connection. Each connection owns an offer view
// whose snapshots are pushed to it.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	view   *usecase.OfferView
	mu     sync.Mutex
	closed bool
}

// Manager tracks connected users and pushes negotiation events to them.
type Manager struct {
	clients    map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
	done       chan struct{}

	offers       usecase.OfferSource
	chat         usecase.ConversationSource
	pollInterval time.Duration
}

func NewManager(pollInterval time.Duration) *Manager {
	return &Manager{
		clients:      make(map[string]map[*Client]bool),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// SetSources wires the use cases that connection views read from. The
// manager is created first because those use cases publish through it.
func (m *Manager) SetSources(offers usecase.OfferSource, chat usecase.ConversationSource) {
	m.offers = offers
	m.chat = chat
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]bool)
				}
				m.clients[client.UserID][client] = true
				m.mutex.Unlock()
				log.Printf("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if conns, ok := m.clients[client.UserID]; ok && conns[client] {
					delete(conns, client)
					if len(conns) == 0 {
						delete(m.clients, client.UserID)
					}
				}
				m.mutex.Unlock()
				client.close()
				log.Printf("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Serve runs one connection until it closes: it registers the client,
// starts its offer view and pumps messages in both directions.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn, userID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
	client.view = usecase.NewOfferView(userID, m.offers, m.chat, m.pollInterval, func(s usecase.ViewSnapshot) {
		m.sendToClient(client, WSMessage{Type: string(s.Kind), Data: s})
	})

	select {
	case m.Register <- client:
	case <-m.done:
		conn.Close()
		return
	}
	go client.WritePump()

	client.view.Start(ctx)
	defer client.view.Close()

	client.ReadPump(ctx, m)
}

// Connected reports whether the user has at least one open connection.
func (m *Manager) Connected(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

// SendToUser queues a message on every connection of the user. Slow
// connections drop the message instead of blocking the caller.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	conns := make([]*Client, 0, len(m.clients[userID]))
	for c := range m.clients[userID] {
		conns = append(conns, c)
	}
	m.mutex.RUnlock()

	for _, c := range conns {
		if !c.trySend(message) {
			log.Printf("WebSocket: dropped message for %s", userID)
		}
	}
}

// PublishOfferUpdate notifies both parties that an offer changed.
func (m *Manager) PublishOfferUpdate(offer *entity.Offer, action, actorID string) {
	data, err := json.Marshal(newWSMessage(MessageTypeOfferUpdate, OfferUpdateData{
		OfferID:        offer.ID,
		Status:         string(offer.Status),
		CashAdjustment: offer.CashAdjustment,
		Action:         action,
		ActorID:        actorID,
	}))
	if err != nil {
		log.Printf("WebSocket: failed to encode offer update %s: %v", offer.ID, err)
		return
	}

	m.SendToUser(offer.FromUserID, data)
	m.SendToUser(offer.ToUserID, data)
}

// PublishMessage pushes a new chat message to its recipient.
func (m *Manager) PublishMessage(message *entity.Message) {
	data, err := json.Marshal(newWSMessage(MessageTypeMessage, message))
	if err != nil {
		log.Printf("WebSocket: failed to encode message %s: %v", message.ID, err)
		return
	}
	m.SendToUser(message.ToUserID, data)
}

func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump reads client messages until the connection fails.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
			c.close()
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		m.HandleClientMessage(ctx, c, message)
	}
}

// WritePump writes queued messages until Send is closed.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("error: %v", err)
			return
		}
	}
}
