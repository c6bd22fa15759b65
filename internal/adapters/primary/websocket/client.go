package websocket

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be below pongWait
	maxMessageSize = 4096
	sendBuffer     = 256

	// maxSubscriptions caps how many ticket rooms one connection may join.
	maxSubscriptions = 200
)

// Client message types.
const (
	MessageSubscribe   = "SUBSCRIBE_TO_TICKET"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_TICKET"
	MessagePing        = "PING"
)

// Server replies to client messages. They are never broadcast.
const (
	EventSubscribed   domain.EventType = "SUBSCRIBED"
	EventUnsubscribed domain.EventType = "UNSUBSCRIBED"
	EventPong         domain.EventType = "PONG"
	EventError        domain.EventType = "ERROR"
)

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload names one ticket or a batch of tickets.
type SubscribePayload struct {
	TicketID  int64   `json:"ticketId,omitempty"`
	TicketIDs []int64 `json:"ticketIds,omitempty"`
}

func (p SubscribePayload) ids() []int64 {
	ids := slices.Clone(p.TicketIDs)
	if p.TicketID != 0 {
		ids = append(ids, p.TicketID)
	}
	return ids
}

// SubscriptionAck lists the tickets a connection is subscribed to after a
// subscribe or unsubscribe message.
type SubscriptionAck struct {
	TicketIDs []int64 `json:"ticketIds"`
}

// ErrorPayload explains why a client message was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Client is one browser connection. The hub owns delivery; the client owns
// the socket and its ticket subscriptions.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan domain.Event
	email  string
	logger *slog.Logger

	subMu sync.RWMutex
	subs  map[int64]struct{}

	sendMu sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, email string, logger *slog.Logger) *Client {
	return newClient(hub, conn, email, sendBuffer, logger)
}

func newClient(hub *Hub, conn *websocket.Conn, email string, buffer int, logger *slog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan domain.Event, buffer),
		email:  email,
		subs:   make(map[int64]struct{}),
		logger: logger.With("user_id", email),
	}
}

// Email returns the identity the connection was authenticated as.
func (c *Client) Email() string { return c.email }

// Serve pumps both directions and returns when the connection ends.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

// closeSend closes the outbound queue once; later sends are dropped.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues an event without blocking. It reports false when the
// buffer is full or the client is closed.
func (c *Client) trySend(event domain.Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) addSubscription(ticketID int64) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if _, ok := c.subs[ticketID]; !ok && len(c.subs) >= maxSubscriptions {
		return false
	}
	c.subs[ticketID] = struct{}{}
	return true
}

func (c *Client) removeSubscription(ticketID int64) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subs, ticketID)
}

func (c *Client) hasSubscriptions() bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs) > 0
}

// subscriptions returns the subscribed ticket ids in ascending order.
func (c *Client) subscriptions() []int64 {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	ids := make([]int64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reject("message is not valid JSON")
		return
	}

	switch msg.Type {
	case MessageSubscribe, MessageUnsubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.reject("payload must be {\"ticketId\": n} or {\"ticketIds\": [...]}")
			return
		}
		ids := p.ids()
		if len(ids) == 0 || slices.ContainsFunc(ids, func(id int64) bool { return id <= 0 }) {
			c.reject("ticket ids must be positive")
			return
		}

		ack := EventSubscribed
		if msg.Type == MessageSubscribe {
			if !c.hub.subscribe(c, ids) {
				c.reject("too many subscriptions")
				return
			}
		} else {
			c.hub.unsubscribe(c, ids)
			ack = EventUnsubscribed
		}
		c.trySend(domain.Event{Type: ack, Payload: SubscriptionAck{TicketIDs: c.subscriptions()}})

	case MessagePing:
		c.trySend(domain.Event{Type: EventPong})

	default:
		c.reject("unknown message type " + msg.Type)
	}
}

func (c *Client) reject(reason string) {
	c.logger.Debug("client message rejected", "reason", reason)
	c.trySend(domain.Event{Type: EventError, Payload: ErrorPayload{Message: reason}})
}
