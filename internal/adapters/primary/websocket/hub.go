package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

// Hub maintains the set of active Clients and broadcasts ticket events to
// them. A client that has subscribed to specific tickets only receives
// events for those tickets; a client with no subscriptions receives every
// event, which is what the ticket list view relies on.
type Hub struct {
	// clients maps user emails to their active connections.
	// A single user can have multiple connections (multiple tabs/devices)
	clients map[string]map[*Client]bool

	// rooms maps ticket IDs to subscribed clients
	rooms map[int64]map[*Client]bool

	broadcast chan domain.Event

	Register   chan *Client
	Unregister chan *Client

	// done is closed when Run returns.
	done chan struct{}

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub. m may be nil.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
		metrics:    m,
	}
}

// Broadcast queues an event for delivery. It never blocks the caller; when
// the queue is full the event is dropped.
func (h *Hub) Broadcast(event domain.Event) error {
	h.metrics.TicketEvent(string(event.Type))

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
	}
	return nil
}

// Run starts the hub's event loop and returns when ctx is cancelled, closing
// every remaining client. It must run in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Join hands a new client to the event loop. It reports false when the hub
// has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.email] == nil {
		h.clients[client.email] = make(map[*Client]bool)
	}
	h.clients[client.email][client] = true
	userConnections := len(h.clients[client.email])
	h.mu.Unlock()

	h.metrics.SetWebsocketClients(h.GetClientCount())
	h.logger.Info("client registered",
		"user_id", client.email,
		"total_connections", userConnections,
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	userClients, ok := h.clients[client.email]
	if !ok || !userClients[client] {
		h.mu.Unlock()
		return
	}

	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.email)
	}

	for _, ticketID := range client.subscriptions() {
		if room, ok := h.rooms[ticketID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, ticketID)
			}
		}
	}
	h.mu.Unlock()

	client.closeSend()

	h.metrics.SetWebsocketClients(h.GetClientCount())
	h.logger.Info("client unregistered", "user_id", client.email)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	var all []*Client
	for _, userClients := range h.clients {
		for client := range userClients {
			all = append(all, client)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.rooms = make(map[int64]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range all {
		client.closeSend()
	}
	h.metrics.SetWebsocketClients(0)
}

// recipients returns the clients that should see an event for ticketID.
func (h *Hub) recipients(ticketID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	for _, userClients := range h.clients {
		for client := range userClients {
			if !client.hasSubscriptions() || h.rooms[ticketID][client] {
				out = append(out, client)
			}
		}
	}
	return out
}

func (h *Hub) broadcastEvent(event domain.Event) {
	clients := h.recipients(event.TicketID)

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		if !client.trySend(event) {
			// Slow consumer; drop it rather than stall the loop.
			h.logger.Warn("client send buffer full, unregistering", "user_id", client.email)
			h.unregisterClient(client)
		}
	}
}

// subscribe adds client to the rooms for ticketIDs. It reports false, and
// changes nothing further, once the client hits maxSubscriptions. A client
// the hub no longer tracks is ignored so that a late message cannot leave it
// behind in a room.
func (h *Hub) subscribe(client *Client, ticketIDs []int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client.email][client] {
		return true
	}
	for _, ticketID := range ticketIDs {
		if !client.addSubscription(ticketID) {
			return false
		}
		if h.rooms[ticketID] == nil {
			h.rooms[ticketID] = make(map[*Client]bool)
		}
		h.rooms[ticketID][client] = true

		h.logger.Debug("client subscribed to ticket",
			"user_id", client.email,
			"ticket_id", ticketID,
		)
	}
	return true
}

func (h *Hub) unsubscribe(client *Client, ticketIDs []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ticketID := range ticketIDs {
		if room, ok := h.rooms[ticketID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, ticketID)
			}
		}
		client.removeSubscription(ticketID)
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetClientsInRoom returns the number of clients subscribed to a ticket
func (h *Hub) GetClientsInRoom(ticketID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}
