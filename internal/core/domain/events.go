package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated EventType = "TICKET_CREATED"
	EventTicketUpdated EventType = "TICKET_UPDATED"
	EventTicketDeleted EventType = "TICKET_DELETED"
	EventCommentAdded  EventType = "COMMENT_ADDED"
)

// Event is one frame pushed to WebSocket clients. Server replies to client
// messages reuse it with a zero TicketID.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  any         `json:"payload"`
	TicketID int64       `json:"ticketId"` // Used for routing to specific ticket "rooms"
}

// TicketDeletedPayload is sent instead of the ticket body on deletion.
type TicketDeletedPayload struct {
	ID        int64  `json:"id"`
	DeletedBy string `json:"deletedBy"`
}
