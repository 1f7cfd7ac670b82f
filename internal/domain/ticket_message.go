package domain

import "time"

// TicketMessageType differentiates internal notes from outbound replies.
type TicketMessageType string

const (
	MessageTypeNote         TicketMessageType = "note"
	MessageTypeAutoResponse TicketMessageType = "auto_response"
)

// TicketMessage is a note or outbound message attached to a ticket.
type TicketMessage struct {
	ID          string
	TicketID    string
	AuthorType  ActorType
	AuthorID    *string
	MessageType TicketMessageType
	Body        string
	CreatedAt   time.Time
}
