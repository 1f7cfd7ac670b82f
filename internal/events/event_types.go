package events

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCategoryChanged EventType = "ticket_category_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketMerged          EventType = "ticket_merged"
	EventTicketFollowUp        EventType = "ticket_follow_up_created"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventAutoResponse          EventType = "ticket_auto_response"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   any          `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string                `json:"customer_id"`
	AgentID    *string               `json:"agent_id,omitempty"`
	Category   string                `json:"category"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	RuleID      string                `json:"rule_id,omitempty"`
}

// TicketCategoryChangedPayload payload.
type TicketCategoryChangedPayload struct {
	OldCategory string `json:"old_category"`
	NewCategory string `json:"new_category"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAgentID *string `json:"old_agent_id,omitempty"`
	AgentID    *string `json:"agent_id,omitempty"`
	TeamID     *string `json:"team_id,omitempty"`
	RuleID     string  `json:"rule_id,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	OldStatus   domain.TicketStatus   `json:"old_status"`
}

// TicketMergedPayload payload. The event is published for the target ticket.
type TicketMergedPayload struct {
	SourceTicketID string `json:"source_ticket_id"`
	TargetTicketID string `json:"target_ticket_id"`
}

// TicketFollowUpPayload payload. The event is published for the new ticket.
type TicketFollowUpPayload struct {
	ParentTicketID string `json:"parent_ticket_id"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title  string              `json:"title"`
	Status domain.TicketStatus `json:"status"`
}

// AutoResponsePayload carries an outbound reply for the messaging collaborator.
type AutoResponsePayload struct {
	MessageID  string `json:"message_id"`
	RuleID     string `json:"rule_id"`
	CustomerID string `json:"customer_id"`
	Body       string `json:"body"`
}
