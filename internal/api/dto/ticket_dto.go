package dto

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID  string                `json:"customer_id"`
	AgentID     *string               `json:"agent_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []string              `json:"tags"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// UpdateCategoryRequest payload.
type UpdateCategoryRequest struct {
	Category string `json:"category"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// MergeTicketRequest payload. The path ticket is the source.
type MergeTicketRequest struct {
	TargetTicketID string `json:"target_ticket_id"`
}

// FollowUpRequest payload.
type FollowUpRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID                 string                `json:"id"`
	CustomerID         string                `json:"customer_id"`
	AgentID            *string               `json:"agent_id"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Category           string                `json:"category"`
	Status             domain.TicketStatus   `json:"status"`
	Priority           domain.TicketPriority `json:"priority"`
	Tags               []string              `json:"tags"`
	SatisfactionRating *float64              `json:"satisfaction_rating,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	ResolvedAt         *time.Time            `json:"resolved_at"`
}

// TicketDetailResponse adds SLA state and the message thread.
type TicketDetailResponse struct {
	TicketResponse
	SLA      *SLAResponse            `json:"sla,omitempty"`
	Messages []TicketMessageResponse `json:"messages"`
}

// SLAResponse is the SLA snapshot of a ticket.
type SLAResponse struct {
	TicketID         string    `json:"ticket_id"`
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Breached         bool      `json:"breached"`
	AtRisk           bool      `json:"at_risk"`
}

// TicketMessageResponse represents a note or auto-response.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.ActorType         `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	Body        string                   `json:"body"`
	CreatedAt   time.Time                `json:"created_at"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.ActorType        `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// DependencyResponse represents a ticket dependency edge.
type DependencyResponse struct {
	ID             string                `json:"id"`
	SourceTicketID string                `json:"source_ticket_id"`
	TargetTicketID string                `json:"target_ticket_id"`
	Type           domain.DependencyType `json:"type"`
	CreatedAt      time.Time             `json:"created_at"`
}

// MergeResponse is returned after a merge.
type MergeResponse struct {
	Source     TicketResponse     `json:"source"`
	Target     TicketResponse     `json:"target"`
	Dependency DependencyResponse `json:"dependency"`
}

// FollowUpResponse is returned after creating a follow-up.
type FollowUpResponse struct {
	Ticket     TicketResponse     `json:"ticket"`
	Dependency DependencyResponse `json:"dependency"`
}
