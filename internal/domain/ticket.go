package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether s no longer accrues SLA time.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// StepUp returns the next priority used by escalation. High and urgent
// are returned unchanged.
func (p TicketPriority) StepUp() TicketPriority {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityMedium
	case TicketPriorityMedium:
		return TicketPriorityHigh
	default:
		return p
	}
}

// Well-known categories with assignment preferences.
const (
	CategoryTechnical = "technical"
	CategoryBilling   = "billing"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                 string
	CustomerID         string
	AgentID            *string
	Title              string
	Description        string
	Category           string
	Status             TicketStatus
	Priority           TicketPriority
	Tags               []string
	SatisfactionRating *float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ResolvedAt         *time.Time
}

// CountsTowardLoad reports whether the ticket occupies its agent.
func (t *Ticket) CountsTowardLoad() bool {
	return t != nil && t.AgentID != nil && !t.Status.IsTerminal()
}
