package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated  TicketChangeType = "CREATED"
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeCategory TicketChangeType = "CATEGORY_CHANGE"
	ChangeTypeEscalate TicketChangeType = "ESCALATED"
	ChangeTypeMerge    TicketChangeType = "MERGED"
	ChangeTypeFollowUp TicketChangeType = "FOLLOW_UP"
	ChangeTypeDeleted  TicketChangeType = "DELETED"
)

// ActorType identifies who performed a change.
type ActorType string

const (
	ActorTypeAgent  ActorType = "AGENT"
	ActorTypeSystem ActorType = "SYSTEM"
)

// Actor performs a ticket mutation.
type Actor struct {
	Type ActorType `json:"type"`
	ID   *string   `json:"id,omitempty"`
}

// SystemActor is used for scan-driven changes.
var SystemActor = Actor{Type: ActorTypeSystem}

// AgentActor builds an actor for an interactive change.
func AgentActor(id string) Actor {
	if id == "" {
		return SystemActor
	}
	return Actor{Type: ActorTypeAgent, ID: &id}
}

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType ActorType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
