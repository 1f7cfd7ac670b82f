package domain

import "time"

// AgentStatus reports an agent's availability.
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"
	AgentStatusBusy    AgentStatus = "busy"
	AgentStatusOffline AgentStatus = "offline"
)

// AgentRole enumerates support roles.
type AgentRole string

const (
	AgentRoleAgent       AgentRole = "agent"
	AgentRoleSeniorAgent AgentRole = "senior_agent"
	AgentRoleTeamLead    AgentRole = "team_lead"
	AgentRoleManager     AgentRole = "manager"
)

// Agent models a support agent on the roster.
type Agent struct {
	ID            string
	Name          string
	Email         string
	Role          AgentRole
	Status        AgentStatus
	TeamID        *string
	TotalResolved int
	// OpenTickets is the number of open or in-progress tickets assigned to
	// the agent. It is derived, not stored on the agent row.
	OpenTickets int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available reports whether the agent can take new work.
func (a Agent) Available() bool {
	return a.Status != AgentStatusOffline
}
