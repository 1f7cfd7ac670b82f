package domain

import "time"

// EscalationConditions are combined with AND semantics. A nil or empty
// field matches any ticket.
type EscalationConditions struct {
	Priority           []TicketPriority `json:"priority,omitempty" yaml:"priority"`
	Category           []string         `json:"category,omitempty" yaml:"category"`
	Status             []TicketStatus   `json:"status,omitempty" yaml:"status"`
	TimeThresholdHours *float64         `json:"time_threshold_hours,omitempty" yaml:"time_threshold_hours"`
	SLABreach          *bool            `json:"sla_breach,omitempty" yaml:"sla_breach"`
	CustomerTier       []string         `json:"customer_tier,omitempty" yaml:"customer_tier"`
}

// NeedsCustomerTier reports whether evaluating the conditions requires the
// customer's tier.
func (c EscalationConditions) NeedsCustomerTier() bool {
	return len(c.CustomerTier) > 0
}

// EscalationActions lists what a fired rule does. Each present action is
// applied independently.
type EscalationActions struct {
	AssignToAgent    *string         `json:"assign_to_agent,omitempty" yaml:"assign_to_agent"`
	AssignToTeam     *string         `json:"assign_to_team,omitempty" yaml:"assign_to_team"`
	ChangePriority   *TicketPriority `json:"change_priority,omitempty" yaml:"change_priority"`
	SendNotification bool            `json:"send_notification,omitempty" yaml:"send_notification"`
	NotifyManagers   bool            `json:"notify_managers,omitempty" yaml:"notify_managers"`
	AutoResponse     string          `json:"auto_response,omitempty" yaml:"auto_response"`
}

// IsEmpty reports whether no action is configured.
func (a EscalationActions) IsEmpty() bool {
	return a.AssignToAgent == nil &&
		a.AssignToTeam == nil &&
		a.ChangePriority == nil &&
		!a.SendNotification &&
		!a.NotifyManagers &&
		a.AutoResponse == ""
}

// EscalationRule pairs conditions with actions.
type EscalationRule struct {
	ID             string
	Name           string
	IsActive       bool
	Conditions     EscalationConditions
	Actions        EscalationActions
	ExecutionCount int64
	LastExecuted   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
