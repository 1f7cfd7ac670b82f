// Package sla computes service-level deadlines for tickets.
package sla

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// Policy maps priorities to resolution offsets.
type Policy struct {
	Offsets      map[domain.TicketPriority]time.Duration
	AtRiskWindow time.Duration
}

// DefaultPolicy returns the stock offsets. Urgent shares high's offset.
func DefaultPolicy() Policy {
	return Policy{
		Offsets: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityUrgent: 4 * time.Hour,
			domain.TicketPriorityHigh:   4 * time.Hour,
			domain.TicketPriorityMedium: 24 * time.Hour,
			domain.TicketPriorityLow:    72 * time.Hour,
		},
		AtRiskWindow: 4 * time.Hour,
	}
}

// Snapshot is the SLA state of a ticket at a point in time.
type Snapshot struct {
	TicketID  string
	Deadline  time.Time
	Remaining time.Duration
	Breached  bool
	AtRisk    bool
}

// Calculator evaluates a Policy. It holds no mutable state.
type Calculator struct {
	policy Policy
}

// NewCalculator builds a calculator, filling gaps from DefaultPolicy.
func NewCalculator(policy Policy) *Calculator {
	def := DefaultPolicy()
	offsets := make(map[domain.TicketPriority]time.Duration, len(def.Offsets))
	for p, d := range def.Offsets {
		offsets[p] = d
	}
	for p, d := range policy.Offsets {
		if d > 0 {
			offsets[p] = d
		}
	}
	if _, ok := policy.Offsets[domain.TicketPriorityUrgent]; !ok {
		offsets[domain.TicketPriorityUrgent] = offsets[domain.TicketPriorityHigh]
	}
	window := policy.AtRiskWindow
	if window <= 0 {
		window = def.AtRiskWindow
	}
	return &Calculator{policy: Policy{Offsets: offsets, AtRiskWindow: window}}
}

// Offset returns the deadline offset for priority.
func (c *Calculator) Offset(priority domain.TicketPriority) (time.Duration, bool) {
	d, ok := c.policy.Offsets[priority]
	return d, ok
}

// Evaluate computes the deadline, remaining time and breach flag.
// Tickets in a terminal status are never breached or at risk.
func (c *Calculator) Evaluate(priority domain.TicketPriority, createdAt time.Time, status domain.TicketStatus, now time.Time) (Snapshot, error) {
	offset, ok := c.Offset(priority)
	if !ok {
		return Snapshot{}, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	deadline := createdAt.Add(offset)
	remaining := deadline.Sub(now)
	breached := now.After(deadline) && !status.IsTerminal()
	return Snapshot{
		Deadline:  deadline,
		Remaining: remaining,
		Breached:  breached,
		AtRisk:    !breached && !status.IsTerminal() && remaining <= c.policy.AtRiskWindow,
	}, nil
}

// EvaluateTicket is Evaluate applied to a ticket.
func (c *Calculator) EvaluateTicket(ticket *domain.Ticket, now time.Time) (Snapshot, error) {
	snap, err := c.Evaluate(ticket.Priority, ticket.CreatedAt, ticket.Status, now)
	if err != nil {
		return Snapshot{}, err
	}
	snap.TicketID = ticket.ID
	return snap, nil
}
