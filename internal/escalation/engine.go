// Package escalation matches escalation rules against tickets.
package escalation

import (
	"slices"
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/sla"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// TicketContext is everything a rule may inspect about a ticket.
type TicketContext struct {
	Ticket       *domain.Ticket
	SLA          sla.Snapshot
	CustomerTier string
}

// ActionSet is the set of actions produced by a fired rule.
type ActionSet struct {
	RuleID   string
	RuleName string
	domain.EscalationActions
}

// Validate checks a rule for values the engine cannot act on.
func Validate(rule *domain.EscalationRule) error {
	if rule == nil {
		return apperrors.NewValidationError("rule required", nil)
	}
	details := map[string]any{"rule_id": rule.ID}
	for _, p := range rule.Conditions.Priority {
		if !p.Valid() {
			details["priority"] = p
			return apperrors.NewValidationError("unknown priority in rule conditions", details)
		}
	}
	for _, s := range rule.Conditions.Status {
		if !s.Valid() {
			details["status"] = s
			return apperrors.NewValidationError("unknown status in rule conditions", details)
		}
	}
	if h := rule.Conditions.TimeThresholdHours; h != nil && *h < 0 {
		details["time_threshold_hours"] = *h
		return apperrors.NewValidationError("time threshold must not be negative", details)
	}
	if p := rule.Actions.ChangePriority; p != nil && !p.Valid() {
		details["change_priority"] = *p
		return apperrors.NewValidationError("unknown priority in rule actions", details)
	}
	if id := rule.Actions.AssignToAgent; id != nil && *id == "" {
		return apperrors.NewValidationError("assign_to_agent must not be empty", details)
	}
	if id := rule.Actions.AssignToTeam; id != nil && *id == "" {
		return apperrors.NewValidationError("assign_to_team must not be empty", details)
	}
	return nil
}

// Matches reports whether every specified condition holds for tc.
func Matches(cond domain.EscalationConditions, tc TicketContext, now time.Time) bool {
	t := tc.Ticket
	if t == nil {
		return false
	}
	if len(cond.Priority) > 0 && !slices.Contains(cond.Priority, t.Priority) {
		return false
	}
	if len(cond.Category) > 0 && !slices.Contains(cond.Category, t.Category) {
		return false
	}
	if len(cond.Status) > 0 && !slices.Contains(cond.Status, t.Status) {
		return false
	}
	if cond.TimeThresholdHours != nil {
		threshold := time.Duration(*cond.TimeThresholdHours * float64(time.Hour))
		if now.Sub(t.CreatedAt) < threshold {
			return false
		}
	}
	if cond.SLABreach != nil && tc.SLA.Breached != *cond.SLABreach {
		return false
	}
	if len(cond.CustomerTier) > 0 && !slices.Contains(cond.CustomerTier, tc.CustomerTier) {
		return false
	}
	return true
}

// Evaluate matches rule against tc. It returns the rule's actions and true
// on a match. Inactive rules and rules without actions never match.
func Evaluate(tc TicketContext, rule *domain.EscalationRule, now time.Time) (ActionSet, bool) {
	if rule == nil || !rule.IsActive || rule.Actions.IsEmpty() {
		return ActionSet{}, false
	}
	if !Matches(rule.Conditions, tc, now) {
		return ActionSet{}, false
	}
	return ActionSet{RuleID: rule.ID, RuleName: rule.Name, EscalationActions: rule.Actions}, true
}
