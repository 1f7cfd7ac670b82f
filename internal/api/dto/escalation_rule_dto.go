package dto

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// CreateRuleRequest payload.
type CreateRuleRequest struct {
	Name       string                      `json:"name"`
	IsActive   *bool                       `json:"is_active"`
	Conditions domain.EscalationConditions `json:"conditions"`
	Actions    domain.EscalationActions    `json:"actions"`
}

// UpdateRuleRequest payload. Omitted fields are left unchanged.
type UpdateRuleRequest struct {
	Name       *string                      `json:"name"`
	IsActive   *bool                        `json:"is_active"`
	Conditions *domain.EscalationConditions `json:"conditions"`
	Actions    *domain.EscalationActions    `json:"actions"`
}

// RuleResponse represents an escalation rule.
type RuleResponse struct {
	ID             string                      `json:"id"`
	Name           string                      `json:"name"`
	IsActive       bool                        `json:"is_active"`
	Conditions     domain.EscalationConditions `json:"conditions"`
	Actions        domain.EscalationActions    `json:"actions"`
	ExecutionCount int64                       `json:"execution_count"`
	LastExecuted   *time.Time                  `json:"last_executed"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}
