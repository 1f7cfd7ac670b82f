package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/escalation"
	"github.com/spec-kit/escalation-engine/internal/repository"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// EscalationRuleService manages escalation rule definitions.
type EscalationRuleService struct {
	rules  repository.EscalationRuleRepository
	logger *zap.Logger
}

// NewEscalationRuleService creates the service.
func NewEscalationRuleService(rules repository.EscalationRuleRepository, logger *zap.Logger) *EscalationRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationRuleService{rules: rules, logger: logger}
}

// RuleInput describes a rule to create.
type RuleInput struct {
	Name       string
	IsActive   bool
	Conditions domain.EscalationConditions
	Actions    domain.EscalationActions
}

// RulePatch describes a partial rule update.
type RulePatch struct {
	Name       *string
	IsActive   *bool
	Conditions *domain.EscalationConditions
	Actions    *domain.EscalationActions
}

// List returns every rule.
func (s *EscalationRuleService) List(ctx context.Context) ([]domain.EscalationRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// Create validates and stores a rule. Names are unique.
func (s *EscalationRuleService) Create(ctx context.Context, input RuleInput) (*domain.EscalationRule, error) {
	rule := &domain.EscalationRule{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(input.Name),
		IsActive:   input.IsActive,
		Conditions: input.Conditions,
		Actions:    input.Actions,
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if _, err := s.rules.GetByName(ctx, rule.Name); err == nil {
		return nil, apperrors.NewConflict("rule name already exists", map[string]any{"name": rule.Name})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// Update applies patch to an existing rule.
func (s *EscalationRuleService) Update(ctx context.Context, id string, patch RulePatch) (*domain.EscalationRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.StoreError(err, "escalation rule", map[string]any{"rule_id": id})
	}
	if patch.Name != nil {
		rule.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.IsActive != nil {
		rule.IsActive = *patch.IsActive
	}
	if patch.Conditions != nil {
		rule.Conditions = *patch.Conditions
	}
	if patch.Actions != nil {
		rule.Actions = *patch.Actions
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, apperrors.StoreError(err, "escalation rule", map[string]any{"rule_id": id})
	}
	return rule, nil
}

// Seed upserts rules by name. Counters of existing rules are preserved.
func (s *EscalationRuleService) Seed(ctx context.Context, seeds []domain.EscalationRule) error {
	for i := range seeds {
		seed := seeds[i]
		if err := escalation.Validate(&seed); err != nil {
			s.logger.Warn("skipping invalid seed rule", zap.String("rule", seed.Name), zap.Error(err))
			continue
		}
		existing, err := s.rules.GetByName(ctx, seed.Name)
		switch {
		case err == nil:
			existing.IsActive = seed.IsActive
			existing.Conditions = seed.Conditions
			existing.Actions = seed.Actions
			if err := s.rules.Update(ctx, existing); err != nil {
				return apperrors.MapError(err)
			}
		case apperrors.IsNotFound(err):
			seed.ID = uuid.NewString()
			if err := s.rules.Create(ctx, &seed); err != nil {
				return apperrors.MapError(err)
			}
		default:
			return apperrors.MapError(err)
		}
		s.logger.Info("escalation rule seeded", zap.String("rule", seed.Name))
	}
	return nil
}

func validateRule(rule *domain.EscalationRule) error {
	if rule.Name == "" {
		return apperrors.NewValidationError("rule name required", nil)
	}
	return escalation.Validate(rule)
}
