package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/service"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// EscalationRulesHandler manages rule definitions and manual scans.
type EscalationRulesHandler struct {
	rules *service.EscalationRuleService
	scan  *service.ScanService
}

// NewEscalationRulesHandler constructs handler.
func NewEscalationRulesHandler(rules *service.EscalationRuleService, scan *service.ScanService) *EscalationRulesHandler {
	return &EscalationRulesHandler{rules: rules, scan: scan}
}

// List GET /escalation-rules.
func (h *EscalationRulesHandler) List(c *fiber.Ctx) error {
	rules, err := h.rules.List(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		resp = append(resp, ruleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Create POST /escalation-rules.
func (h *EscalationRulesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rule, err := h.rules.Create(c.UserContext(), service.RuleInput{
		Name:       req.Name,
		IsActive:   active,
		Conditions: req.Conditions,
		Actions:    req.Actions,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Update PATCH /escalation-rules/:id.
func (h *EscalationRulesHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.rules.Update(c.UserContext(), c.Params("id"), service.RulePatch{
		Name:       req.Name,
		IsActive:   req.IsActive,
		Conditions: req.Conditions,
		Actions:    req.Actions,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Scan POST /scan runs one scan cycle synchronously.
func (h *EscalationRulesHandler) Scan(c *fiber.Ctx) error {
	report, err := h.scan.ScanOnce(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

func ruleResponse(rule *domain.EscalationRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:             rule.ID,
		Name:           rule.Name,
		IsActive:       rule.IsActive,
		Conditions:     rule.Conditions,
		Actions:        rule.Actions,
		ExecutionCount: rule.ExecutionCount,
		LastExecuted:   rule.LastExecuted,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}
