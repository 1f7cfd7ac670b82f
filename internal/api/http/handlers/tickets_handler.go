package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/auth"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/service"
	"github.com/spec-kit/escalation-engine/internal/sla"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.CustomerID) == "" || strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("customer_id and title required", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), auth.ActorFromContext(c), service.TicketCreateInput{
		CustomerID:  req.CustomerID,
		AgentID:     req.AgentID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, snapshot, err := h.service.GetSLA(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	msgs, err := h.service.ListMessages(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	detail := dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		Messages:       make([]dto.TicketMessageResponse, 0, len(msgs)),
	}
	if !ticket.Status.IsTerminal() {
		slaResp := slaResponse(snapshot)
		detail.SLA = &slaResp
	}
	for i := range msgs {
		detail.Messages = append(detail.Messages, ticketMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": detail})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.DeleteTicket(c.UserContext(), auth.ActorFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdatePriority(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateCategory PATCH /tickets/:id/category.
func (h *TicketsHandler) UpdateCategory(c *fiber.Ctx) error {
	var req dto.UpdateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateCategory(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Escalate POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	ticket, err := h.service.Escalate(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Merge POST /tickets/:id/merge.
func (h *TicketsHandler) Merge(c *fiber.Ctx) error {
	var req dto.MergeTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.MergeTickets(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.TargetTicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MergeResponse{
		Source:     ticketResponse(result.Source),
		Target:     ticketResponse(result.Target),
		Dependency: dependencyResponse(result.Dependency),
	}})
}

// CreateFollowUp POST /tickets/:id/follow-ups.
func (h *TicketsHandler) CreateFollowUp(c *fiber.Ctx) error {
	var req dto.FollowUpRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, dep, err := h.service.CreateFollowUp(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), service.FollowUpInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FollowUpResponse{
		Ticket:     ticketResponse(ticket),
		Dependency: dependencyResponse(dep),
	}})
}

// GetSLA GET /tickets/:id/sla.
func (h *TicketsHandler) GetSLA(c *fiber.Ctx) error {
	_, snapshot, err := h.service.GetSLA(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaResponse(snapshot)})
}

// ListDependencies GET /tickets/:id/dependencies.
func (h *TicketsHandler) ListDependencies(c *fiber.Ctx) error {
	deps, err := h.service.ListDependencies(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.DependencyResponse, 0, len(deps))
	for i := range deps {
		items = append(items, dependencyResponse(&deps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.service.ListHistory(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if v := c.Query("customer_id"); v != "" {
		filter.CustomerID = &v
	}
	if v := c.Query("agent_id"); v != "" {
		filter.AgentID = &v
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	if v := c.Query("q"); v != "" {
		filter.SearchTerm = &v
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 ticket.ID,
		CustomerID:         ticket.CustomerID,
		AgentID:            ticket.AgentID,
		Title:              ticket.Title,
		Description:        ticket.Description,
		Category:           ticket.Category,
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		Tags:               ticket.Tags,
		SatisfactionRating: ticket.SatisfactionRating,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		ResolvedAt:         ticket.ResolvedAt,
	}
}

func slaResponse(s sla.Snapshot) dto.SLAResponse {
	return dto.SLAResponse{
		TicketID:         s.TicketID,
		Deadline:         s.Deadline,
		RemainingSeconds: int64(s.Remaining / time.Second),
		Breached:         s.Breached,
		AtRisk:           s.AtRisk,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:          msg.ID,
		MessageType: msg.MessageType,
		AuthorType:  msg.AuthorType,
		AuthorID:    msg.AuthorID,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
}

func dependencyResponse(dep *domain.TicketDependency) dto.DependencyResponse {
	return dto.DependencyResponse{
		ID:             dep.ID,
		SourceTicketID: dep.SourceTicketID,
		TargetTicketID: dep.TargetTicketID,
		Type:           dep.Type,
		CreatedAt:      dep.CreatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}
