package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/events"
	"github.com/spec-kit/escalation-engine/internal/repository"
	"github.com/spec-kit/escalation-engine/internal/sla"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// TicketService coordinates ticket lifecycle workflows.
type TicketService struct {
	tickets      repository.TicketRepository
	messages     repository.TicketMessageRepository
	history      repository.TicketHistoryRepository
	dependencies repository.TicketDependencyRepository
	agents       repository.AgentRepository
	assignment   *AssignmentService
	calculator   *sla.Calculator
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	HistoryRepo    repository.TicketHistoryRepository
	DependencyRepo repository.TicketDependencyRepository
	AgentRepo      repository.AgentRepository
	Assignment     *AssignmentService
	Calculator     *sla.Calculator
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Now            func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerID  string
	AgentID     *string
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
	Tags        []string
}

// FollowUpInput describes a follow-up ticket. Empty fields are derived from
// the parent.
type FollowUpInput struct {
	Title       string
	Description string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	CustomerID  *string
	AgentID     *string
	Category    *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	calculator := deps.Calculator
	if calculator == nil {
		calculator = sla.NewCalculator(sla.DefaultPolicy())
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		messages:     deps.MessageRepo,
		history:      deps.HistoryRepo,
		dependencies: deps.DependencyRepo,
		agents:       deps.AgentRepo,
		assignment:   deps.Assignment,
		calculator:   calculator,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		now:          now,
	}
}

// CreateTicket opens a ticket. When no agent is given the resolver picks
// one; the ticket stays unassigned if every agent is offline.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		CustomerID:  strings.TrimSpace(input.CustomerID),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		Tags:        input.Tags,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if err := validateNewTicket(ticket); err != nil {
		return nil, err
	}

	if input.AgentID != nil && *input.AgentID != "" {
		if err := s.ensureAgent(ctx, *input.AgentID); err != nil {
			return nil, err
		}
		agentID := *input.AgentID
		ticket.AgentID = &agentID
	} else if s.assignment != nil {
		agentID, ok, err := s.assignment.Resolve(ctx, ticket)
		if err != nil {
			return nil, err
		}
		if ok {
			ticket.AgentID = &agentID
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.trackLoad(ctx, nil, ticket)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"status":   ticket.Status,
		"priority": ticket.Priority,
		"category": ticket.Category,
		"agent_id": ticket.AgentID,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			CustomerID: ticket.CustomerID,
			AgentID:    ticket.AgentID,
			Category:   ticket.Category,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListTickets returns a page of tickets.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": st})
		}
	}
	for _, p := range filter.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": p})
		}
	}
	items, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CustomerID:  filter.CustomerID,
		AgentID:     filter.AgentID,
		Category:    filter.Category,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// AssignTicket sets the ticket's agent. Status is left untouched.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, agentID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.AssignAgent(ctx, actor, ticket, agentID, ""); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AssignAgent writes only the agent column and refreshes ticket from the
// stored row. ruleID is recorded when the assignment comes from an
// escalation rule.
func (s *TicketService) AssignAgent(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, agentID, ruleID string) error {
	if strings.TrimSpace(agentID) == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	if err := s.ensureAgent(ctx, agentID); err != nil {
		return err
	}
	if ticket.AgentID != nil && *ticket.AgentID == agentID {
		return nil
	}

	before := *ticket
	stored, err := s.tickets.UpdateAgent(ctx, ticket.ID, agentID)
	if err != nil {
		return apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	// Load moves between agents under the stored status, not the caller's copy.
	prev := *stored
	prev.AgentID = before.AgentID
	*ticket = *stored
	s.trackLoad(ctx, &prev, ticket)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"agent_id": before.AgentID},
		withRule(map[string]any{"agent_id": ticket.AgentID}, ruleID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketAssignedPayload{
			OldAgentID: before.AgentID,
			AgentID:    ticket.AgentID,
			RuleID:     ruleID,
		},
	})
	return nil
}

// UpdateStatus moves a ticket one step along open, in_progress, resolved,
// closed in either direction. Reaching resolved or closed stamps
// resolved_at once; it is never cleared.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": next})
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == next {
		return ticket, nil
	}
	if !isValidTransition(ticket.Status, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}

	before := *ticket
	ticket.Status = next
	s.stampResolved(ticket)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	s.trackLoad(ctx, &before, ticket)
	if next == domain.TicketStatusResolved && ticket.AgentID != nil && s.agents != nil {
		if err := s.agents.IncrementResolved(ctx, *ticket.AgentID); err != nil {
			s.logger.Warn("increment resolved failed",
				zap.String("agent_id", *ticket.AgentID),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": before.Status},
		map[string]any{"status": ticket.Status})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: ticket.Status},
	})
	return ticket, nil
}

// UpdatePriority sets the ticket's priority.
func (s *TicketService) UpdatePriority(ctx context.Context, actor domain.Actor, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.SetPriority(ctx, actor, ticket, priority, ""); err != nil {
		return nil, err
	}
	return ticket, nil
}

// SetPriority writes only the priority column and refreshes ticket from the
// stored row.
func (s *TicketService) SetPriority(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, priority domain.TicketPriority, ruleID string) error {
	if !priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	if ticket.Priority == priority {
		return nil
	}
	old := ticket.Priority
	stored, err := s.tickets.UpdatePriority(ctx, ticket.ID, priority)
	if err != nil {
		return apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	*ticket = *stored
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": old},
		withRule(map[string]any{"priority": priority}, ruleID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketPriorityChangedPayload{OldPriority: old, NewPriority: priority, RuleID: ruleID},
	})
	return nil
}

// UpdateCategory recategorizes a ticket.
func (s *TicketService) UpdateCategory(ctx context.Context, actor domain.Actor, ticketID, category string) (*domain.Ticket, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.NewValidationError("category required", nil)
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Category == category {
		return ticket, nil
	}
	old := ticket.Category
	ticket.Category = category
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeCategory,
		map[string]any{"category": old},
		map[string]any{"category": category})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCategoryChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketCategoryChangedPayload{OldCategory: old, NewCategory: category},
	})
	return ticket, nil
}

// Escalate steps the priority up one level (high and urgent stay) and
// forces the ticket into in_progress.
func (s *TicketService) Escalate(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	before := *ticket
	ticket.Priority = ticket.Priority.StepUp()
	ticket.Status = domain.TicketStatusInProgress
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	s.trackLoad(ctx, &before, ticket)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeEscalate,
		map[string]any{"priority": before.Priority, "status": before.Status},
		map[string]any{"priority": ticket.Priority, "status": ticket.Status})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketEscalatedPayload{
			OldPriority: before.Priority,
			NewPriority: ticket.Priority,
			OldStatus:   before.Status,
		},
	})
	return ticket, nil
}

// MergeResult is returned by MergeTickets.
type MergeResult struct {
	Source     *domain.Ticket
	Target     *domain.Ticket
	Dependency *domain.TicketDependency
}

// MergeTickets folds source into target. The target's description gains
// the source's title and description, the source is closed with a note
// pointing at the target, and a related dependency target -> source is
// recorded.
func (s *TicketService) MergeTickets(ctx context.Context, actor domain.Actor, sourceID, targetID string) (*MergeResult, error) {
	if sourceID == "" || targetID == "" {
		return nil, apperrors.NewValidationError("source and target required", nil)
	}
	if sourceID == targetID {
		return nil, apperrors.NewValidationError("cannot merge a ticket into itself", map[string]any{"ticket_id": sourceID})
	}
	source, err := s.GetTicket(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetTicket(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target.Description = appendMerged(target.Description, source)
	if err := s.tickets.Update(ctx, target); err != nil {
		return nil, apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": target.ID})
	}

	before := *source
	source.Status = domain.TicketStatusClosed
	s.stampResolved(source)
	if err := s.tickets.Update(ctx, source); err != nil {
		return nil, apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": source.ID})
	}
	s.trackLoad(ctx, &before, source)

	note := &domain.TicketMessage{
		TicketID:    source.ID,
		AuthorType:  actor.Type,
		AuthorID:    actor.ID,
		MessageType: domain.MessageTypeNote,
		Body:        fmt.Sprintf("Merged into ticket %s (%s)", target.ID, target.Title),
	}
	if err := s.messages.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	dep := &domain.TicketDependency{
		SourceTicketID: target.ID,
		TargetTicketID: source.ID,
		Type:           domain.DependencyRelated,
	}
	if err := s.dependencies.Create(ctx, dep); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, actor, source.ID, domain.ChangeTypeMerge,
		map[string]any{"status": before.Status},
		map[string]any{"status": source.Status, "merged_into": target.ID})
	s.recordHistory(ctx, actor, target.ID, domain.ChangeTypeMerge,
		nil,
		map[string]any{"merged_from": source.ID})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMerged,
		TicketID: target.ID,
		Actor:    actor,
		Payload:  events.TicketMergedPayload{SourceTicketID: source.ID, TargetTicketID: target.ID},
	})
	return &MergeResult{Source: source, Target: target, Dependency: dep}, nil
}

// CreateFollowUp opens a ticket continuing parentID. It inherits category,
// priority, customer and agent and depends on the parent.
func (s *TicketService) CreateFollowUp(ctx context.Context, actor domain.Actor, parentID string, input FollowUpInput) (*domain.Ticket, *domain.TicketDependency, error) {
	parent, err := s.GetTicket(ctx, parentID)
	if err != nil {
		return nil, nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Follow-up: " + parent.Title
	}
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		CustomerID:  parent.CustomerID,
		AgentID:     parent.AgentID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    parent.Category,
		Status:      domain.TicketStatusOpen,
		Priority:    parent.Priority,
		Tags:        parent.Tags,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	s.trackLoad(ctx, nil, ticket)

	dep := &domain.TicketDependency{
		SourceTicketID: ticket.ID,
		TargetTicketID: parent.ID,
		Type:           domain.DependencyDependsOn,
	}
	if err := s.dependencies.Create(ctx, dep); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeFollowUp, nil, map[string]any{
		"parent_ticket_id": parent.ID,
		"priority":         ticket.Priority,
		"category":         ticket.Category,
		"agent_id":         ticket.AgentID,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketFollowUp,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketFollowUpPayload{ParentTicketID: parent.ID},
	})
	return ticket, dep, nil
}

// DeleteTicket hard deletes a ticket. The audit entry outlives the ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.StoreError(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	s.trackLoad(ctx, ticket, nil)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeDeleted, map[string]any{
		"title":       ticket.Title,
		"status":      ticket.Status,
		"priority":    ticket.Priority,
		"customer_id": ticket.CustomerID,
		"agent_id":    ticket.AgentID,
	}, nil)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketDeletedPayload{Title: ticket.Title, Status: ticket.Status},
	})
	return nil
}

// GetSLA computes the ticket's current SLA snapshot.
func (s *TicketService) GetSLA(ctx context.Context, ticketID string) (*domain.Ticket, sla.Snapshot, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, sla.Snapshot{}, err
	}
	snapshot, err := s.calculator.EvaluateTicket(ticket, s.now())
	if err != nil {
		return nil, sla.Snapshot{}, err
	}
	return ticket, snapshot, nil
}

// ListDependencies returns edges touching the ticket.
func (s *TicketService) ListDependencies(ctx context.Context, ticketID string) ([]domain.TicketDependency, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	deps, err := s.dependencies.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return deps, nil
}

// ListHistory returns audit entries for a ticket. Entries of deleted
// tickets remain readable.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// ListMessages returns notes and auto-responses for a ticket.
func (s *TicketService) ListMessages(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	items, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// AddAutoResponse stores an outbound reply and hands it to the messaging
// collaborator through the event dispatcher.
func (s *TicketService) AddAutoResponse(ctx context.Context, ticket *domain.Ticket, ruleID, body string) (*domain.TicketMessage, error) {
	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		AuthorType:  domain.ActorTypeSystem,
		MessageType: domain.MessageTypeAutoResponse,
		Body:        strings.TrimSpace(body),
	}
	if msg.Body == "" {
		return nil, apperrors.NewValidationError("auto response body required", nil)
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventAutoResponse,
		TicketID: ticket.ID,
		Actor:    domain.SystemActor,
		Payload: events.AutoResponsePayload{
			MessageID:  msg.ID,
			RuleID:     ruleID,
			CustomerID: ticket.CustomerID,
			Body:       msg.Body,
		},
	})
	return msg, nil
}

func (s *TicketService) ensureAgent(ctx context.Context, agentID string) error {
	if s.agents == nil {
		return nil
	}
	if _, err := s.agents.GetByID(ctx, agentID); err != nil {
		return apperrors.StoreError(err, "agent", map[string]any{"agent_id": agentID})
	}
	return nil
}

func (s *TicketService) stampResolved(ticket *domain.Ticket) {
	if ticket.Status.IsTerminal() && ticket.ResolvedAt == nil {
		at := s.now()
		ticket.ResolvedAt = &at
	}
}

func (s *TicketService) trackLoad(ctx context.Context, before, after *domain.Ticket) {
	if s.assignment == nil {
		return
	}
	s.assignment.TrackTransition(ctx, before, after)
}

func (s *TicketService) recordHistory(ctx context.Context, actor domain.Actor, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	if actor.Type == "" {
		actor = domain.SystemActor
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actor.Type,
		ChangedByID:   actor.ID,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history write failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(change)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateNewTicket(ticket *domain.Ticket) error {
	if ticket.Title == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if ticket.CustomerID == "" {
		return apperrors.NewValidationError("customer_id required", nil)
	}
	if !ticket.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}
	return nil
}

func appendMerged(description string, source *domain.Ticket) string {
	merged := fmt.Sprintf("--- Merged from ticket %s: %s ---", source.ID, source.Title)
	if source.Description != "" {
		merged += "\n" + source.Description
	}
	if description == "" {
		return merged
	}
	return description + "\n\n" + merged
}

func withRule(value map[string]any, ruleID string) map[string]any {
	if ruleID != "" {
		value["rule_id"] = ruleID
	}
	return value
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {domain.TicketStatusResolved},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
