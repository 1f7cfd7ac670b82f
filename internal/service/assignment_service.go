package service

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/repository"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// DefaultLoadThreshold is the open-ticket count above which the preferred
// agent is passed over for the least loaded one.
const DefaultLoadThreshold = 10

// AgentLoadTracker keeps the per-agent open-ticket counter.
type AgentLoadTracker interface {
	Adjust(ctx context.Context, agentID string, delta int) error
	Loads(ctx context.Context, agentIDs []string) (map[string]int, error)
	Reset(ctx context.Context, counts map[string]int) error
}

// ResolveAssignee picks an agent for ticket from candidates, in roster
// order. It returns false when every candidate is offline. The result only
// depends on its inputs.
func ResolveAssignee(ticket *domain.Ticket, candidates []domain.Agent, threshold int) (string, bool) {
	available := make([]domain.Agent, 0, len(candidates))
	for _, agent := range candidates {
		if agent.Available() {
			available = append(available, agent)
		}
	}
	if len(available) == 0 {
		return "", false
	}

	selected := available[0]
	if ticket != nil {
		switch ticket.Category {
		case domain.CategoryTechnical:
			if idx := slices.IndexFunc(available, func(a domain.Agent) bool {
				return a.Role == domain.AgentRoleSeniorAgent || a.Role == domain.AgentRoleTeamLead
			}); idx >= 0 {
				selected = available[idx]
			}
		case domain.CategoryBilling:
			if idx := slices.IndexFunc(available, func(a domain.Agent) bool {
				return a.TotalResolved > 50
			}); idx >= 0 {
				selected = available[idx]
			}
		}
	}

	if selected.OpenTickets > threshold {
		selected = available[0]
		for _, agent := range available[1:] {
			if agent.OpenTickets < selected.OpenTickets {
				selected = agent
			}
		}
	}
	return selected.ID, true
}

// AssignmentService resolves assignees against the live roster.
type AssignmentService struct {
	agents    repository.AgentRepository
	teams     repository.TeamRepository
	tickets   repository.TicketRepository
	load      AgentLoadTracker
	threshold int
	logger    *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	AgentRepo     repository.AgentRepository
	TeamRepo      repository.TeamRepository
	TicketRepo    repository.TicketRepository
	LoadTracker   AgentLoadTracker
	LoadThreshold int
	Logger        *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	threshold := deps.LoadThreshold
	if threshold <= 0 {
		threshold = DefaultLoadThreshold
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		agents:    deps.AgentRepo,
		teams:     deps.TeamRepo,
		tickets:   deps.TicketRepo,
		load:      deps.LoadTracker,
		threshold: threshold,
		logger:    logger,
	}
}

// RebuildLoad resets the load counter from the ticket store.
func (s *AssignmentService) RebuildLoad(ctx context.Context) error {
	counts, err := s.tickets.CountOpenByAgent(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.load.Reset(ctx, counts); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("agent load rebuilt", zap.Int("agents", len(counts)))
	return nil
}

// Roster lists agents, optionally restricted to a team, with their current
// open-ticket counts filled in.
func (s *AssignmentService) Roster(ctx context.Context, teamID *string) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, repository.AgentFilter{TeamID: teamID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(agents) == 0 {
		return agents, nil
	}
	ids := make([]string, len(agents))
	for i, agent := range agents {
		ids[i] = agent.ID
	}
	loads, err := s.load.Loads(ctx, ids)
	if err != nil {
		s.logger.Warn("load tracker unavailable; counting from store", zap.Error(err))
		if loads, err = s.tickets.CountOpenByAgent(ctx); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	for i := range agents {
		agents[i].OpenTickets = loads[agents[i].ID]
	}
	return agents, nil
}

// Resolve picks an agent for ticket from the whole roster.
func (s *AssignmentService) Resolve(ctx context.Context, ticket *domain.Ticket) (string, bool, error) {
	roster, err := s.Roster(ctx, nil)
	if err != nil {
		return "", false, err
	}
	id, ok := ResolveAssignee(ticket, roster, s.threshold)
	return id, ok, nil
}

// ResolveForTeam picks an agent for ticket from the members of teamID.
func (s *AssignmentService) ResolveForTeam(ctx context.Context, ticket *domain.Ticket, teamID string) (string, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "", apperrors.StoreError(err, "team", map[string]any{"team_id": teamID})
	}
	if !team.IsActive {
		return "", apperrors.NewConflict("team inactive", map[string]any{"team_id": teamID})
	}
	roster, err := s.Roster(ctx, &teamID)
	if err != nil {
		return "", err
	}
	id, ok := ResolveAssignee(ticket, roster, s.threshold)
	if !ok {
		return "", apperrors.NewNotFound("available agent", map[string]any{"team_id": teamID})
	}
	return id, nil
}

// TrackTransition moves load between agents when a ticket's assignee or
// status changes. before is nil for new tickets and after is nil for
// deleted ones.
func (s *AssignmentService) TrackTransition(ctx context.Context, before, after *domain.Ticket) {
	oldAgent := loadHolder(before)
	newAgent := loadHolder(after)
	if oldAgent == newAgent {
		return
	}
	if oldAgent != "" {
		s.adjust(ctx, oldAgent, -1)
	}
	if newAgent != "" {
		s.adjust(ctx, newAgent, 1)
	}
}

func (s *AssignmentService) adjust(ctx context.Context, agentID string, delta int) {
	if err := s.load.Adjust(ctx, agentID, delta); err != nil {
		s.logger.Warn("agent load adjust failed",
			zap.String("agent_id", agentID),
			zap.Int("delta", delta),
			zap.Error(err))
	}
}

func loadHolder(ticket *domain.Ticket) string {
	if !ticket.CountsTowardLoad() {
		return ""
	}
	return *ticket.AgentID
}
