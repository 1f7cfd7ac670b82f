package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/escalation-engine/internal/domain"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

func agent(id string, role domain.AgentRole, status domain.AgentStatus, open int) domain.Agent {
	return domain.Agent{ID: id, Name: id, Role: role, Status: status, OpenTickets: open}
}

func TestResolveAssignee(t *testing.T) {
	technical := &domain.Ticket{Category: domain.CategoryTechnical}
	billing := &domain.Ticket{Category: domain.CategoryBilling}
	general := &domain.Ticket{Category: "general"}

	veteran := agent("vet", domain.AgentRoleAgent, domain.AgentStatusActive, 1)
	veteran.TotalResolved = 51

	tests := []struct {
		name       string
		ticket     *domain.Ticket
		candidates []domain.Agent
		want       string
		wantOK     bool
	}{
		{
			name:   "technical prefers senior agent",
			ticket: technical,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 2),
				agent("B", domain.AgentRoleSeniorAgent, domain.AgentStatusActive, 3),
			},
			want: "B", wantOK: true,
		},
		{
			name:   "technical accepts team lead",
			ticket: technical,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 0),
				agent("L", domain.AgentRoleTeamLead, domain.AgentStatusBusy, 0),
			},
			want: "L", wantOK: true,
		},
		{
			name:   "billing without veterans falls back to first",
			ticket: billing,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 0),
				agent("B", domain.AgentRoleSeniorAgent, domain.AgentStatusActive, 0),
			},
			want: "A", wantOK: true,
		},
		{
			name:   "billing prefers more than fifty resolved",
			ticket: billing,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 0),
				veteran,
			},
			want: "vet", wantOK: true,
		},
		{
			name:   "offline agents are skipped",
			ticket: technical,
			candidates: []domain.Agent{
				agent("S", domain.AgentRoleSeniorAgent, domain.AgentStatusOffline, 0),
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 4),
			},
			want: "A", wantOK: true,
		},
		{
			name:   "overloaded pick is replaced by least loaded",
			ticket: technical,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 5),
				agent("S", domain.AgentRoleSeniorAgent, domain.AgentStatusActive, 11),
				agent("C", domain.AgentRoleAgent, domain.AgentStatusActive, 2),
				agent("D", domain.AgentRoleAgent, domain.AgentStatusActive, 2),
			},
			want: "C", wantOK: true,
		},
		{
			name:   "exactly at threshold is kept",
			ticket: general,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 10),
				agent("B", domain.AgentRoleAgent, domain.AgentStatusActive, 0),
			},
			want: "A", wantOK: true,
		},
		{
			name:   "all offline resolves to none",
			ticket: general,
			candidates: []domain.Agent{
				agent("A", domain.AgentRoleAgent, domain.AgentStatusOffline, 0),
				agent("B", domain.AgentRoleManager, domain.AgentStatusOffline, 0),
			},
			wantOK: false,
		},
		{
			name:   "empty roster resolves to none",
			ticket: general,
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveAssignee(tc.ticket, tc.candidates, DefaultLoadThreshold)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)

			again, okAgain := ResolveAssignee(tc.ticket, tc.candidates, DefaultLoadThreshold)
			assert.Equal(t, got, again)
			assert.Equal(t, ok, okAgain)
		})
	}
}

func TestRosterOverlaysTrackedLoad(t *testing.T) {
	h := newHarness(
		agent("A", domain.AgentRoleSeniorAgent, domain.AgentStatusActive, 0),
		agent("B", domain.AgentRoleAgent, domain.AgentStatusActive, 0),
	)
	for i := 0; i < 11; i++ {
		h.seedTicket(domain.Ticket{
			ID:       "t" + string(rune('a'+i)),
			AgentID:  ptr("A"),
			Status:   domain.TicketStatusOpen,
			Priority: domain.TicketPriorityLow,
		})
	}
	ctx := context.Background()
	require.NoError(t, h.assignment.RebuildLoad(ctx))

	roster, err := h.assignment.Roster(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, 11, roster[0].OpenTickets)
	assert.Equal(t, 0, roster[1].OpenTickets)

	id, ok, err := h.assignment.Resolve(ctx, &domain.Ticket{Category: domain.CategoryTechnical})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", id)
}

func TestResolveForTeam(t *testing.T) {
	team := "team-1"
	member := agent("M", domain.AgentRoleAgent, domain.AgentStatusActive, 0)
	member.TeamID = &team
	h := newHarness(agent("X", domain.AgentRoleAgent, domain.AgentStatusActive, 0), member)
	h.teams.items[team] = domain.Team{ID: team, Name: "Tier 2", IsActive: true}
	ctx := context.Background()

	id, err := h.assignment.ResolveForTeam(ctx, &domain.Ticket{}, team)
	require.NoError(t, err)
	assert.Equal(t, "M", id)

	_, err = h.assignment.ResolveForTeam(ctx, &domain.Ticket{}, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTrackTransition(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	open := &domain.Ticket{AgentID: ptr("A"), Status: domain.TicketStatusOpen}
	moved := &domain.Ticket{AgentID: ptr("B"), Status: domain.TicketStatusInProgress}
	resolved := &domain.Ticket{AgentID: ptr("B"), Status: domain.TicketStatusResolved}

	h.assignment.TrackTransition(ctx, nil, open)
	h.assignment.TrackTransition(ctx, open, moved)
	loads, err := h.load.Loads(ctx, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, 0, loads["A"])
	assert.Equal(t, 1, loads["B"])

	h.assignment.TrackTransition(ctx, moved, resolved)
	loads, err = h.load.Loads(ctx, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, 0, loads["B"])
}
