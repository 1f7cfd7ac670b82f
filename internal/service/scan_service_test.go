package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/escalation-engine/internal/domain"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

func aged(id string, priority domain.TicketPriority, age time.Duration) domain.Ticket {
	return domain.Ticket{
		ID:         id,
		CustomerID: "cust-" + id,
		Title:      "ticket " + id,
		Category:   "general",
		Status:     domain.TicketStatusOpen,
		Priority:   priority,
		CreatedAt:  fixedNow.Add(-age),
	}
}

func TestScanEmitsBreachOnce(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("x", domain.TicketPriorityHigh, 5*time.Hour))
	ctx := context.Background()

	report, err := h.scan.ScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Breached)
	assert.Equal(t, 1, report.Emitted)

	report, err = h.scan.ScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Suppressed)
	assert.Equal(t, 0, report.Emitted)

	alerts := h.notifications.forTicket("x", domain.NotificationTypeSLA, domain.AudienceAgents)
	require.Len(t, alerts, 1)

	require.NoError(t, h.notifier.MarkRead(ctx, alerts[0].ID))
	report, err = h.scan.ScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Emitted)
	assert.Len(t, h.notifications.forTicket("x", domain.NotificationTypeSLA, domain.AudienceAgents), 2)
}

func TestScanAtRiskAndHealthyTickets(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("risk", domain.TicketPriorityMedium, 21*time.Hour))
	h.seedTicket(aged("fine", domain.TicketPriorityLow, time.Hour))
	done := aged("done", domain.TicketPriorityHigh, 100*time.Hour)
	done.Status = domain.TicketStatusResolved
	h.seedTicket(done)

	report, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tickets)
	assert.Equal(t, 0, report.Breached)
	assert.Equal(t, 1, report.AtRisk)
	assert.Len(t, h.notifications.forTicket("risk", domain.NotificationTypeSLA, domain.AudienceAgents), 1)
	assert.Empty(t, h.notifications.forTicket("fine", domain.NotificationTypeSLA, domain.AudienceAgents))
	assert.Empty(t, h.notifications.forTicket("done", domain.NotificationTypeSLA, domain.AudienceAgents))
}

func TestScanBreachedHighPriorityRule(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("x", domain.TicketPriorityHigh, 5*time.Hour))
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:       "r1",
		Name:     "breached high",
		IsActive: true,
		Conditions: domain.EscalationConditions{
			Priority:  []domain.TicketPriority{domain.TicketPriorityHigh},
			SLABreach: ptr(true),
		},
		Actions: domain.EscalationActions{
			NotifyManagers: true,
			ChangePriority: ptr(domain.TicketPriorityHigh),
		},
	}))

	report, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RulesFired)
	assert.Equal(t, 0, report.ActionsFailed)

	assert.Len(t, h.notifications.forTicket("x", domain.NotificationTypeTicket, domain.AudienceManagers), 1)
	assert.Equal(t, domain.TicketPriorityHigh, h.tickets.get("x").Priority)
	assert.Len(t, h.notifications.unreadFor("x"), 1, "one unread alert per breach across audiences")
	assert.Equal(t, 1, report.Suppressed)

	rule := h.rules.byName("breached high")
	assert.Equal(t, int64(1), rule.ExecutionCount)
	require.NotNil(t, rule.LastExecuted)
	assert.Equal(t, fixedNow, *rule.LastExecuted)
}

func TestScanTimeThresholdBoundary(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("young", domain.TicketPriorityLow, 3*time.Hour+59*time.Minute))
	h.seedTicket(aged("old", domain.TicketPriorityLow, 4*time.Hour+time.Minute))
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:         "r1",
		Name:       "stale low",
		IsActive:   true,
		Conditions: domain.EscalationConditions{TimeThresholdHours: ptr(4.0)},
		Actions:    domain.EscalationActions{ChangePriority: ptr(domain.TicketPriorityMedium)},
	}))

	_, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityLow, h.tickets.get("young").Priority)
	assert.Equal(t, domain.TicketPriorityMedium, h.tickets.get("old").Priority)
	assert.Equal(t, int64(1), h.rules.byName("stale low").ExecutionCount)
}

func TestScanActionFailuresAreIndependent(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("x", domain.TicketPriorityLow, time.Hour))
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:       "r1",
		Name:     "everything",
		IsActive: true,
		Actions: domain.EscalationActions{
			AssignToAgent:    ptr("ghost"),
			SendNotification: true,
			AutoResponse:     "We are looking into it.",
		},
	}))

	report, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ActionsFailed)
	assert.Equal(t, 0, report.Failed)
	assert.Nil(t, h.tickets.get("x").AgentID)
	assert.Len(t, h.notifications.forTicket("x", domain.NotificationTypeTicket, domain.AudienceAgents), 1)

	replies, err := h.messages.ListByTicket(context.Background(), "x", domain.MessageTypeAutoResponse)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "We are looking into it.", replies[0].Body)
	assert.Equal(t, int64(1), h.rules.byName("everything").ExecutionCount)
}

func TestScanIsolatesTicketFailures(t *testing.T) {
	h := newHarness()
	broken := aged("broken", domain.TicketPriorityHigh, 5*time.Hour)
	broken.Priority = "critical"
	h.seedTicket(broken)
	h.seedTicket(aged("flaky", domain.TicketPriorityLow, 5*time.Hour))
	h.seedTicket(aged("ok", domain.TicketPriorityHigh, 5*time.Hour))
	h.tickets.failUpdate["flaky"] = errStoreDown
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:         "r1",
		Name:       "bump",
		IsActive:   true,
		Conditions: domain.EscalationConditions{TimeThresholdHours: ptr(1.0)},
		Actions:    domain.EscalationActions{ChangePriority: ptr(domain.TicketPriorityUrgent)},
	}))

	report, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Tickets)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ActionsFailed)
	assert.Equal(t, domain.TicketPriorityUrgent, h.tickets.get("ok").Priority)
	assert.Equal(t, domain.TicketPriorityLow, h.tickets.get("flaky").Priority)
	assert.Len(t, h.notifications.forTicket("ok", domain.NotificationTypeSLA, domain.AudienceAgents), 1)
}

func TestScanSkipsInvalidRules(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("x", domain.TicketPriorityLow, time.Hour))
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:         "bad",
		Name:       "bad",
		IsActive:   true,
		Conditions: domain.EscalationConditions{Status: []domain.TicketStatus{"pending"}},
		Actions:    domain.EscalationActions{SendNotification: true},
	}))

	report, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RulesSkipped)
	assert.Equal(t, 0, report.RulesFired)
	assert.Equal(t, int64(0), h.rules.byName("bad").ExecutionCount)
}

func TestScanLooksUpTierOnlyWhenNeeded(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("gold", domain.TicketPriorityLow, time.Hour))
	h.seedTicket(aged("basic", domain.TicketPriorityLow, time.Hour))
	h.tiers.tiers["cust-gold"] = "gold"
	ctx := context.Background()

	_, err := h.scan.ScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, h.tiers.calls)

	require.NoError(t, h.rules.Create(ctx, &domain.EscalationRule{
		ID:         "r1",
		Name:       "gold customers",
		IsActive:   true,
		Conditions: domain.EscalationConditions{CustomerTier: []string{"gold"}},
		Actions:    domain.EscalationActions{ChangePriority: ptr(domain.TicketPriorityHigh)},
	}))
	_, err = h.scan.ScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.tiers.calls)
	assert.Equal(t, domain.TicketPriorityHigh, h.tickets.get("gold").Priority)
	assert.Equal(t, domain.TicketPriorityLow, h.tickets.get("basic").Priority)
}

func TestScanAssignToTeam(t *testing.T) {
	team := "team-1"
	member := agent("M", domain.AgentRoleAgent, domain.AgentStatusActive, 0)
	member.TeamID = &team
	h := newHarness(member)
	h.teams.items[team] = domain.Team{ID: team, Name: "Escalations", IsActive: true}
	h.seedTicket(aged("x", domain.TicketPriorityLow, time.Hour))
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:       "r1",
		Name:     "route to team",
		IsActive: true,
		Actions:  domain.EscalationActions{AssignToTeam: &team},
	}))

	_, err := h.scan.ScanOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, h.tickets.get("x").AgentID)
	assert.Equal(t, "M", *h.tickets.get("x").AgentID)
}

func TestScanAbortsWhenTicketsCannotLoad(t *testing.T) {
	h := newHarness()
	h.tickets.failList = errStoreDown

	_, err := h.scan.ScanOnce(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

// resolvingTiers resolves a ticket through the lifecycle while the scan is
// between its snapshot read and its actions.
type resolvingTiers struct {
	lifecycle *TicketService
	ticketID  string
	err       error
}

func (r *resolvingTiers) GetTier(ctx context.Context, _ string) (string, error) {
	if r.err == nil {
		_, r.err = r.lifecycle.UpdateStatus(ctx, domain.AgentActor("A"), r.ticketID, domain.TicketStatusResolved)
	}
	return "gold", nil
}

func TestScanActionsKeepConcurrentStatusChange(t *testing.T) {
	h := newHarness(agent("A", domain.AgentRoleAgent, domain.AgentStatusActive, 0))
	x := aged("x", domain.TicketPriorityLow, time.Hour)
	x.Status = domain.TicketStatusInProgress
	h.seedTicket(x)
	require.NoError(t, h.rules.Create(context.Background(), &domain.EscalationRule{
		ID:         "r1",
		Name:       "gold customers",
		IsActive:   true,
		Conditions: domain.EscalationConditions{CustomerTier: []string{"gold"}},
		Actions: domain.EscalationActions{
			AssignToAgent:  ptr("A"),
			ChangePriority: ptr(domain.TicketPriorityHigh),
		},
	}))
	tiers := &resolvingTiers{lifecycle: h.lifecycle, ticketID: "x"}

	report, err := h.scanWith(tiers).ScanOnce(context.Background())
	require.NoError(t, err)
	require.NoError(t, tiers.err)
	assert.Equal(t, 0, report.ActionsFailed)

	got := h.tickets.get("x")
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, fixedNow, *got.ResolvedAt)
	assert.Equal(t, domain.TicketPriorityHigh, got.Priority)
	require.NotNil(t, got.AgentID)
	assert.Equal(t, "A", *got.AgentID)

	loads, err := h.load.Loads(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 0, loads["A"], "resolved tickets do not count toward load")
}

func TestScanRulesMatchSnapshotNotEarlierActions(t *testing.T) {
	h := newHarness()
	h.seedTicket(aged("x", domain.TicketPriorityLow, time.Hour))
	ctx := context.Background()
	require.NoError(t, h.rules.Create(ctx, &domain.EscalationRule{
		ID:         "r1",
		Name:       "raise low",
		IsActive:   true,
		Conditions: domain.EscalationConditions{Priority: []domain.TicketPriority{domain.TicketPriorityLow}},
		Actions:    domain.EscalationActions{ChangePriority: ptr(domain.TicketPriorityHigh)},
	}))
	require.NoError(t, h.rules.Create(ctx, &domain.EscalationRule{
		ID:         "r2",
		Name:       "page on high",
		IsActive:   true,
		Conditions: domain.EscalationConditions{Priority: []domain.TicketPriority{domain.TicketPriorityHigh}},
		Actions:    domain.EscalationActions{SendNotification: true},
	}))

	report, err := h.scan.ScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RulesFired)
	assert.Equal(t, domain.TicketPriorityHigh, h.tickets.get("x").Priority)
	assert.Empty(t, h.notifications.forTicket("x", domain.NotificationTypeTicket, domain.AudienceAgents))
	assert.Equal(t, int64(0), h.rules.byName("page on high").ExecutionCount)
}
