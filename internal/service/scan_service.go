package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/escalation"
	"github.com/spec-kit/escalation-engine/internal/observability"
	"github.com/spec-kit/escalation-engine/internal/repository"
	"github.com/spec-kit/escalation-engine/internal/sla"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// TierLookup resolves a customer's tier.
type TierLookup interface {
	GetTier(ctx context.Context, customerID string) (string, error)
}

// ScanReport summarizes one scan cycle.
type ScanReport struct {
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Tickets       int           `json:"tickets"`
	Failed        int           `json:"failed"`
	RulesLoaded   int           `json:"rules_loaded"`
	RulesSkipped  int           `json:"rules_skipped"`
	RulesFired    int           `json:"rules_fired"`
	Breached      int           `json:"breached"`
	AtRisk        int           `json:"at_risk"`
	Emitted       int           `json:"notifications_emitted"`
	Suppressed    int           `json:"notifications_suppressed"`
	ActionsFailed int           `json:"actions_failed"`
}

// ScanService runs the periodic SLA and escalation pass.
type ScanService struct {
	tickets     repository.TicketRepository
	rules       repository.EscalationRuleRepository
	tiers       TierLookup
	lifecycle   *TicketService
	assignment  *AssignmentService
	notifier    *NotificationService
	calculator  *sla.Calculator
	metrics     *observability.Metrics
	logger      *zap.Logger
	concurrency int
	now         func() time.Time

	// running serializes scans triggered by the timer and by hand.
	running sync.Mutex
}

// ScanDependencies bundles collaborators.
type ScanDependencies struct {
	TicketRepo  repository.TicketRepository
	RuleRepo    repository.EscalationRuleRepository
	Tiers       TierLookup
	Lifecycle   *TicketService
	Assignment  *AssignmentService
	Notifier    *NotificationService
	Calculator  *sla.Calculator
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Concurrency int
	Now         func() time.Time
}

// NewScanService creates the service.
func NewScanService(deps ScanDependencies) *ScanService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	calculator := deps.Calculator
	if calculator == nil {
		calculator = sla.NewCalculator(sla.DefaultPolicy())
	}
	return &ScanService{
		tickets:     deps.TicketRepo,
		rules:       deps.RuleRepo,
		tiers:       deps.Tiers,
		lifecycle:   deps.Lifecycle,
		assignment:  deps.Assignment,
		notifier:    deps.Notifier,
		calculator:  calculator,
		metrics:     deps.Metrics,
		logger:      logger,
		concurrency: concurrency,
		now:         now,
	}
}

type scanCounters struct {
	failed, fired, breached, atRisk, emitted, suppressed, actionsFailed atomic.Int64
}

// ScanOnce evaluates every non-terminal ticket. Failures are isolated per
// ticket; only failing to load tickets or rules aborts the cycle. Once
// started, a ticket's evaluation runs to completion even if ctx is
// cancelled; no new tickets are started after cancellation.
func (s *ScanService) ScanOnce(ctx context.Context) (ScanReport, error) {
	s.running.Lock()
	defer s.running.Unlock()

	report := ScanReport{StartedAt: s.now()}
	start := time.Now()

	tickets, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return report, apperrors.MapError(err)
	}
	stored, err := s.rules.ListActive(ctx)
	if err != nil {
		return report, apperrors.MapError(err)
	}
	rules := make([]domain.EscalationRule, 0, len(stored))
	for i := range stored {
		if err := escalation.Validate(&stored[i]); err != nil {
			report.RulesSkipped++
			s.logger.Warn("skipping invalid escalation rule",
				zap.String("rule_id", stored[i].ID),
				zap.String("rule", stored[i].Name),
				zap.Error(err))
			continue
		}
		rules = append(rules, stored[i])
	}
	report.RulesLoaded = len(rules)
	report.Tickets = len(tickets)

	needsTier := false
	for i := range rules {
		if rules[i].Conditions.NeedsCustomerTier() {
			needsTier = true
			break
		}
	}

	var counters scanCounters
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range tickets {
		if ctx.Err() != nil {
			s.logger.Info("scan interrupted", zap.Int("remaining", len(tickets)-i))
			break
		}
		ticket := tickets[i]
		g.Go(func() error {
			tctx := context.WithoutCancel(ctx)
			if err := s.processTicket(tctx, &ticket, rules, needsTier, &counters); err != nil {
				counters.failed.Add(1)
				code := apperrors.Code(err)
				s.metrics.RecordTicketFailure(code)
				s.logger.Warn("scan ticket failed",
					zap.String("ticket_id", ticket.ID),
					zap.String("code", code),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Failed = int(counters.failed.Load())
	report.RulesFired = int(counters.fired.Load())
	report.Breached = int(counters.breached.Load())
	report.AtRisk = int(counters.atRisk.Load())
	report.Emitted = int(counters.emitted.Load())
	report.Suppressed = int(counters.suppressed.Load())
	report.ActionsFailed = int(counters.actionsFailed.Load())
	report.Duration = time.Since(start)

	s.metrics.RecordScan(observability.ScanSummary{
		Tickets:  report.Tickets,
		Breached: report.Breached,
		AtRisk:   report.AtRisk,
		Duration: report.Duration,
		At:       s.now(),
	})
	s.logger.Info("scan completed",
		zap.Int("tickets", report.Tickets),
		zap.Int("failed", report.Failed),
		zap.Int("rules_fired", report.RulesFired),
		zap.Int("breached", report.Breached),
		zap.Int("at_risk", report.AtRisk),
		zap.Int("emitted", report.Emitted),
		zap.Int("suppressed", report.Suppressed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// processTicket computes the SLA snapshot, then applies matching rules,
// then dispatches SLA alerts, in that order.
func (s *ScanService) processTicket(ctx context.Context, ticket *domain.Ticket, rules []domain.EscalationRule, needsTier bool, counters *scanCounters) error {
	now := s.now()
	snapshot, err := s.calculator.EvaluateTicket(ticket, now)
	if err != nil {
		return err
	}

	// Rules match the scan snapshot; actions refresh ticket from the store.
	frozen := *ticket
	tc := escalation.TicketContext{Ticket: &frozen, SLA: snapshot}
	if needsTier && s.tiers != nil {
		tier, err := s.tiers.GetTier(ctx, ticket.CustomerID)
		if err != nil {
			s.logger.Warn("customer tier lookup failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("customer_id", ticket.CustomerID),
				zap.Error(err))
		}
		tc.CustomerTier = tier
	}

	for i := range rules {
		actions, ok := escalation.Evaluate(tc, &rules[i], now)
		if !ok {
			continue
		}
		counters.fired.Add(1)
		s.metrics.RecordRuleFired(rules[i].Name)
		failed := s.applyActions(ctx, ticket, actions, counters)
		counters.actionsFailed.Add(int64(failed))
		if err := s.rules.IncrementExecution(ctx, rules[i].ID, now); err != nil {
			s.logger.Warn("rule execution count not recorded",
				zap.String("rule_id", rules[i].ID),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}

	switch {
	case snapshot.Breached:
		counters.breached.Add(1)
		s.dispatch(ctx, NotificationRequest{
			Type:     domain.NotificationTypeSLA,
			Audience: domain.AudienceAgents,
			TicketID: ticket.ID,
			Title:    "SLA breached: " + ticket.Title,
			Message: fmt.Sprintf("Ticket %s (%s priority) passed its SLA deadline %s",
				ticket.ID, ticket.Priority, snapshot.Deadline.UTC().Format(time.RFC3339)),
		}, counters)
	case snapshot.AtRisk:
		counters.atRisk.Add(1)
		s.dispatch(ctx, NotificationRequest{
			Type:     domain.NotificationTypeSLA,
			Audience: domain.AudienceAgents,
			TicketID: ticket.ID,
			Title:    "SLA at risk: " + ticket.Title,
			Message: fmt.Sprintf("Ticket %s (%s priority) breaches its SLA in %s",
				ticket.ID, ticket.Priority, snapshot.Remaining.Round(time.Minute)),
		}, counters)
	}
	return nil
}

// applyActions runs each action of the set independently and returns the
// number that failed.
func (s *ScanService) applyActions(ctx context.Context, ticket *domain.Ticket, set escalation.ActionSet, counters *scanCounters) int {
	failed := 0
	run := func(action string, fn func() error) {
		if err := fn(); err != nil {
			failed++
			code := apperrors.Code(err)
			s.metrics.RecordActionFailure(action, code)
			s.logger.Warn("escalation action failed",
				zap.String("action", action),
				zap.String("rule_id", set.RuleID),
				zap.String("ticket_id", ticket.ID),
				zap.String("code", code),
				zap.Error(err))
		}
	}

	if set.AssignToAgent != nil {
		run("assign_to_agent", func() error {
			return s.lifecycle.AssignAgent(ctx, domain.SystemActor, ticket, *set.AssignToAgent, set.RuleID)
		})
	}
	if set.AssignToTeam != nil {
		run("assign_to_team", func() error {
			agentID, err := s.assignment.ResolveForTeam(ctx, ticket, *set.AssignToTeam)
			if err != nil {
				return err
			}
			return s.lifecycle.AssignAgent(ctx, domain.SystemActor, ticket, agentID, set.RuleID)
		})
	}
	if set.ChangePriority != nil {
		run("change_priority", func() error {
			return s.lifecycle.SetPriority(ctx, domain.SystemActor, ticket, *set.ChangePriority, set.RuleID)
		})
	}
	if set.SendNotification {
		run("send_notification", func() error {
			return s.dispatchErr(ctx, NotificationRequest{
				Type:     domain.NotificationTypeTicket,
				Audience: domain.AudienceAgents,
				TicketID: ticket.ID,
				Title:    "Escalation: " + set.RuleName,
				Message:  fmt.Sprintf("Rule %q escalated ticket %s: %s", set.RuleName, ticket.ID, ticket.Title),
			}, counters)
		})
	}
	if set.NotifyManagers {
		run("notify_managers", func() error {
			return s.dispatchErr(ctx, NotificationRequest{
				Type:     domain.NotificationTypeTicket,
				Audience: domain.AudienceManagers,
				TicketID: ticket.ID,
				Title:    "Manager attention: " + set.RuleName,
				Message:  fmt.Sprintf("Rule %q requires manager attention on ticket %s: %s", set.RuleName, ticket.ID, ticket.Title),
			}, counters)
		})
	}
	if set.AutoResponse != "" {
		run("auto_response", func() error {
			_, err := s.lifecycle.AddAutoResponse(ctx, ticket, set.RuleID, set.AutoResponse)
			return err
		})
	}
	return failed
}

func (s *ScanService) dispatch(ctx context.Context, req NotificationRequest, counters *scanCounters) {
	if err := s.dispatchErr(ctx, req, counters); err != nil {
		s.logger.Warn("sla notification failed",
			zap.String("ticket_id", req.TicketID),
			zap.String("code", apperrors.Code(err)),
			zap.Error(err))
	}
}

func (s *ScanService) dispatchErr(ctx context.Context, req NotificationRequest, counters *scanCounters) error {
	result, err := s.notifier.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if result == DispatchSuppressed {
		counters.suppressed.Add(1)
	} else {
		counters.emitted.Add(1)
	}
	return nil
}
