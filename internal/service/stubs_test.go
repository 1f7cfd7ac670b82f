package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/persistence"
	"github.com/spec-kit/escalation-engine/internal/repository"
	"github.com/spec-kit/escalation-engine/internal/sla"
)

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

var errStoreDown = errors.New("connection refused")

type memTickets struct {
	mu         sync.Mutex
	items      map[string]domain.Ticket
	order      []string
	failUpdate map[string]error
	failList   error
}

func newMemTickets(seed ...domain.Ticket) *memTickets {
	m := &memTickets{items: map[string]domain.Ticket{}, failUpdate: map[string]error{}}
	for _, t := range seed {
		m.put(t)
	}
	return m
}

func (m *memTickets) put(t domain.Ticket) {
	if _, ok := m.items[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.items[t.ID] = t
}

func (m *memTickets) get(id string) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = fixedNow
	}
	t.UpdatedAt = fixedNow
	m.put(*t)
	return nil
}

func (m *memTickets) Update(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[t.ID]; err != nil {
		return err
	}
	if _, ok := m.items[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = fixedNow
	m.items[t.ID] = *t
	return nil
}

func (m *memTickets) UpdatePriority(_ context.Context, id string, priority domain.TicketPriority) (*domain.Ticket, error) {
	return m.patch(id, func(t *domain.Ticket) { t.Priority = priority })
}

func (m *memTickets) UpdateAgent(_ context.Context, id, agentID string) (*domain.Ticket, error) {
	return m.patch(id, func(t *domain.Ticket) { t.AgentID = &agentID })
}

func (m *memTickets) patch(id string, apply func(*domain.Ticket)) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return nil, err
	}
	t, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	apply(&t)
	t.UpdatedAt = fixedNow
	m.items[id] = t
	return &t, nil
}

func (m *memTickets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.items, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var out []domain.Ticket
	for _, id := range m.order {
		if t := m.items[id]; !t.Status.IsTerminal() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTickets) ListWithFilter(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, id := range m.order {
		t := m.items[id]
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
			continue
		}
		if f.AgentID != nil && (t.AgentID == nil || *t.AgentID != *f.AgentID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTickets) CountOpenByAgent(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, t := range m.items {
		if t.CountsTowardLoad() {
			counts[*t.AgentID]++
		}
	}
	return counts, nil
}

type memAgents struct {
	mu       sync.Mutex
	items    []domain.Agent
	resolved map[string]int
}

func newMemAgents(agents ...domain.Agent) *memAgents {
	return &memAgents{items: agents, resolved: map[string]int{}}
}

func (m *memAgents) Create(_ context.Context, a *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *a)
	return nil
}

func (m *memAgents) UpdateStatus(_ context.Context, id string, status domain.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memAgents) IncrementResolved(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved[id]++
	return nil
}

func (m *memAgents) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAgents) List(_ context.Context, f repository.AgentFilter) ([]domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Agent
	for _, a := range m.items {
		if f.TeamID != nil && (a.TeamID == nil || *a.TeamID != *f.TeamID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type memTeams struct {
	items map[string]domain.Team
}

func (m *memTeams) Create(_ context.Context, t *domain.Team) error {
	m.items[t.ID] = *t
	return nil
}

func (m *memTeams) GetByID(_ context.Context, id string) (*domain.Team, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

type memMessages struct {
	mu    sync.Mutex
	items []domain.TicketMessage
}

func (m *memMessages) Create(_ context.Context, msg *domain.TicketMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = "msg-" + strconv.Itoa(len(m.items)+1)
	msg.CreatedAt = fixedNow
	m.items = append(m.items, *msg)
	return nil
}

func (m *memMessages) ListByTicket(_ context.Context, ticketID string, types ...domain.TicketMessageType) ([]domain.TicketMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketMessage
	for _, msg := range m.items {
		if msg.TicketID != ticketID {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, msg.MessageType) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

type memHistory struct {
	mu    sync.Mutex
	items []domain.TicketHistory
}

func (m *memHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = "hist-" + strconv.Itoa(len(m.items)+1)
	h.CreatedAt = fixedNow
	m.items = append(m.items, *h)
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range m.items {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memDependencies struct {
	mu    sync.Mutex
	items []domain.TicketDependency
}

func (m *memDependencies) Create(_ context.Context, d *domain.TicketDependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = "dep-" + strconv.Itoa(len(m.items)+1)
	d.CreatedAt = fixedNow
	m.items = append(m.items, *d)
	return nil
}

func (m *memDependencies) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketDependency
	for _, d := range m.items {
		if d.SourceTicketID == ticketID || d.TargetTicketID == ticketID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memRules struct {
	mu    sync.Mutex
	items []domain.EscalationRule
}

func (m *memRules) Create(_ context.Context, r *domain.EscalationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *r)
	return nil
}

func (m *memRules) Update(_ context.Context, r *domain.EscalationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == r.ID {
			m.items[i] = *r
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) GetByID(_ context.Context, id string) (*domain.EscalationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memRules) GetByName(_ context.Context, name string) (*domain.EscalationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memRules) List(_ context.Context) ([]domain.EscalationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items), nil
}

func (m *memRules) ListActive(_ context.Context) ([]domain.EscalationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EscalationRule
	for _, r := range m.items {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRules) IncrementExecution(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].ExecutionCount++
			m.items[i].LastExecuted = &at
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) byName(name string) domain.EscalationRule {
	r, _ := m.GetByName(context.Background(), name)
	return *r
}

type memNotifications struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = fixedNow
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotifications) ListUnread(_ context.Context) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) List(_ context.Context, _, _ int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items), nil
}

func (m *memNotifications) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memNotifications) unreadFor(ticketID string) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if !n.IsRead && n.TicketID != nil && *n.TicketID == ticketID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memNotifications) forTicket(ticketID string, kind domain.NotificationType, audience domain.NotificationAudience) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if n.TicketID != nil && *n.TicketID == ticketID && n.Type == kind && n.Audience == audience {
			out = append(out, n)
		}
	}
	return out
}

type countingTiers struct {
	mu    sync.Mutex
	tiers map[string]string
	calls int
}

func (c *countingTiers) GetTier(_ context.Context, customerID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.tiers[customerID], nil
}

// harness wires every service over in-memory stores.
type harness struct {
	tickets       *memTickets
	agents        *memAgents
	teams         *memTeams
	messages      *memMessages
	history       *memHistory
	dependencies  *memDependencies
	rules         *memRules
	notifications *memNotifications
	tiers         *countingTiers
	load          *persistence.MemoryAgentLoad

	assignment *AssignmentService
	lifecycle  *TicketService
	notifier   *NotificationService
	scan       *ScanService
}

func newHarness(agents ...domain.Agent) *harness {
	h := &harness{
		tickets:       newMemTickets(),
		agents:        newMemAgents(agents...),
		teams:         &memTeams{items: map[string]domain.Team{}},
		messages:      &memMessages{},
		history:       &memHistory{},
		dependencies:  &memDependencies{},
		rules:         &memRules{},
		notifications: &memNotifications{},
		tiers:         &countingTiers{tiers: map[string]string{}},
		load:          persistence.NewMemoryAgentLoad(),
	}
	logger := zap.NewNop()
	calc := sla.NewCalculator(sla.DefaultPolicy())
	h.assignment = NewAssignmentService(AssignmentDependencies{
		AgentRepo:   h.agents,
		TeamRepo:    h.teams,
		TicketRepo:  h.tickets,
		LoadTracker: h.load,
		Logger:      logger,
	})
	h.lifecycle = NewTicketService(TicketDependencies{
		TicketRepo:     h.tickets,
		MessageRepo:    h.messages,
		HistoryRepo:    h.history,
		DependencyRepo: h.dependencies,
		AgentRepo:      h.agents,
		Assignment:     h.assignment,
		Calculator:     calc,
		Logger:         logger,
		Now:            clock,
	})
	h.notifier = NewNotificationService(NotificationDependencies{
		Repo:   h.notifications,
		Logger: logger,
	})
	h.scan = h.scanWith(h.tiers)
	return h
}

// scanWith builds a scan service over the harness stores with its own tier
// lookup.
func (h *harness) scanWith(tiers TierLookup) *ScanService {
	return NewScanService(ScanDependencies{
		TicketRepo:  h.tickets,
		RuleRepo:    h.rules,
		Tiers:       tiers,
		Lifecycle:   h.lifecycle,
		Assignment:  h.assignment,
		Notifier:    h.notifier,
		Calculator:  sla.NewCalculator(sla.DefaultPolicy()),
		Logger:      zap.NewNop(),
		Concurrency: 4,
		Now:         clock,
	})
}

func (h *harness) seedTicket(t domain.Ticket) {
	h.tickets.mu.Lock()
	defer h.tickets.mu.Unlock()
	h.tickets.put(t)
}
