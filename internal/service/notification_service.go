package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/config"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/events"
	"github.com/spec-kit/escalation-engine/internal/observability"
	"github.com/spec-kit/escalation-engine/internal/repository"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// DispatchResult reports whether a notification was written.
type DispatchResult string

const (
	DispatchEmitted    DispatchResult = "emitted"
	DispatchSuppressed DispatchResult = "suppressed"
)

// NotificationRequest describes an alert to dispatch.
type NotificationRequest struct {
	Type     domain.NotificationType
	Audience domain.NotificationAudience
	TicketID string
	Title    string
	Message  string
}

// NotificationService writes deduplicated alerts and forwards domain events
// to the outbound messaging stubs.
type NotificationService struct {
	repo    repository.NotificationRepository
	metrics *observability.Metrics
	logger  *zap.Logger
	cfg     config.NotificationConfig

	// mu serializes the unread check with the insert.
	mu sync.Mutex
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Repo    repository.NotificationRepository
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Config  config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:    deps.Repo,
		metrics: deps.Metrics,
		logger:  logger,
		cfg:     deps.Config,
	}
}

// Dispatch writes a notification unless an unread one for the same ticket
// already exists, for any audience. Only ticket and sla notifications are
// deduplicated.
func (n *NotificationService) Dispatch(ctx context.Context, req NotificationRequest) (DispatchResult, error) {
	if !validNotificationType(req.Type) {
		return "", apperrors.NewValidationError("invalid notification type", map[string]any{"type": req.Type})
	}
	if strings.TrimSpace(req.Title) == "" {
		return "", apperrors.NewValidationError("notification title required", nil)
	}
	if req.Audience == "" {
		req.Audience = domain.AudienceAgents
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if req.Type.Deduplicated() && req.TicketID != "" {
		unread, err := n.repo.ListUnread(ctx)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if hasUnreadFor(unread, req.TicketID) {
			n.metrics.RecordNotification(string(req.Type), string(DispatchSuppressed))
			n.logger.Debug("notification suppressed",
				zap.String("ticket_id", req.TicketID),
				zap.String("audience", string(req.Audience)))
			return DispatchSuppressed, nil
		}
	}

	notification := &domain.Notification{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Message:  req.Message,
		Type:     req.Type,
		Audience: req.Audience,
	}
	if req.TicketID != "" {
		ticketID := req.TicketID
		notification.TicketID = &ticketID
	}
	if err := n.repo.Create(ctx, notification); err != nil {
		return "", apperrors.MapError(err)
	}
	n.metrics.RecordNotification(string(req.Type), string(DispatchEmitted))
	n.logger.Info("notification emitted",
		zap.String("notification_id", notification.ID),
		zap.String("ticket_id", req.TicketID),
		zap.String("type", string(req.Type)),
		zap.String("audience", string(req.Audience)))
	return DispatchEmitted, nil
}

// List returns notifications newest first.
func (n *NotificationService) List(ctx context.Context, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := n.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// MarkRead acknowledges a notification, reopening dedup for its ticket.
func (n *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := n.repo.MarkRead(ctx, id); err != nil {
		return apperrors.StoreError(err, "notification", map[string]any{"notification_id": id})
	}
	return nil
}

// hasUnreadFor reports whether any unread notification references ticketID,
// whatever its audience.
func hasUnreadFor(unread []domain.Notification, ticketID string) bool {
	for _, existing := range unread {
		if existing.IsRead {
			continue
		}
		if existing.TicketID != nil && *existing.TicketID == ticketID {
			return true
		}
		if strings.Contains(existing.Message, ticketID) {
			return true
		}
	}
	return false
}

func validNotificationType(t domain.NotificationType) bool {
	switch t {
	case domain.NotificationTypeTicket, domain.NotificationTypeSLA,
		domain.NotificationTypePayment, domain.NotificationTypeSystem:
		return true
	}
	return false
}

// HandleTicketEvent forwards a lifecycle event to the webhook.
func (n *NotificationService) HandleTicketEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.deliverWebhook(ctx, event)
	return nil
}

// HandleAutoResponse forwards an auto-response to the customer by email.
func (n *NotificationService) HandleAutoResponse(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.deliverEmail(ctx, event)
	return nil
}

func (n *NotificationService) deliverEmail(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email delivery stubbed",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) deliverWebhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook delivery stubbed",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
