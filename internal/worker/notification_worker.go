package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/events"
	"github.com/spec-kit/escalation-engine/internal/service"
)

// webhookEvents are forwarded to the outbound webhook.
var webhookEvents = []events.EventType{
	events.EventTicketCreated,
	events.EventTicketStatusChanged,
	events.EventTicketAssigned,
	events.EventTicketEscalated,
	events.EventTicketMerged,
}

// StartNotificationWorker subscribes the notification service to lifecycle
// events. Auto-responses go out by email; the rest go to the webhook.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, logger *zap.Logger) {
	if dispatcher == nil || notifications == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, eventType := range webhookEvents {
		dispatcher.Subscribe(eventType, notifications.HandleTicketEvent)
	}
	dispatcher.Subscribe(events.EventAutoResponse, notifications.HandleAutoResponse)
	logger.Info("notification worker subscribed",
		zap.Int("webhook_events", len(webhookEvents)),
		zap.String("email_event", string(events.EventAutoResponse)))
}
