package domain

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTypeTicket  NotificationType = "ticket"
	NotificationTypeSLA     NotificationType = "sla"
	NotificationTypePayment NotificationType = "payment"
	NotificationTypeSystem  NotificationType = "system"
)

// Deduplicated reports whether notifications of this type are suppressed
// while an unread one for the same ticket exists.
func (t NotificationType) Deduplicated() bool {
	return t == NotificationTypeTicket || t == NotificationTypeSLA
}

// NotificationAudience selects who sees a notification.
type NotificationAudience string

const (
	AudienceAgents   NotificationAudience = "agents"
	AudienceManagers NotificationAudience = "managers"
)

// Notification is a user-visible alert.
type Notification struct {
	ID        string
	Title     string
	Message   string
	Type      NotificationType
	Audience  NotificationAudience
	TicketID  *string
	IsRead    bool
	CreatedAt time.Time
}
