package dto

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// NotificationResponse represents an alert.
type NotificationResponse struct {
	ID        string                      `json:"id"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Type      domain.NotificationType     `json:"type"`
	Audience  domain.NotificationAudience `json:"audience"`
	TicketID  *string                     `json:"ticket_id"`
	IsRead    bool                        `json:"is_read"`
	CreatedAt time.Time                   `json:"created_at"`
}
