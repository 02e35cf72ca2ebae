package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is the admin-facing view of one in-flight notification row,
// joined with the targeted agent so the queue renders in one fetch.
type Assignment struct {
	ID                uuid.UUID              `json:"id"`
	PropertyID        uuid.UUID              `json:"property_id"`
	AgentID           uuid.UUID              `json:"agent_id"`
	AgentName         string                 `json:"agent_name"`
	NotificationRound int                    `json:"notification_round"`
	Status            NotificationStatusType `json:"status"`
	SentAt            time.Time              `json:"sent_at"`
	ExpiresAt         time.Time              `json:"expires_at"`

	PropertyTitle   string `json:"property_title"`
	PropertyPincode string `json:"property_pincode"`
}
