package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/models"
)

/*
NotificationDTO is the wire shape of one pending-assignment notification as
returned by GET /api/v1/agent/pending-assignments. Status arrives as a raw
string and is normalized into the tagged type exactly once, at this boundary.
*/
type NotificationDTO struct {
	ID                uuid.UUID  `json:"id"`
	PropertyID        uuid.UUID  `json:"property_id"`
	AgentID           uuid.UUID  `json:"agent_id"`
	NotificationRound int        `json:"notification_round"`
	Status            string     `json:"status"`
	SentAt            time.Time  `json:"sent_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	RespondedAt       *time.Time `json:"responded_at,omitempty"`
	RejectReason      *string    `json:"reject_reason,omitempty"`

	Property models.PropertySummary `json:"property"`
}

// ToModel normalizes the wire DTO into the domain model.
func (d *NotificationDTO) ToModel() (*models.AssignmentNotification, error) {
	status, err := models.ParseNotificationStatus(d.Status)
	if err != nil {
		return nil, err
	}
	return &models.AssignmentNotification{
		ID:                d.ID,
		PropertyID:        d.PropertyID,
		AgentID:           d.AgentID,
		NotificationRound: d.NotificationRound,
		Status:            status,
		SentAt:            d.SentAt,
		ExpiresAt:         d.ExpiresAt,
		RespondedAt:       d.RespondedAt,
		RejectReason:      d.RejectReason,
		Property:          d.Property,
	}, nil
}

// NewNotificationDTO builds the wire DTO from a domain notification.
func NewNotificationDTO(n *models.AssignmentNotification) NotificationDTO {
	return NotificationDTO{
		ID:                n.ID,
		PropertyID:        n.PropertyID,
		AgentID:           n.AgentID,
		NotificationRound: n.NotificationRound,
		Status:            string(n.Status),
		SentAt:            n.SentAt,
		ExpiresAt:         n.ExpiresAt,
		RespondedAt:       n.RespondedAt,
		RejectReason:      n.RejectReason,
		Property:          n.Property,
	}
}

type PendingAssignmentsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
}

type RejectRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

/*
ActionResponse is returned by the accept/reject/force-accept endpoints.
Conflicts carry the failure code in Error alongside a non-200 status.
*/
type ActionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
