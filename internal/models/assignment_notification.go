package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NotificationStatusType string

const (
	NotificationStatusPending  NotificationStatusType = "PENDING"
	NotificationStatusAccepted NotificationStatusType = "ACCEPTED"
	NotificationStatusRejected NotificationStatusType = "REJECTED"
	NotificationStatusTimeout  NotificationStatusType = "TIMEOUT"
	NotificationStatusExpired  NotificationStatusType = "EXPIRED"
)

// ParseNotificationStatus normalizes a wire status into the tagged type.
// The backend historically emitted several ad hoc casings, so parsing is
// case-insensitive; everything downstream works with the typed constants only.
func ParseNotificationStatus(raw string) (NotificationStatusType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(NotificationStatusPending):
		return NotificationStatusPending, nil
	case string(NotificationStatusAccepted):
		return NotificationStatusAccepted, nil
	case string(NotificationStatusRejected):
		return NotificationStatusRejected, nil
	case string(NotificationStatusTimeout):
		return NotificationStatusTimeout, nil
	case string(NotificationStatusExpired):
		return NotificationStatusExpired, nil
	default:
		return "", fmt.Errorf("unknown notification status: %q", raw)
	}
}

// IsTerminal reports whether no further transition is permitted.
func (s NotificationStatusType) IsTerminal() bool {
	return s != NotificationStatusPending
}

// AssignmentNotification is one offer of a property to one agent in one
// escalation round. The backend owns every field; clients hold at most a
// cached, possibly stale copy.
type AssignmentNotification struct {
	ID                uuid.UUID              `json:"id"`
	PropertyID        uuid.UUID              `json:"property_id"`
	AgentID           uuid.UUID              `json:"agent_id"`
	NotificationRound int                    `json:"notification_round"`
	Status            NotificationStatusType `json:"status"`

	SentAt      time.Time  `json:"sent_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	RejectReason *string `json:"reject_reason,omitempty"`

	// Embedded so the desk can render without a second round trip.
	Property PropertySummary `json:"property"`
}

func (n *AssignmentNotification) GetID() string {
	return n.ID.String()
}

// HasPropertySummary reports whether the embedded summary is complete enough
// to render. Items failing this check are dropped by the poller with a warning
// rather than displayed with holes.
func (n *AssignmentNotification) HasPropertySummary() bool {
	return n.Property.Title != "" && n.Property.PropertyType != "" &&
		(n.Property.Price != nil || n.Property.MonthlyRent != nil)
}
