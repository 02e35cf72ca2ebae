package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChatSession pairs one agent and one client around one property.
// The desk consumes sessions read-only; there are no cross-session invariants.
type ChatSession struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	AgentID    uuid.UUID `json:"agent_id"`
	ClientID   uuid.UUID `json:"client_id"`

	Messages []ChatMessage `json:"messages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// SortMessages orders the session's messages strictly by timestamp.
func (s *ChatSession) SortMessages() {
	sort.SliceStable(s.Messages, func(i, j int) bool {
		return s.Messages[i].Timestamp.Before(s.Messages[j].Timestamp)
	})
}

// PartitionMessages splits messages into those sent by the viewer and
// those sent by the counterpart, preserving timestamp order.
func (s *ChatSession) PartitionMessages(viewerID uuid.UUID) (mine, theirs []ChatMessage) {
	for _, m := range s.Messages {
		if m.SenderID == viewerID {
			mine = append(mine, m)
		} else {
			theirs = append(theirs, m)
		}
	}
	return mine, theirs
}
