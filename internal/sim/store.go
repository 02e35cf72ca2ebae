package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

// Store is the simulator's persistence boundary. The production system
// keeps these rows in a relational database; the simulator only needs the
// same atomicity guarantees in memory.
type Store interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListUnassignedProperties(ctx context.Context) ([]models.Property, error)
	SetPropertyAgentAtomic(ctx context.Context, propertyID, agentID uuid.UUID) error

	CreateAgent(ctx context.Context, a *models.Agent) error
	GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListAgentsByPincode(ctx context.Context, pincode string) ([]*models.Agent, error)

	CreateNotification(ctx context.Context, n *models.AssignmentNotification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*models.AssignmentNotification, error)
	ListPendingByAgent(ctx context.Context, agentID uuid.UUID) ([]*models.AssignmentNotification, error)
	ListPending(ctx context.Context) ([]*models.AssignmentNotification, error)
	ListPendingExpired(ctx context.Context, now time.Time) ([]*models.AssignmentNotification, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.AssignmentNotification, error)

	// RespondAtomic transitions PENDING -> newStatus. It is the single
	// mutation path for notification status, which is how the monotonic
	// terminal-state invariant is enforced: a row that is already terminal
	// comes back with ErrAlreadyResponded and is never overwritten.
	RespondAtomic(ctx context.Context, id uuid.UUID, newStatus models.NotificationStatusType, respondedAt *time.Time, reason *string) (*models.AssignmentNotification, error)
}

type memoryStore struct {
	mu            sync.RWMutex
	properties    map[uuid.UUID]*models.Property
	agents        map[uuid.UUID]*models.Agent
	notifications map[uuid.UUID]*models.AssignmentNotification
}

func NewMemoryStore() Store {
	return &memoryStore{
		properties:    make(map[uuid.UUID]*models.Property),
		agents:        make(map[uuid.UUID]*models.Agent),
		notifications: make(map[uuid.UUID]*models.AssignmentNotification),
	}
}

func (s *memoryStore) CreateProperty(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.properties[p.ID] = &cp
	return nil
}

func (s *memoryStore) GetProperty(_ context.Context, id uuid.UUID) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) ListUnassignedProperties(_ context.Context) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Property
	for _, p := range s.properties {
		if p.AgentID == nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memoryStore) SetPropertyAgentAtomic(_ context.Context, propertyID, agentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[propertyID]
	if !ok {
		return utils.ErrPropertyNotFound
	}
	if p.AgentID != nil {
		return utils.ErrAlreadyAssigned
	}
	p.AgentID = utils.Ptr(agentID)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryStore) CreateAgent(_ context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *memoryStore) GetAgent(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// ListAgentsByPincode returns candidates ordered by creation time then id,
// so round-robin escalation is deterministic.
func (s *memoryStore) ListAgentsByPincode(_ context.Context, pincode string) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Agent
	for _, a := range s.agents {
		if a.Pincode == pincode {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *memoryStore) CreateNotification(_ context.Context, n *models.AssignmentNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *memoryStore) GetNotification(_ context.Context, id uuid.UUID) (*models.AssignmentNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *memoryStore) ListPendingByAgent(_ context.Context, agentID uuid.UUID) ([]*models.AssignmentNotification, error) {
	return s.listPendingWhere(func(n *models.AssignmentNotification) bool {
		return n.AgentID == agentID
	})
}

func (s *memoryStore) ListPending(_ context.Context) ([]*models.AssignmentNotification, error) {
	return s.listPendingWhere(func(*models.AssignmentNotification) bool { return true })
}

func (s *memoryStore) ListPendingExpired(_ context.Context, now time.Time) ([]*models.AssignmentNotification, error) {
	return s.listPendingWhere(func(n *models.AssignmentNotification) bool {
		return now.After(n.ExpiresAt)
	})
}

func (s *memoryStore) ListByProperty(_ context.Context, propertyID uuid.UUID) ([]*models.AssignmentNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AssignmentNotification
	for _, n := range s.notifications {
		if n.PropertyID == propertyID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NotificationRound < out[j].NotificationRound
	})
	return out, nil
}

func (s *memoryStore) listPendingWhere(match func(*models.AssignmentNotification) bool) ([]*models.AssignmentNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AssignmentNotification
	for _, n := range s.notifications {
		if n.Status == models.NotificationStatusPending && match(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

func (s *memoryStore) RespondAtomic(
	_ context.Context,
	id uuid.UUID,
	newStatus models.NotificationStatusType,
	respondedAt *time.Time,
	reason *string,
) (*models.AssignmentNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, utils.ErrAssignmentNotFound
	}
	if n.Status.IsTerminal() {
		cp := *n
		return &cp, utils.ErrAlreadyResponded
	}
	n.Status = newStatus
	n.RespondedAt = respondedAt
	if reason != nil {
		n.RejectReason = reason
	}
	cp := *n
	return &cp, nil
}
