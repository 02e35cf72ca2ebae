package sim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

/*
AssignmentService owns the authoritative assignment state machine:

	pending --accept--> accepted      (terminal)
	pending --reject--> rejected      (terminal)
	pending --timeout--> timeout      (terminal, sweep-driven, escalates)
	pending --expire--> expired       (terminal, sweep-driven, rounds exhausted)

Terminal states never revert. Candidate selection is deliberately plain:
agents sharing the property's pincode, in stable order, one per round.
*/
type AssignmentService struct {
	store    Store
	notifier *OfferNotifier
}

func NewAssignmentService(store Store, notifier *OfferNotifier) *AssignmentService {
	return &AssignmentService{store: store, notifier: notifier}
}

// PendingForAgent returns the agent's outstanding offers.
func (s *AssignmentService) PendingForAgent(ctx context.Context, agentID uuid.UUID) ([]*models.AssignmentNotification, error) {
	return s.store.ListPendingByAgent(ctx, agentID)
}

// Accept records the agent's acceptance and assigns the property.
func (s *AssignmentService) Accept(ctx context.Context, agentID, notificationID uuid.UUID) error {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return utils.ErrAssignmentNotFound
	}
	if n.AgentID != agentID {
		return utils.ErrUnauthorized
	}
	if n.Status.IsTerminal() {
		return utils.ErrAlreadyResponded
	}
	now := time.Now().UTC()
	if now.After(n.ExpiresAt) {
		// The sweep owns the pending -> timeout/expired transition; the
		// accept path only refuses.
		return utils.ErrAssignmentExpired
	}

	if _, err := s.store.RespondAtomic(ctx, notificationID, models.NotificationStatusAccepted, utils.Ptr(now), nil); err != nil {
		return err
	}
	if err := s.store.SetPropertyAgentAtomic(ctx, n.PropertyID, agentID); err != nil {
		utils.Logger.WithError(err).Warnf("Accept recorded but property %s could not be assigned", n.PropertyID)
	}
	utils.Logger.Infof("Agent %s accepted assignment %s (round %d)", agentID, notificationID, n.NotificationRound)
	return nil
}

// Reject records the agent's rejection with an optional reason. The next
// escalation round starts immediately rather than waiting for the sweep.
func (s *AssignmentService) Reject(ctx context.Context, agentID, notificationID uuid.UUID, reason string) error {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return utils.ErrAssignmentNotFound
	}
	if n.AgentID != agentID {
		return utils.ErrUnauthorized
	}
	if n.Status.IsTerminal() {
		return utils.ErrAlreadyResponded
	}
	now := time.Now().UTC()
	if now.After(n.ExpiresAt) {
		return utils.ErrAssignmentExpired
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = utils.Ptr(reason)
	}
	if _, err := s.store.RespondAtomic(ctx, notificationID, models.NotificationStatusRejected, utils.Ptr(now), reasonPtr); err != nil {
		return err
	}
	utils.Logger.Infof("Agent %s rejected assignment %s (round %d)", agentID, notificationID, n.NotificationRound)

	s.escalate(ctx, n, now)
	return nil
}

// ForceAccept accepts on the agent's behalf. Being an administrative
// override it ignores the response window, but the terminal-state rule
// still holds.
func (s *AssignmentService) ForceAccept(ctx context.Context, notificationID, agentID uuid.UUID) error {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return utils.ErrAssignmentNotFound
	}
	if n.AgentID != agentID {
		return utils.ErrInvalidPayload
	}
	if n.Status.IsTerminal() {
		return utils.ErrAlreadyResponded
	}

	now := time.Now().UTC()
	if _, err := s.store.RespondAtomic(ctx, notificationID, models.NotificationStatusAccepted, utils.Ptr(now), nil); err != nil {
		return err
	}
	if err := s.store.SetPropertyAgentAtomic(ctx, n.PropertyID, agentID); err != nil {
		utils.Logger.WithError(err).Warnf("Force-accept recorded but property %s could not be assigned", n.PropertyID)
	}
	utils.Logger.Infof("Admin force-accepted assignment %s for agent %s", notificationID, agentID)
	return nil
}

// StartAssignment begins round 1 for an unassigned property, selecting
// candidates by pincode.
func (s *AssignmentService) StartAssignment(ctx context.Context, propertyID uuid.UUID, pincode string) error {
	prop, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	if prop == nil {
		return utils.ErrPropertyNotFound
	}
	if prop.AgentID != nil {
		return utils.ErrAlreadyAssigned
	}

	inFlight, err := s.store.ListByProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	for _, n := range inFlight {
		if n.Status == models.NotificationStatusPending {
			return utils.ErrAlreadyAssigned
		}
	}

	candidates, err := s.store.ListAgentsByPincode(ctx, pincode)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return utils.ErrNoCandidateAgents
	}

	return s.offer(ctx, prop, candidates[0], 1)
}

// UnassignedProperties lists properties with no agent yet.
func (s *AssignmentService) UnassignedProperties(ctx context.Context) ([]models.Property, error) {
	return s.store.ListUnassignedProperties(ctx)
}

// PendingQueue returns the admin view of every in-flight notification,
// joined with agent and property display fields.
func (s *AssignmentService) PendingQueue(ctx context.Context) ([]models.Assignment, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Assignment, 0, len(pending))
	for _, n := range pending {
		row := models.Assignment{
			ID:                n.ID,
			PropertyID:        n.PropertyID,
			AgentID:           n.AgentID,
			NotificationRound: n.NotificationRound,
			Status:            n.Status,
			SentAt:            n.SentAt,
			ExpiresAt:         n.ExpiresAt,
			PropertyTitle:     n.Property.Title,
			PropertyPincode:   n.Property.Pincode,
		}
		if agent, aErr := s.store.GetAgent(ctx, n.AgentID); aErr == nil && agent != nil {
			row.AgentName = agent.Name
		}
		out = append(out, row)
	}
	return out, nil
}

/*
RunEscalationCheck scans for pending offers past their response window.
Each one transitions to TIMEOUT and the next candidate gets a fresh
round — unless the round budget or candidate pool is exhausted, in which
case the offer dies as EXPIRED and the property surfaces back on the
unassigned list.
*/
func (s *AssignmentService) RunEscalationCheck(ctx context.Context) error {
	utils.Logger.Debug("Running assignment escalation checks...")

	now := time.Now().UTC()
	overdue, err := s.store.ListPendingExpired(ctx, now)
	if err != nil {
		return err
	}

	for _, n := range overdue {
		next := s.nextCandidate(ctx, n)
		newStatus := models.NotificationStatusTimeout
		if next == nil || n.NotificationRound >= constants.MaxNotificationRounds {
			newStatus = models.NotificationStatusExpired
		}

		if _, err := s.store.RespondAtomic(ctx, n.ID, newStatus, nil, nil); err != nil {
			utils.Logger.WithError(err).Warnf("Escalation sweep could not close notification %s", n.ID)
			continue
		}

		if newStatus == models.NotificationStatusExpired {
			utils.Logger.Infof("Assignment for property %s expired after %d round(s)", n.PropertyID, n.NotificationRound)
			continue
		}

		prop, pErr := s.store.GetProperty(ctx, n.PropertyID)
		if pErr != nil || prop == nil || prop.AgentID != nil {
			continue
		}
		if err := s.offer(ctx, prop, next, n.NotificationRound+1); err != nil {
			utils.Logger.WithError(err).Warnf("Failed to open round %d for property %s", n.NotificationRound+1, n.PropertyID)
		}
	}
	return nil
}

// escalate opens the next round right after a rejection, following the
// same rules as the timeout sweep.
func (s *AssignmentService) escalate(ctx context.Context, n *models.AssignmentNotification, _ time.Time) {
	if n.NotificationRound >= constants.MaxNotificationRounds {
		utils.Logger.Infof("No further rounds for property %s after rejection", n.PropertyID)
		return
	}
	next := s.nextCandidate(ctx, n)
	if next == nil {
		utils.Logger.Infof("No remaining candidates for property %s after rejection", n.PropertyID)
		return
	}
	prop, err := s.store.GetProperty(ctx, n.PropertyID)
	if err != nil || prop == nil || prop.AgentID != nil {
		return
	}
	if err := s.offer(ctx, prop, next, n.NotificationRound+1); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to open round %d for property %s", n.NotificationRound+1, n.PropertyID)
	}
}

// nextCandidate picks the first agent in the property's pincode that has
// not been offered this property yet.
func (s *AssignmentService) nextCandidate(ctx context.Context, n *models.AssignmentNotification) *models.Agent {
	candidates, err := s.store.ListAgentsByPincode(ctx, n.Property.Pincode)
	if err != nil {
		utils.Logger.WithError(err).Warn("Candidate lookup failed")
		return nil
	}
	history, err := s.store.ListByProperty(ctx, n.PropertyID)
	if err != nil {
		utils.Logger.WithError(err).Warn("Notification history lookup failed")
		return nil
	}
	offered := make(map[uuid.UUID]struct{}, len(history))
	for _, h := range history {
		offered[h.AgentID] = struct{}{}
	}
	for _, c := range candidates {
		if _, seen := offered[c.ID]; !seen {
			return c
		}
	}
	return nil
}

func (s *AssignmentService) offer(ctx context.Context, prop *models.Property, agent *models.Agent, round int) error {
	now := time.Now().UTC()
	n := &models.AssignmentNotification{
		ID:                uuid.New(),
		PropertyID:        prop.ID,
		AgentID:           agent.ID,
		NotificationRound: round,
		Status:            models.NotificationStatusPending,
		SentAt:            now,
		ExpiresAt:         now.Add(constants.OfferResponseWindow),
		Property:          prop.Summary(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyOffer(agent, n)
	}
	return nil
}
