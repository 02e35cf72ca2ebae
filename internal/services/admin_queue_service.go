package services

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/dtos"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

/*
AdminQueueService is the administrative view over the same assignment
records: inspect the in-flight queue, start an assignment by pincode for
an unassigned property, and force-accept on an agent's behalf.

Reads keep the last good result on failure, same as the agent-side
poller. Hiding the force-accept control behind a flag is advisory only;
the server enforces authorization.
*/
type AdminQueueService struct {
	client             api.AdminAPI
	notifier           Notifier
	validate           *validator.Validate
	ForceAcceptEnabled bool

	mu           sync.Mutex
	unassigned   []models.Property
	pendingQueue []models.Assignment
	processing   map[uuid.UUID]struct{}
}

func NewAdminQueueService(client api.AdminAPI, notifier Notifier, forceAcceptEnabled bool) *AdminQueueService {
	return &AdminQueueService{
		client:             client,
		notifier:           notifier,
		validate:           validator.New(),
		ForceAcceptEnabled: forceAcceptEnabled,
		processing:         make(map[uuid.UUID]struct{}),
	}
}

// ListUnassigned fetches properties with no agent assigned yet. On failure
// the previously fetched list is returned alongside the error.
func (s *AdminQueueService) ListUnassigned(ctx context.Context) ([]models.Property, error) {
	properties, err := s.client.ListUnassignedProperties(ctx)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to list unassigned properties, keeping previous view")
		s.notifier.Error("Could not refresh unassigned properties")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.unassigned, err
	}

	s.mu.Lock()
	s.unassigned = properties
	s.mu.Unlock()
	return properties, nil
}

// ListPendingAssignments fetches the in-flight assignment queue across all
// properties and agents, with the same retain-on-error contract.
func (s *AdminQueueService) ListPendingAssignments(ctx context.Context) ([]models.Assignment, error) {
	assignments, err := s.client.ListPendingAssignments(ctx)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to list pending assignments, keeping previous view")
		s.notifier.Error("Could not refresh the assignment queue")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.pendingQueue, err
	}

	s.mu.Lock()
	s.pendingQueue = assignments
	s.mu.Unlock()
	return assignments, nil
}

// AssignByPincode triggers server-side candidate selection for a property.
// The client only supplies the input: the pincode is checked for
// non-emptiness, nothing more.
func (s *AdminQueueService) AssignByPincode(ctx context.Context, propertyID uuid.UUID, pincode string) error {
	req := dtos.AssignByPincodeRequest{Pincode: strings.TrimSpace(pincode)}
	if err := s.validate.Struct(req); err != nil {
		s.notifier.Warn("Pincode is required")
		return utils.ErrInvalidPayload
	}

	if err := s.client.AssignByPincode(ctx, propertyID, req.Pincode); err != nil {
		if api.IsFatalForSession(err) {
			return err
		}
		utils.Logger.WithError(err).Warnf("Assign-by-pincode failed for property %s", propertyID)
		s.notifier.Error("Could not start assignment for this property")
		return err
	}

	s.notifier.Info("Assignment round started")
	return nil
}

// ForceAccept accepts an assignment on behalf of an agent. Same per-id
// in-flight discipline as the agent-side submitter.
func (s *AdminQueueService) ForceAccept(ctx context.Context, assignmentID, agentID uuid.UUID) error {
	s.mu.Lock()
	if _, busy := s.processing[assignmentID]; busy {
		s.mu.Unlock()
		return utils.ErrActionInFlight
	}
	s.processing[assignmentID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.processing, assignmentID)
		s.mu.Unlock()
	}()

	if err := s.client.ForceAccept(ctx, assignmentID, agentID); err != nil {
		if api.IsFatalForSession(err) {
			return err
		}
		if api.IsConflict(err) {
			utils.Logger.Infof("Force-accept conflict for assignment %s: %v", assignmentID, err)
			s.notifier.Warn("This assignment was already resolved, refresh the queue")
			return err
		}
		utils.Logger.WithError(err).Warnf("Force-accept failed for assignment %s", assignmentID)
		s.notifier.Error("Could not force-accept this assignment")
		return err
	}

	s.notifier.Info("Assignment accepted on the agent's behalf")
	return nil
}

// InFlight reports whether a force-accept is outstanding for the id.
func (s *AdminQueueService) InFlight(assignmentID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.processing[assignmentID]
	return busy
}
