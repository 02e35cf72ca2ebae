package services

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/dtos"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

// ReconcileState tags one notification's position in the two-phase
// accept/reject flow: a tentative local mutation first, then authoritative
// confirmation (or rollback) once the server and a follow-up poll agree.
type ReconcileState string

const (
	ReconcilePending    ReconcileState = "PENDING"
	ReconcileConfirmed  ReconcileState = "CONFIRMED"
	ReconcileRolledBack ReconcileState = "ROLLED_BACK"
)

/*
ResponseSubmitter sends an agent's accept/reject decision for one
notification and reconciles local state with the server afterwards.

Per-id discipline: at most one network action may be in flight for a given
notification id. A second invocation for the same id while the first is
outstanding fails fast with ErrActionInFlight, which is also how the desk
keeps both controls disabled for that id.
*/
type ResponseSubmitter struct {
	client   api.AgentAPI
	poller   *NotificationPoller
	notifier Notifier
	validate *validator.Validate

	mu         sync.Mutex
	processing map[uuid.UUID]ReconcileState
}

func NewResponseSubmitter(client api.AgentAPI, poller *NotificationPoller, notifier Notifier) *ResponseSubmitter {
	return &ResponseSubmitter{
		client:     client,
		poller:     poller,
		notifier:   notifier,
		validate:   validator.New(),
		processing: make(map[uuid.UUID]ReconcileState),
	}
}

// Accept submits an accept decision for one notification.
func (s *ResponseSubmitter) Accept(ctx context.Context, notificationID uuid.UUID) error {
	return s.submit(ctx, notificationID, func(ctx context.Context) error {
		return s.client.Accept(ctx, notificationID)
	}, "accept")
}

// Reject submits a reject decision with an optional free-text reason.
func (s *ResponseSubmitter) Reject(ctx context.Context, notificationID uuid.UUID, reason string) error {
	req := dtos.RejectRequest{Reason: reason}
	if err := s.validate.Struct(req); err != nil {
		s.notifier.Warn("Reject reason is too long")
		return utils.ErrInvalidPayload
	}
	return s.submit(ctx, notificationID, func(ctx context.Context) error {
		return s.client.Reject(ctx, notificationID, reason)
	}, "reject")
}

// State reports the reconcile state for an id, if any action is or was
// recently in flight for it.
func (s *ResponseSubmitter) State(notificationID uuid.UUID) (ReconcileState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.processing[notificationID]
	return st, ok
}

// InFlight reports whether an action is currently outstanding for the id;
// the desk disables both controls for the id while this is true.
func (s *ResponseSubmitter) InFlight(notificationID uuid.UUID) bool {
	st, ok := s.State(notificationID)
	return ok && st == ReconcilePending
}

func (s *ResponseSubmitter) submit(
	ctx context.Context,
	notificationID uuid.UUID,
	call func(context.Context) error,
	action string,
) error {
	s.mu.Lock()
	if st, ok := s.processing[notificationID]; ok && st == ReconcilePending {
		s.mu.Unlock()
		return utils.ErrActionInFlight
	}
	s.processing[notificationID] = ReconcilePending
	s.mu.Unlock()

	// Phase one: optimistic removal. The suppression also shields the id
	// from any poll landing mid-flight, so the item cannot reappear and
	// then vanish again.
	removed := s.poller.Suppress(notificationID)

	err := call(ctx)
	switch {
	case err == nil:
		s.setState(notificationID, ReconcileConfirmed)
		s.reconcile(ctx, notificationID)
		return nil

	case errors.Is(err, utils.ErrAlreadyResponded):
		// Someone or something else resolved it. The optimistic removal
		// already matches reality; refresh and drop silently.
		utils.Logger.Infof("Assignment %s was already resolved elsewhere", notificationID)
		s.setState(notificationID, ReconcileConfirmed)
		s.reconcile(ctx, notificationID)
		return err

	case errors.Is(err, utils.ErrAssignmentExpired):
		// The server refused because the response window passed. The item
		// stays visible, marked expired, until a poll confirms it is no
		// longer pending; only that confirmation removes it.
		s.notifier.Warn(constants.ErrMsgAssignmentExpired)
		s.poller.Release(notificationID)
		s.poller.Reinstate(removed)
		s.setState(notificationID, ReconcileRolledBack)
		s.backgroundPoll(ctx, notificationID)
		return err

	case api.IsFatalForSession(err):
		s.poller.Release(notificationID)
		s.poller.Reinstate(removed)
		s.clearState(notificationID)
		return err

	default:
		// Transport or unexpected server failure: retryable. Roll the item
		// back and re-enable its controls so the agent can click again.
		utils.Logger.WithError(err).Warnf("Failed to %s assignment %s", action, notificationID)
		s.notifier.Error("Could not submit your response, please retry")
		s.poller.Release(notificationID)
		s.poller.Reinstate(removed)
		s.setState(notificationID, ReconcileRolledBack)
		return err
	}
}

// reconcile confirms the optimistic removal against a fresh poll, then
// releases the suppression for the id.
func (s *ResponseSubmitter) reconcile(ctx context.Context, notificationID uuid.UUID) {
	_ = s.poller.PollOnce(ctx)
	s.poller.Release(notificationID)
	s.clearState(notificationID)
}

// backgroundPoll refreshes without holding the caller; used after an
// expired-conflict rollback so the next snapshot can confirm the terminal
// status.
func (s *ResponseSubmitter) backgroundPoll(ctx context.Context, notificationID uuid.UUID) {
	go func() {
		_ = s.poller.PollOnce(ctx)
		s.clearState(notificationID)
	}()
}

func (s *ResponseSubmitter) setState(id uuid.UUID, st ReconcileState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing[id] = st
}

func (s *ResponseSubmitter) clearState(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processing, id)
}
