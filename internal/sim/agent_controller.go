package sim

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/dtos"
	"github.com/keyhaven/assignment-desk/internal/middleware"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

type AgentController struct {
	service *AssignmentService
}

func NewAgentController(s *AssignmentService) *AgentController {
	return &AgentController{service: s}
}

// ----------------------------------------------------------------
// GET /api/v1/agent/pending-assignments
// ----------------------------------------------------------------
func (c *AgentController) PendingAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agentID, ok := ctx.Value(middleware.ContextKeyAgentID).(uuid.UUID)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"No agentID in context", nil, nil,
		)
		return
	}

	pending, err := c.service.PendingForAgent(ctx, agentID)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to list pending assignments")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Failed to list pending assignments", nil, err,
		)
		return
	}

	resp := dtos.PendingAssignmentsResponse{
		Notifications: make([]dtos.NotificationDTO, 0, len(pending)),
	}
	for _, n := range pending {
		resp.Notifications = append(resp.Notifications, dtos.NewNotificationDTO(n))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------
// POST /api/v1/agent/property-assignments/{id}/accept
// ----------------------------------------------------------------
func (c *AgentController) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agentID, ok := ctx.Value(middleware.ContextKeyAgentID).(uuid.UUID)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"No agentID in context", nil, nil,
		)
		return
	}

	notificationID, err := pathID(r)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"id is not a valid UUID", nil, err,
		)
		return
	}

	if err := c.service.Accept(ctx, agentID, notificationID); err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ActionResponse{Success: true})
}

// ----------------------------------------------------------------
// POST /api/v1/agent/property-assignments/{id}/reject
// ----------------------------------------------------------------
func (c *AgentController) RejectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agentID, ok := ctx.Value(middleware.ContextKeyAgentID).(uuid.UUID)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"No agentID in context", nil, nil,
		)
		return
	}

	notificationID, err := pathID(r)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"id is not a valid UUID", nil, err,
		)
		return
	}

	var body dtos.RejectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
				"Invalid JSON for reject payload", nil, err,
			)
			return
		}
	}
	if len(body.Reason) > constants.MaxRejectReasonLength {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation,
			"Reject reason is too long", nil, nil,
		)
		return
	}

	if err := c.service.Reject(ctx, agentID, notificationID, body.Reason); err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ActionResponse{Success: true})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// respondActionError maps service failures onto the action endpoints'
// wire contract.
func respondActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrAlreadyResponded):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeAlreadyResponded,
			constants.ErrMsgAlreadyResponded, nil, err,
		)
	case errors.Is(err, utils.ErrAssignmentExpired):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeAssignmentExpired,
			constants.ErrMsgAssignmentExpired, nil, err,
		)
	case errors.Is(err, utils.ErrAssignmentNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound,
			"Assignment not found", nil, err,
		)
	case errors.Is(err, utils.ErrUnauthorized):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeUnauthorized,
			"This assignment is not addressed to you", nil, err,
		)
	case errors.Is(err, utils.ErrInvalidPayload):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid request", nil, err,
		)
	default:
		utils.Logger.WithError(err).Error("Assignment action error")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not process the assignment action", nil, err,
		)
	}
}
