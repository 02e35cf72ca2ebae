package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/keyhaven/assignment-desk/internal/dtos"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

type AdminController struct {
	service  *AssignmentService
	validate *validator.Validate
}

func NewAdminController(s *AssignmentService) *AdminController {
	return &AdminController{
		service:  s,
		validate: validator.New(),
	}
}

func (c *AdminController) formatValidationErrors(errs validator.ValidationErrors) []dtos.ValidationErrorDetail {
	var details []dtos.ValidationErrorDetail
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("Field '%s' is required", err.Field())
		case "max":
			message = fmt.Sprintf("Field '%s' must not exceed %s in length", err.Field(), err.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", err.Field(), err.Tag())
		}
		details = append(details, dtos.ValidationErrorDetail{
			Field:   err.Field(),
			Message: message,
			Code:    "validation_" + err.Tag(),
		})
	}
	return details
}

// ----------------------------------------------------------------
// GET /api/v1/admin/properties/unassigned
// ----------------------------------------------------------------
func (c *AdminController) UnassignedPropertiesHandler(w http.ResponseWriter, r *http.Request) {
	properties, err := c.service.UnassignedProperties(r.Context())
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to list unassigned properties")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Failed to list unassigned properties", nil, err,
		)
		return
	}
	if properties == nil {
		properties = []models.Property{}
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.UnassignedPropertiesResponse{Properties: properties})
}

// ----------------------------------------------------------------
// GET /api/v1/admin/assignments/pending
// ----------------------------------------------------------------
func (c *AdminController) PendingQueueHandler(w http.ResponseWriter, r *http.Request) {
	assignments, err := c.service.PendingQueue(r.Context())
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to list pending assignment queue")
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Failed to list the assignment queue", nil, err,
		)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.PendingQueueResponse{Assignments: assignments})
}

// ----------------------------------------------------------------
// POST /api/v1/admin/properties/{id}/assign-by-pincode
// ----------------------------------------------------------------
func (c *AdminController) AssignByPincodeHandler(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"id is not a valid UUID", nil, err,
		)
		return
	}

	var body dtos.AssignByPincodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for assign-by-pincode payload", nil, err,
		)
		return
	}
	if err := c.validate.Struct(body); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation,
				"Validation failed", c.formatValidationErrors(vErrs), err,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid payload", nil, err,
		)
		return
	}

	if err := c.service.StartAssignment(r.Context(), propertyID, body.Pincode); err != nil {
		switch {
		case errors.Is(err, utils.ErrPropertyNotFound):
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrCodeNotFound,
				"Property not found", nil, err,
			)
		case errors.Is(err, utils.ErrAlreadyAssigned):
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrCodeAlreadyAssigned,
				"Property already has an agent or an offer in flight", nil, err,
			)
		case errors.Is(err, utils.ErrNoCandidateAgents):
			utils.RespondErrorWithCode(
				w, http.StatusUnprocessableEntity, utils.ErrCodeNoCandidateAgents,
				"No agents serve this pincode", nil, err,
			)
		default:
			utils.Logger.WithError(err).Error("Assign-by-pincode error")
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal,
				"Could not start the assignment", nil, err,
			)
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ActionResponse{Success: true})
}

// ----------------------------------------------------------------
// POST /api/v1/admin/assignments/{id}/accept
// ----------------------------------------------------------------
func (c *AdminController) ForceAcceptHandler(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := pathID(r)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"id is not a valid UUID", nil, err,
		)
		return
	}

	var body dtos.ForceAcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid JSON for force-accept payload", nil, err,
		)
		return
	}
	if err := c.validate.Struct(body); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation,
				"Validation failed", c.formatValidationErrors(vErrs), err,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload,
			"Invalid payload", nil, err,
		)
		return
	}

	if err := c.service.ForceAccept(r.Context(), assignmentID, body.AgentID); err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ActionResponse{Success: true})
}
