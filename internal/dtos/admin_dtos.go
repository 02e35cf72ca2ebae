package dtos

import (
	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/models"
)

type UnassignedPropertiesResponse struct {
	Properties []models.Property `json:"properties"`
}

type PendingQueueResponse struct {
	Assignments []models.Assignment `json:"assignments"`
}

// AssignByPincodeRequest triggers server-side candidate selection for an
// unassigned property. Only non-emptiness is checked client-side; format
// validation is the server's responsibility.
type AssignByPincodeRequest struct {
	Pincode string `json:"pincode" validate:"required"`
}

type ForceAcceptRequest struct {
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
}
