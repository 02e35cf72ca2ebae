package routes

import "fmt"

const (
	// Health
	Health = "/health"

	// Agent endpoints
	AgentPendingAssignments = "/api/v1/agent/pending-assignments"
	AgentAssignmentAccept   = "/api/v1/agent/property-assignments/{id}/accept"
	AgentAssignmentReject   = "/api/v1/agent/property-assignments/{id}/reject"

	// Admin endpoints
	AdminUnassignedProperties = "/api/v1/admin/properties/unassigned"
	AdminPendingAssignments   = "/api/v1/admin/assignments/pending"
	AdminAssignByPincode      = "/api/v1/admin/properties/{id}/assign-by-pincode"
	AdminForceAccept          = "/api/v1/admin/assignments/{id}/accept"
)

// Path builders for the client side of the same contract.

func AgentAssignmentAcceptPath(id string) string {
	return fmt.Sprintf("/api/v1/agent/property-assignments/%s/accept", id)
}

func AgentAssignmentRejectPath(id string) string {
	return fmt.Sprintf("/api/v1/agent/property-assignments/%s/reject", id)
}

func AdminAssignByPincodePath(propertyID string) string {
	return fmt.Sprintf("/api/v1/admin/properties/%s/assign-by-pincode", propertyID)
}

func AdminForceAcceptPath(assignmentID string) string {
	return fmt.Sprintf("/api/v1/admin/assignments/%s/accept", assignmentID)
}
