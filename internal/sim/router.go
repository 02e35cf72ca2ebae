package sim

import (
	"crypto/rsa"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/keyhaven/assignment-desk/internal/middleware"
	"github.com/keyhaven/assignment-desk/internal/routes"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

// NewRouter wires the simulator's HTTP surface. It is shared by the
// assignment-sim binary and the in-process integration tests.
func NewRouter(service *AssignmentService, pub *rsa.PublicKey, adminAPIKey string) *mux.Router {
	agentController := NewAgentController(service)
	adminController := NewAdminController(service)

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	agentSecured := router.NewRoute().Subrouter()
	agentSecured.Use(middleware.AgentAuthMiddleware(pub))

	agentSecured.HandleFunc(routes.AgentPendingAssignments, agentController.PendingAssignmentsHandler).Methods(http.MethodGet)
	agentSecured.HandleFunc(routes.AgentAssignmentAccept, agentController.AcceptHandler).Methods(http.MethodPost)
	agentSecured.HandleFunc(routes.AgentAssignmentReject, agentController.RejectHandler).Methods(http.MethodPost)

	adminSecured := router.NewRoute().Subrouter()
	adminSecured.Use(middleware.AdminAuthMiddleware(adminAPIKey))

	adminSecured.HandleFunc(routes.AdminUnassignedProperties, adminController.UnassignedPropertiesHandler).Methods(http.MethodGet)
	adminSecured.HandleFunc(routes.AdminPendingAssignments, adminController.PendingQueueHandler).Methods(http.MethodGet)
	adminSecured.HandleFunc(routes.AdminAssignByPincode, adminController.AssignByPincodeHandler).Methods(http.MethodPost)
	adminSecured.HandleFunc(routes.AdminForceAccept, adminController.ForceAcceptHandler).Methods(http.MethodPost)

	return router
}
