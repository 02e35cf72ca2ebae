package integration

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/auth"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/services"
	"github.com/keyhaven/assignment-desk/internal/sim"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

const testAdminAPIKey = "integration-test-admin-key"

// fixture runs the whole assignment service in-process and exposes real
// HTTP clients against it, so these tests exercise the exact wire
// contract the desks use in production.
type fixture struct {
	t       *testing.T
	store   sim.Store
	service *sim.AssignmentService
	server  *httptest.Server
	signKey *rsa.PrivateKey
	admin   *api.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := sim.NewMemoryStore()
	service := sim.NewAssignmentService(store, nil)
	server := httptest.NewServer(sim.NewRouter(service, &signKey.PublicKey, testAdminAPIKey))
	t.Cleanup(server.Close)

	return &fixture{
		t:       t,
		store:   store,
		service: service,
		server:  server,
		signKey: signKey,
		admin:   api.NewClient(server.URL, api.WithAPIKey(testAdminAPIKey)),
	}
}

func (f *fixture) agentClient(agentID uuid.UUID) *api.Client {
	f.t.Helper()
	token, err := auth.MintSessionToken(agentID, time.Hour, f.signKey)
	require.NoError(f.t, err)
	return api.NewClient(f.server.URL, api.WithSessionToken(token))
}

func (f *fixture) seedAgent(pincode string, createdAt time.Time) *models.Agent {
	f.t.Helper()
	a := &models.Agent{
		ID:        uuid.New(),
		Name:      "Agent " + uuid.NewString()[:8],
		Email:     "agent@keyhaven.in",
		Pincode:   pincode,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(f.t, f.store.CreateAgent(context.Background(), a))
	return a
}

func (f *fixture) seedProperty(pincode string) *models.Property {
	f.t.Helper()
	p := &models.Property{
		ID:             uuid.New(),
		Title:          "Lakeview Apartment",
		PropertyType:   "APARTMENT",
		Price:          utils.Ptr(9_500_000.0),
		City:           "Hyderabad",
		State:          "Telangana",
		Pincode:        pincode,
		CommissionRate: 2.0,
		CommissionType: models.CommissionTypePercentage,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(f.t, f.store.CreateProperty(context.Background(), p))
	return p
}

func TestAcceptFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := f.seedAgent("500081", time.Now().UTC())
	prop := f.seedProperty("500081")

	// Admin starts round 1.
	unassigned, err := f.admin.ListUnassignedProperties(ctx)
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	require.NoError(t, f.admin.AssignByPincode(ctx, prop.ID, "500081"))

	// The agent desk picks the offer up on its next poll.
	client := f.agentClient(agent.ID)
	poller := services.NewNotificationPoller(client, services.NopNotifier{}, time.Second)
	submitter := services.NewResponseSubmitter(client, poller, services.NopNotifier{})

	require.NoError(t, poller.PollOnce(ctx))
	snapshot := poller.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, prop.ID, snapshot[0].PropertyID)
	require.Equal(t, 1, snapshot[0].NotificationRound)
	require.Equal(t, "Lakeview Apartment", snapshot[0].Property.Title)

	// Accept, then the confirming poll keeps the list empty.
	require.NoError(t, submitter.Accept(ctx, snapshot[0].ID))
	require.Equal(t, 0, poller.PendingCount())

	// The property left the unassigned pool and the admin queue is empty.
	unassigned, err = f.admin.ListUnassignedProperties(ctx)
	require.NoError(t, err)
	require.Empty(t, unassigned)

	queue, err := f.admin.ListPendingAssignments(ctx)
	require.NoError(t, err)
	require.Empty(t, queue)
}

func TestRejectEscalatesToNextCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	first := f.seedAgent("500081", now.Add(-2*time.Hour))
	second := f.seedAgent("500081", now.Add(-time.Hour))
	prop := f.seedProperty("500081")

	require.NoError(t, f.admin.AssignByPincode(ctx, prop.ID, "500081"))

	firstClient := f.agentClient(first.ID)
	firstPoller := services.NewNotificationPoller(firstClient, services.NopNotifier{}, time.Second)
	firstSubmitter := services.NewResponseSubmitter(firstClient, firstPoller, services.NopNotifier{})

	require.NoError(t, firstPoller.PollOnce(ctx))
	snapshot := firstPoller.Snapshot()
	require.Len(t, snapshot, 1)

	require.NoError(t, firstSubmitter.Reject(ctx, snapshot[0].ID, "outside my coverage area"))
	require.Equal(t, 0, firstPoller.PendingCount())

	// The rejection opened round 2 for the next candidate immediately.
	secondClient := f.agentClient(second.ID)
	offers, err := secondClient.FetchPendingAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Equal(t, 2, offers[0].NotificationRound)

	// And the stored rejection kept the reason.
	rejected, err := f.store.GetNotification(ctx, snapshot[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectReason)
	require.Equal(t, "outside my coverage area", *rejected.RejectReason)
}

func TestExpiredConflictResolvedByConfirmingPoll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := f.seedAgent("500081", time.Now().UTC())
	prop := f.seedProperty("500081")

	// An offer whose window already passed but which the sweep has not
	// closed yet: the backend still reports it pending.
	now := time.Now().UTC()
	overdue := &models.AssignmentNotification{
		ID:                uuid.New(),
		PropertyID:        prop.ID,
		AgentID:           agent.ID,
		NotificationRound: 1,
		Status:            models.NotificationStatusPending,
		SentAt:            now.Add(-10 * time.Minute),
		ExpiresAt:         now.Add(-5 * time.Minute),
		Property:          prop.Summary(),
	}
	require.NoError(t, f.store.CreateNotification(ctx, overdue))

	client := f.agentClient(agent.ID)
	poller := services.NewNotificationPoller(client, services.NopNotifier{}, time.Second)
	submitter := services.NewResponseSubmitter(client, poller, services.NopNotifier{})

	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 1, poller.PendingCount())

	// The accept is refused with a conflict; the item rolls back and stays
	// visible because the next poll still reports it pending.
	err := submitter.Accept(ctx, overdue.ID)
	require.ErrorIs(t, err, utils.ErrAssignmentExpired)
	require.Eventually(t, func() bool {
		_, tracked := submitter.State(overdue.ID)
		return !tracked
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, poller.PendingCount())

	// Once the sweep closes the row, the confirming poll removes it.
	require.NoError(t, f.service.RunEscalationCheck(ctx))
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 0, poller.PendingCount())
}

func TestAgentCannotTouchAnotherAgentsOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedAgent("500081", time.Now().UTC())
	intruder := f.seedAgent("500081", time.Now().UTC().Add(time.Minute))
	prop := f.seedProperty("500081")

	require.NoError(t, f.admin.AssignByPincode(ctx, prop.ID, "500081"))

	offers, err := f.agentClient(owner.ID).FetchPendingAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	err = f.agentClient(intruder.ID).Accept(ctx, offers[0].ID)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
}

func TestSessionAndAPIKeyRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Garbage bearer token.
	badAgent := api.NewClient(f.server.URL, api.WithSessionToken("not-a-jwt"))
	_, err := badAgent.FetchPendingAssignments(ctx)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	require.True(t, api.IsFatalForSession(err))

	// Expired token.
	expiredToken, err := auth.MintSessionToken(uuid.New(), -time.Minute, f.signKey)
	require.NoError(t, err)
	expiredAgent := api.NewClient(f.server.URL, api.WithSessionToken(expiredToken))
	_, err = expiredAgent.FetchPendingAssignments(ctx)
	require.ErrorIs(t, err, utils.ErrUnauthorized)

	// Missing and wrong admin keys.
	noKey := api.NewClient(f.server.URL)
	_, err = noKey.ListUnassignedProperties(ctx)
	require.ErrorIs(t, err, utils.ErrUnauthorized)

	wrongKey := api.NewClient(f.server.URL, api.WithAPIKey("wrong"))
	_, err = wrongKey.ListUnassignedProperties(ctx)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
}

func TestAdminForceAcceptOverridesExpiredWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := f.seedAgent("500081", time.Now().UTC())
	prop := f.seedProperty("500081")

	now := time.Now().UTC()
	overdue := &models.AssignmentNotification{
		ID:                uuid.New(),
		PropertyID:        prop.ID,
		AgentID:           agent.ID,
		NotificationRound: 1,
		Status:            models.NotificationStatusPending,
		SentAt:            now.Add(-10 * time.Minute),
		ExpiresAt:         now.Add(-5 * time.Minute),
		Property:          prop.Summary(),
	}
	require.NoError(t, f.store.CreateNotification(ctx, overdue))

	adminQueue := services.NewAdminQueueService(f.admin, services.NopNotifier{}, true)

	queue, err := adminQueue.ListPendingAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, agent.Name, queue[0].AgentName)

	require.NoError(t, adminQueue.ForceAccept(ctx, overdue.ID, agent.ID))

	stored, err := f.store.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AgentID)
	require.Equal(t, agent.ID, *stored.AgentID)

	// A second force-accept conflicts.
	err = adminQueue.ForceAccept(ctx, overdue.ID, agent.ID)
	require.ErrorIs(t, err, utils.ErrAlreadyResponded)
}

func TestAssignByPincodeErrorMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prop := f.seedProperty("500081")

	// No agents in the pincode.
	err := f.admin.AssignByPincode(ctx, prop.ID, "999999")
	var serverErr *api.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, http.StatusUnprocessableEntity, serverErr.StatusCode)
	require.Equal(t, utils.ErrCodeNoCandidateAgents, serverErr.Code)

	// Unknown property: the client reports the generic not-found sentinel,
	// never an assignment-scoped one.
	err = f.admin.AssignByPincode(ctx, uuid.New(), "500081")
	require.ErrorIs(t, err, utils.ErrNotFound)
	require.NotErrorIs(t, err, utils.ErrAssignmentNotFound)

	// Double start conflicts.
	f.seedAgent("500081", time.Now().UTC())
	require.NoError(t, f.admin.AssignByPincode(ctx, prop.ID, "500081"))
	err = f.admin.AssignByPincode(ctx, prop.ID, "500081")
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, http.StatusConflict, serverErr.StatusCode)
	require.Equal(t, utils.ErrCodeAlreadyAssigned, serverErr.Code)
}

func TestHealthEndpointIsPublic(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
