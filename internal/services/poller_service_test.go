package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

// fakeAgentAPI scripts the agent-scoped service contract for unit tests.
type fakeAgentAPI struct {
	mu sync.Mutex

	fetchResults []*models.AssignmentNotification
	fetchErr     error
	fetchCalls   int
	fetchGate    chan struct{} // when set, Fetch blocks until the gate closes

	acceptErr   error
	acceptCalls int
	acceptGate  chan struct{}

	rejectErr     error
	rejectCalls   int
	rejectReasons []string
}

func (f *fakeAgentAPI) FetchPendingAssignments(ctx context.Context) ([]*models.AssignmentNotification, error) {
	f.mu.Lock()
	f.fetchCalls++
	gate := f.fetchGate
	results, err := f.fetchResults, f.fetchErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return results, err
}

func (f *fakeAgentAPI) Accept(ctx context.Context, notificationID uuid.UUID) error {
	f.mu.Lock()
	f.acceptCalls++
	gate := f.acceptGate
	err := f.acceptErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeAgentAPI) Reject(ctx context.Context, notificationID uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectCalls++
	f.rejectReasons = append(f.rejectReasons, reason)
	return f.rejectErr
}

func (f *fakeAgentAPI) set(results []*models.AssignmentNotification, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchResults = results
	f.fetchErr = err
}

func (f *fakeAgentAPI) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func pendingNotification(sentAt time.Time) *models.AssignmentNotification {
	return &models.AssignmentNotification{
		ID:                uuid.New(),
		PropertyID:        uuid.New(),
		AgentID:           uuid.New(),
		NotificationRound: 1,
		Status:            models.NotificationStatusPending,
		SentAt:            sentAt,
		ExpiresAt:         sentAt.Add(5 * time.Minute),
		Property: models.PropertySummary{
			Title:        "2BHK Apartment",
			PropertyType: "APARTMENT",
			Price:        utils.Ptr(5_000_000.0),
			City:         "Hyderabad",
			State:        "Telangana",
			Pincode:      "500081",
		},
	}
}

func TestPollReplacesSnapshotWholesale(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	a := pendingNotification(now.Add(-2 * time.Minute))
	b := pendingNotification(now.Add(-1 * time.Minute))
	c := pendingNotification(now)

	client := &fakeAgentAPI{}
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	client.set([]*models.AssignmentNotification{a, b}, nil)
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 2, poller.PendingCount())

	// [A,B] -> [B,C]: A disappears entirely, C joins, no merge residue.
	client.set([]*models.AssignmentNotification{b, c}, nil)
	require.NoError(t, poller.PollOnce(ctx))

	snapshot := poller.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, c.ID, snapshot[0].ID, "newest sent_at first")
	require.Equal(t, b.ID, snapshot[1].ID)
}

func TestPollEmptyResponseClearsList(t *testing.T) {
	ctx := context.Background()
	client := &fakeAgentAPI{}
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	client.set([]*models.AssignmentNotification{pendingNotification(time.Now())}, nil)
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 1, poller.PendingCount())

	client.set([]*models.AssignmentNotification{}, nil)
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 0, poller.PendingCount())
}

func TestPollFailureRetainsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	n := pendingNotification(time.Now())

	client := &fakeAgentAPI{}
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	client.set([]*models.AssignmentNotification{n}, nil)
	require.NoError(t, poller.PollOnce(ctx))

	client.set(nil, &api.TransportError{Err: errors.New("connection refused")})
	err := poller.PollOnce(ctx)
	require.Error(t, err)
	require.True(t, api.IsRetryable(err))

	snapshot := poller.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, n.ID, snapshot[0].ID, "stale data beats no data")
}

func TestPollFatalSessionErrorSurfaced(t *testing.T) {
	ctx := context.Background()
	client := &fakeAgentAPI{fetchErr: utils.ErrUnauthorized}
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	err := poller.PollOnce(ctx)
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	require.True(t, api.IsFatalForSession(err))
}

func TestPollInFlightGuardSkipsOverlap(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	client := &fakeAgentAPI{fetchGate: gate}
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	done := make(chan error, 1)
	go func() { done <- poller.PollOnce(ctx) }()

	// Wait for the first poll to be in flight.
	require.Eventually(t, func() bool { return client.fetches() == 1 }, time.Second, 5*time.Millisecond)

	// The overlapping poll returns immediately without a second fetch.
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 1, client.fetches())

	close(gate)
	require.NoError(t, <-done)
}

func TestRunStopsOnFatalSessionError(t *testing.T) {
	client := &fakeAgentAPI{fetchErr: utils.ErrUnauthorized}
	poller := NewNotificationPoller(client, NopNotifier{}, 5*time.Millisecond)

	err := poller.Run(context.Background())
	require.ErrorIs(t, err, utils.ErrUnauthorized)
	require.Equal(t, 1, client.fetches(), "a rejected session must not be retried")
}

func TestRunKeepsPollingThroughTransientFailures(t *testing.T) {
	client := &fakeAgentAPI{}
	client.set(nil, &api.TransportError{Err: errors.New("connection refused")})
	poller := NewNotificationPoller(client, NopNotifier{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return client.fetches() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestPollDropsItemsWithoutPropertySummary(t *testing.T) {
	ctx := context.Background()
	complete := pendingNotification(time.Now())
	incomplete := pendingNotification(time.Now())
	incomplete.Property = models.PropertySummary{}

	client := &fakeAgentAPI{}
	client.set([]*models.AssignmentNotification{complete, incomplete}, nil)
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	require.NoError(t, poller.PollOnce(ctx))

	snapshot := poller.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, complete.ID, snapshot[0].ID)
}

func TestSuppressShieldsIDFromPollsUntilReleased(t *testing.T) {
	ctx := context.Background()
	n := pendingNotification(time.Now())

	client := &fakeAgentAPI{}
	client.set([]*models.AssignmentNotification{n}, nil)
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	require.NoError(t, poller.PollOnce(ctx))
	removed := poller.Suppress(n.ID)
	require.NotNil(t, removed)
	require.Equal(t, 0, poller.PendingCount())

	// A poll that still contains the id must not reinstate it.
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 0, poller.PendingCount())

	// After release the next poll restores it.
	poller.Release(n.ID)
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 1, poller.PendingCount())
}

func TestReleaseBarsFetchAlreadyInFlight(t *testing.T) {
	ctx := context.Background()
	n := pendingNotification(time.Now())

	client := &fakeAgentAPI{}
	client.set([]*models.AssignmentNotification{n}, nil)
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)
	require.NoError(t, poller.PollOnce(ctx))

	// A scheduled poll is mid-fetch, holding a response that still lists n.
	gate := make(chan struct{})
	client.mu.Lock()
	client.fetchGate = gate
	client.mu.Unlock()
	stale := make(chan error, 1)
	go func() { stale <- poller.PollOnce(ctx) }()
	require.Eventually(t, func() bool { return client.fetches() == 2 }, time.Second, 5*time.Millisecond)

	// Suppression is lifted while that fetch is still out. Its data predates
	// the release, so applying it must not bring n back.
	require.NotNil(t, poller.Suppress(n.ID))
	poller.Release(n.ID)
	close(gate)
	require.NoError(t, <-stale)
	require.Equal(t, 0, poller.PendingCount())

	// A fetch started after the release reflects server truth again.
	require.NoError(t, poller.PollOnce(ctx))
	require.Equal(t, 1, poller.PendingCount())
}

func TestReinstateRestoresSortedPosition(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	older := pendingNotification(now.Add(-2 * time.Minute))
	newer := pendingNotification(now)

	client := &fakeAgentAPI{}
	client.set([]*models.AssignmentNotification{older, newer}, nil)
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)
	require.NoError(t, poller.PollOnce(ctx))

	removed := poller.Suppress(newer.ID)
	require.NotNil(t, removed)
	poller.Reinstate(removed)

	snapshot := poller.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, newer.ID, snapshot[0].ID)
	require.Equal(t, older.ID, snapshot[1].ID)
}

func TestOnUpdateFiresOnAppliedPolls(t *testing.T) {
	ctx := context.Background()
	client := &fakeAgentAPI{}
	poller := NewNotificationPoller(client, NopNotifier{}, time.Second)

	var mu sync.Mutex
	var updates [][]*models.AssignmentNotification
	poller.OnUpdate = func(snapshot []*models.AssignmentNotification) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, snapshot)
	}

	client.set([]*models.AssignmentNotification{pendingNotification(time.Now())}, nil)
	require.NoError(t, poller.PollOnce(ctx))

	client.set(nil, &api.TransportError{Err: errors.New("timeout")})
	_ = poller.PollOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1, "failed polls must not emit an update")
	require.Len(t, updates[0], 1)
}
