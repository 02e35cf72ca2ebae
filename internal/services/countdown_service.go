package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/models"
)

// UrgencyClass is the display treatment derived from remaining time.
// It is advisory only: reaching Expired never fabricates a terminal
// status locally, the authoritative transition comes from the server
// and is confirmed on the next poll.
type UrgencyClass string

const (
	UrgencyNormal  UrgencyClass = "NORMAL"
	UrgencyUrgent  UrgencyClass = "URGENT"
	UrgencyExpired UrgencyClass = "EXPIRED"
)

// Remaining returns whole seconds until the notification's absolute
// expiry: max(0, floor((expires_at - now))). Always derived from the
// server-supplied timestamp so it tolerates client clock restarts and
// never depends on when a local timer was started.
func Remaining(n *models.AssignmentNotification, now time.Time) int64 {
	d := n.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Classify maps remaining time onto the display class. Urgent strictly
// below the threshold: remaining == 60 is still Normal.
func Classify(n *models.AssignmentNotification, now time.Time) UrgencyClass {
	remaining := Remaining(n, now)
	switch {
	case remaining == 0:
		return UrgencyExpired
	case remaining < int64(constants.UrgentThreshold/time.Second):
		return UrgencyUrgent
	default:
		return UrgencyNormal
	}
}

// CountdownEntry is one row of a countdown snapshot.
type CountdownEntry struct {
	NotificationID uuid.UUID
	Remaining      int64
	Class          UrgencyClass
}

/*
CountdownTracker recomputes remaining time once per second for whatever
snapshot the poller last applied. It is deliberately independent of the
poll cycle (two timers, per the concurrency model) and has no side
effects: every tick is a pure function of (snapshot, now).
*/
type CountdownTracker struct {
	source func() []*models.AssignmentNotification
	onTick func([]CountdownEntry)
	clock  func() time.Time
}

func NewCountdownTracker(
	source func() []*models.AssignmentNotification,
	onTick func([]CountdownEntry),
) *CountdownTracker {
	return &CountdownTracker{
		source: source,
		onTick: onTick,
		clock:  time.Now,
	}
}

// Compute produces the countdown rows for the current snapshot at `now`.
func (t *CountdownTracker) Compute(now time.Time) []CountdownEntry {
	snapshot := t.source()
	entries := make([]CountdownEntry, 0, len(snapshot))
	for _, n := range snapshot {
		entries = append(entries, CountdownEntry{
			NotificationID: n.ID,
			Remaining:      Remaining(n, now),
			Class:          Classify(n, now),
		})
	}
	return entries
}

// Run ticks until the context is canceled.
func (t *CountdownTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.CountdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.onTick(t.Compute(t.clock()))
		}
	}
}
