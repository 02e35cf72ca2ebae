package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

/*
NotificationPoller maintains the agent's current view of outstanding
pending-assignment notifications.

Snapshot semantics: every successful poll replaces the list wholesale (no
incremental merge), so stale-item ordering bugs cannot occur and the
countdown tracker automatically carries correct timers forward by id. On
any fetch failure the previous snapshot is retained and the failure is
surfaced through the notifier; a failed poll is never fatal.
*/
type NotificationPoller struct {
	client   api.AgentAPI
	notifier Notifier
	interval time.Duration

	mu         sync.Mutex
	inFlight   bool
	fetchSeq   uint64
	snapshot   []*models.AssignmentNotification
	suppressed map[uuid.UUID]struct{}
	// released holds ids whose suppression was lifted while a fetch may
	// still have been in flight: the value is the sequence of the latest
	// fetch started at release time, and only fetches started after it may
	// reinstate the id.
	released map[uuid.UUID]uint64

	// OnUpdate, when set, is invoked with a copy of the new snapshot after
	// every applied poll and every local mutation.
	OnUpdate func([]*models.AssignmentNotification)
}

func NewNotificationPoller(client api.AgentAPI, notifier Notifier, interval time.Duration) *NotificationPoller {
	return &NotificationPoller{
		client:     client,
		notifier:   notifier,
		interval:   interval,
		suppressed: make(map[uuid.UUID]struct{}),
		released:   make(map[uuid.UUID]uint64),
	}
}

// Snapshot returns a copy of the current pending list.
func (p *NotificationPoller) Snapshot() []*models.AssignmentNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.AssignmentNotification, len(p.snapshot))
	copy(out, p.snapshot)
	return out
}

/*
PollOnce performs a single fetch-and-replace. Overlapping invocations are
suppressed by an in-flight guard so a slow response does not queue up
duplicate requests. Results that land after the context is canceled are
dropped silently.
*/
func (p *NotificationPoller) PollOnce(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		utils.Logger.Debug("Poll already in flight, skipping")
		return nil
	}
	p.inFlight = true
	p.fetchSeq++
	seq := p.fetchSeq
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	fetched, err := p.client.FetchPendingAssignments(ctx)
	if err != nil {
		if api.IsFatalForSession(err) {
			return err
		}
		utils.Logger.WithError(err).Warn("Pending-assignments poll failed, keeping previous list")
		p.notifier.Error("Could not refresh pending assignments")
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.apply(fetched, seq)
	return nil
}

// Run polls on a fixed interval until the context is canceled or the
// session is rejected. The first poll fires immediately. Transient
// failures keep the loop going on the previous snapshot; a fatal session
// error stops the loop and is returned so the caller can shut down.
func (p *NotificationPoller) Run(ctx context.Context) error {
	if err := p.PollOnce(ctx); api.IsFatalForSession(err) {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.PollOnce(ctx); api.IsFatalForSession(err) {
				return err
			}
		}
	}
}

// apply installs a fresh snapshot: summary-less items are dropped with a
// warning, ids with an in-flight response keep their optimistic removal,
// and the rest is sorted by sent_at descending for display. seq is the
// fetch's start sequence; a fetch that started before an id's suppression
// was released is stale for that id and may not reinstate it.
func (p *NotificationPoller) apply(fetched []*models.AssignmentNotification, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make([]*models.AssignmentNotification, 0, len(fetched))
	for _, n := range fetched {
		if !n.HasPropertySummary() {
			utils.Logger.Warnf("Dropping pending assignment %s: incomplete property summary", n.ID)
			continue
		}
		if _, held := p.suppressed[n.ID]; held {
			continue
		}
		if barrier, ok := p.released[n.ID]; ok && seq <= barrier {
			continue
		}
		next = append(next, n)
	}
	for id, barrier := range p.released {
		if seq > barrier {
			delete(p.released, id)
		}
	}

	sort.SliceStable(next, func(i, j int) bool {
		return next[i].SentAt.After(next[j].SentAt)
	})

	p.snapshot = next
	p.notifyLocked()
}

/*
Suppress marks a notification as having an in-flight response and removes
it from the snapshot optimistically. Until Release is called, polls that
still contain the id will not reinstate it, so the item cannot flicker
back while its accept/reject is outstanding. The removed item is returned
for a potential rollback.
*/
func (p *NotificationPoller) Suppress(id uuid.UUID) *models.AssignmentNotification {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.suppressed[id] = struct{}{}
	for i, n := range p.snapshot {
		if n.ID == id {
			removed := n
			p.snapshot = append(p.snapshot[:i:i], p.snapshot[i+1:]...)
			p.notifyLocked()
			return removed
		}
	}
	return nil
}

// Release lifts the suppression for an id once its response has been
// reconciled. A fetch already in flight at this point predates the
// reconciliation, so it is barred from reinstating the id; only fetches
// started afterwards may.
func (p *NotificationPoller) Release(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.suppressed[id]; held {
		delete(p.suppressed, id)
		p.released[id] = p.fetchSeq
	}
}

// Reinstate puts a previously suppressed item back into the snapshot at
// its sorted position. Used when a response fails and its optimistic
// removal must be rolled back.
func (p *NotificationPoller) Reinstate(n *models.AssignmentNotification) {
	if n == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.suppressed, n.ID)
	delete(p.released, n.ID)
	for _, existing := range p.snapshot {
		if existing.ID == n.ID {
			p.notifyLocked()
			return
		}
	}
	p.snapshot = append(p.snapshot, n)
	sort.SliceStable(p.snapshot, func(i, j int) bool {
		return p.snapshot[i].SentAt.After(p.snapshot[j].SentAt)
	})
	p.notifyLocked()
}

func (p *NotificationPoller) notifyLocked() {
	if p.OnUpdate == nil {
		return
	}
	out := make([]*models.AssignmentNotification, len(p.snapshot))
	copy(out, p.snapshot)
	p.OnUpdate(out)
}

// PendingCount is a convenience for status lines.
func (p *NotificationPoller) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshot)
}

// Describe renders a one-line summary for logs.
func (p *NotificationPoller) Describe() string {
	return fmt.Sprintf("%d pending assignment(s)", p.PendingCount())
}
