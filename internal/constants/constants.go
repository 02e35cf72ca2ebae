package constants

import (
	"time"
)

// Desk timing. The poll and countdown tickers are independent on purpose:
// the countdown derives from the server-supplied absolute expiry, never from
// the poll cadence.
const (
	DefaultPollInterval = 30 * time.Second
	CountdownTick       = 1 * time.Second

	// A pending offer with less than this much time left renders as urgent.
	UrgentThreshold = 60 * time.Second

	HTTPRequestTimeout = 10 * time.Second
)

// Assignment protocol settings mirrored by the simulator.
const (
	OfferResponseWindow   = 5 * time.Minute
	MaxNotificationRounds = 3
	EscalationSweepSpec   = "@every 1m"
)

const (
	MaxRejectReasonLength = 500
)

// Common conflict messages
const (
	ErrMsgAlreadyResponded  = "This assignment was already resolved, please refresh"
	ErrMsgAssignmentExpired = "The response window for this assignment has passed"
)
