package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	cron "github.com/robfig/cron/v3"

	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/auth"
	"github.com/keyhaven/assignment-desk/internal/config"
	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/services"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

const appName = "agent-desk"

func main() {
	utils.InitLogger(appName)
	cfg := config.LoadConfig(appName)
	defer cfg.Close()

	cfg.RequireSessionToken()

	claims, err := auth.ParseSessionToken(cfg.SessionToken, cfg.RSAPublicKey)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Session token is invalid, re-authenticate and restart")
	}
	utils.Logger.Infof("Agent session %s valid until %s", claims.AgentID, claims.ExpiresAt.Format(time.RFC1123Z))

	client := api.NewClient(
		cfg.ServiceURL,
		api.WithSessionToken(cfg.SessionToken),
		api.WithHTTPClient(&http.Client{Timeout: constants.HTTPRequestTimeout}),
	)

	notifier := services.NewLogNotifier()
	poller := services.NewNotificationPoller(client, notifier, cfg.LDFlag_PollInterval)
	submitter := services.NewResponseSubmitter(client, poller, notifier)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	poller.OnUpdate = func(snapshot []*models.AssignmentNotification) {
		printSnapshot(snapshot)
	}

	// Countdown rows are recomputed every second; only class transitions
	// are printed so the terminal is not flooded.
	var classMu sync.Mutex
	lastClass := map[uuid.UUID]services.UrgencyClass{}
	tracker := services.NewCountdownTracker(poller.Snapshot, func(entries []services.CountdownEntry) {
		classMu.Lock()
		defer classMu.Unlock()
		seen := map[uuid.UUID]struct{}{}
		for _, e := range entries {
			seen[e.NotificationID] = struct{}{}
			if lastClass[e.NotificationID] == e.Class {
				continue
			}
			lastClass[e.NotificationID] = e.Class
			switch e.Class {
			case services.UrgencyUrgent:
				fmt.Printf("! %s has %ds left to respond\n", shortID(e.NotificationID), e.Remaining)
			case services.UrgencyExpired:
				fmt.Printf("! %s response window has closed\n", shortID(e.NotificationID))
			}
		}
		for id := range lastClass {
			if _, ok := seen[id]; !ok {
				delete(lastClass, id)
			}
		}
	})

	// Run surfaces a rejected session as an error so the desk shuts down
	// instead of retrying forever.
	go func() {
		if err := poller.Run(ctx); err != nil {
			utils.Logger.WithError(err).Error("Session rejected by the assignment service, shutting down")
			cancel()
		}
	}()
	go tracker.Run(ctx)

	// Local watchdog: the token's own expiry ends the session even if the
	// service has not rejected a request yet.
	c := cron.New()
	_, cronErr := c.AddFunc("@every 1m", func() {
		if time.Now().After(claims.ExpiresAt) {
			utils.Logger.Error("Session token expired, shutting down")
			cancel()
			return
		}
		utils.Logger.Debugf("Session healthy, %s", poller.Describe())
	})
	if cronErr != nil {
		utils.Logger.WithError(cronErr).Fatal("Failed to schedule session watchdog cron")
	}
	c.Start()
	defer c.Stop()

	fmt.Println("Commands: list | accept <id> | reject <id> [reason] | quit")
	go commandLoop(ctx, cancel, poller, submitter)

	<-ctx.Done()
	utils.Logger.Info("agent-desk stopped")
}

func commandLoop(ctx context.Context, cancel context.CancelFunc, poller *services.NotificationPoller, submitter *services.ResponseSubmitter) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			printSnapshot(poller.Snapshot())
		case "accept", "reject":
			if len(fields) < 2 {
				fmt.Printf("usage: %s <id>\n", fields[0])
				continue
			}
			id, err := uuid.Parse(fields[1])
			if err != nil {
				fmt.Printf("invalid assignment id %q\n", fields[1])
				continue
			}
			var submitErr error
			if fields[0] == "accept" {
				submitErr = submitter.Accept(ctx, id)
			} else {
				submitErr = submitter.Reject(ctx, id, strings.Join(fields[2:], " "))
			}
			handleSubmitError(cancel, submitErr)
		case "quit", "exit":
			cancel()
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func handleSubmitError(cancel context.CancelFunc, err error) {
	switch {
	case err == nil:
	case api.IsFatalForSession(err):
		utils.Logger.WithError(err).Error("Session rejected by the assignment service, shutting down")
		cancel()
	case errors.Is(err, utils.ErrActionInFlight):
		fmt.Println("a response for this assignment is already being submitted")
	default:
		fmt.Printf("could not submit response: %v\n", err)
	}
}

func printSnapshot(snapshot []*models.AssignmentNotification) {
	if len(snapshot) == 0 {
		fmt.Println("No pending assignments")
		return
	}
	fmt.Printf("Pending assignments (%d):\n", len(snapshot))
	for _, n := range snapshot {
		fmt.Printf("  %s  round %d  %s  %s, %s %s  expires %s\n",
			n.ID,
			n.NotificationRound,
			n.Property.Title,
			n.Property.City, n.Property.State, n.Property.Pincode,
			n.ExpiresAt.Local().Format("15:04:05"),
		)
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
