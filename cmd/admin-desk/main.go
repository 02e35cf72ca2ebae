package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/keyhaven/assignment-desk/internal/api"
	"github.com/keyhaven/assignment-desk/internal/config"
	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/services"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

const appName = "admin-desk"

const usage = `usage: admin-desk <command>

commands:
  unassigned                              list properties with no assigned agent
  queue                                   list pending assignment notifications
  assign <property-id> <pincode>          offer a property to agents in a pincode
  force-accept <assignment-id> <agent-id> accept an assignment on the agent's behalf`

func main() {
	utils.InitLogger(appName)
	cfg := config.LoadConfig(appName)
	defer cfg.Close()

	cfg.RequireAdminAPIKey()

	client := api.NewClient(
		cfg.ServiceURL,
		api.WithAPIKey(cfg.AdminAPIKey),
		api.WithHTTPClient(&http.Client{Timeout: constants.HTTPRequestTimeout}),
	)
	queue := services.NewAdminQueueService(client, services.NewLogNotifier(), cfg.LDFlag_ForceAcceptEnabled)

	ctx := context.Background()
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println(usage)
		os.Exit(2)
	}

	switch args[0] {
	case "unassigned":
		properties, err := queue.ListUnassigned(ctx)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to list unassigned properties")
		}
		if len(properties) == 0 {
			fmt.Println("No unassigned properties")
			return
		}
		for _, p := range properties {
			fmt.Printf("%s  %-32s  %s, %s %s  commission %.2f (%s)\n",
				p.ID, p.Title, p.City, p.State, p.Pincode, p.CommissionAmount(), p.CommissionType)
		}

	case "queue":
		assignments, err := queue.ListPendingAssignments(ctx)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to list pending assignments")
		}
		if len(assignments) == 0 {
			fmt.Println("No pending assignments")
			return
		}
		for _, a := range assignments {
			fmt.Printf("%s  round %d  %s -> %s (%s)  expires %s\n",
				a.ID, a.NotificationRound, a.PropertyTitle, a.AgentName, a.PropertyPincode,
				a.ExpiresAt.Local().Format("15:04:05"))
		}

	case "assign":
		if len(args) != 3 {
			fmt.Println(usage)
			os.Exit(2)
		}
		propertyID := mustParseID(args[1], "property-id")
		if err := queue.AssignByPincode(ctx, propertyID, args[2]); err != nil {
			utils.Logger.WithError(err).Fatal("Assign by pincode failed")
		}
		fmt.Printf("Offered property %s to agents in pincode %s\n", propertyID, args[2])

	case "force-accept":
		if len(args) != 3 {
			fmt.Println(usage)
			os.Exit(2)
		}
		assignmentID := mustParseID(args[1], "assignment-id")
		agentID := mustParseID(args[2], "agent-id")
		if err := queue.ForceAccept(ctx, assignmentID, agentID); err != nil {
			utils.Logger.WithError(err).Fatal("Force-accept failed")
		}
		fmt.Printf("Assignment %s accepted for agent %s\n", assignmentID, agentID)

	default:
		fmt.Println(usage)
		os.Exit(2)
	}
}

func mustParseID(raw, name string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.Logger.Fatalf("%s is not a valid uuid: %s", name, raw)
	}
	return id
}
