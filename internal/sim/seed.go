package sim

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

// SeedResult reports the identifiers created by SeedTestData so the
// binary can log ready-to-use demo credentials.
type SeedResult struct {
	Agents     []models.Agent
	Properties []models.Property
}

// SeedTestData populates the store with a small set of agents and
// unassigned properties for local development. It is gated behind the
// seed flag and never runs in a deployed environment.
func SeedTestData(ctx context.Context, store Store) (*SeedResult, error) {
	now := time.Now().UTC()

	agents := []models.Agent{
		{
			ID:          uuid.New(),
			Name:        "Ravi Kumar",
			Email:       "ravi.kumar@keyhaven.in",
			PhoneNumber: "+911409990001",
			City:        "Hyderabad",
			State:       "Telangana",
			Pincode:     "500081",
			CreatedAt:   now.Add(-72 * time.Hour),
			UpdatedAt:   now.Add(-72 * time.Hour),
		},
		{
			ID:          uuid.New(),
			Name:        "Sneha Reddy",
			Email:       "sneha.reddy@keyhaven.in",
			PhoneNumber: "+911409990002",
			City:        "Hyderabad",
			State:       "Telangana",
			Pincode:     "500081",
			CreatedAt:   now.Add(-48 * time.Hour),
			UpdatedAt:   now.Add(-48 * time.Hour),
		},
		{
			ID:          uuid.New(),
			Name:        "Arjun Mehta",
			Email:       "arjun.mehta@keyhaven.in",
			PhoneNumber: "+911409990003",
			City:        "Bengaluru",
			State:       "Karnataka",
			Pincode:     "560102",
			CreatedAt:   now.Add(-24 * time.Hour),
			UpdatedAt:   now.Add(-24 * time.Hour),
		},
	}

	properties := []models.Property{
		{
			ID:             uuid.New(),
			Title:          "3BHK Lakeview Apartment",
			PropertyType:   "APARTMENT",
			Price:          utils.Ptr(9_500_000.0),
			Address:        "Plot 42, Lakeview Heights",
			City:           "Hyderabad",
			State:          "Telangana",
			Pincode:        "500081",
			Images:         []string{"https://cdn.keyhaven.in/demo/lakeview-1.jpg"},
			CommissionRate: 2.0,
			CommissionType: models.CommissionTypePercentage,
			CreatedAt:      now.Add(-6 * time.Hour),
			UpdatedAt:      now.Add(-6 * time.Hour),
		},
		{
			ID:             uuid.New(),
			Title:          "Furnished Studio near Tech Park",
			PropertyType:   "RENTAL",
			MonthlyRent:    utils.Ptr(32_000.0),
			Address:        "Tower B, Cyber Meadows",
			City:           "Hyderabad",
			State:          "Telangana",
			Pincode:        "500081",
			Images:         []string{"https://cdn.keyhaven.in/demo/studio-1.jpg"},
			CommissionRate: 15_000,
			CommissionType: models.CommissionTypeFixed,
			CreatedAt:      now.Add(-3 * time.Hour),
			UpdatedAt:      now.Add(-3 * time.Hour),
		},
		{
			ID:             uuid.New(),
			Title:          "2BHK Garden Villa",
			PropertyType:   "VILLA",
			Price:          utils.Ptr(14_200_000.0),
			Address:        "17, Palm Grove Layout",
			City:           "Bengaluru",
			State:          "Karnataka",
			Pincode:        "560102",
			Images:         []string{"https://cdn.keyhaven.in/demo/villa-1.jpg"},
			CommissionRate: 1.5,
			CommissionType: models.CommissionTypePercentage,
			CreatedAt:      now.Add(-1 * time.Hour),
			UpdatedAt:      now.Add(-1 * time.Hour),
		},
	}

	for i := range agents {
		a := agents[i]
		if err := store.CreateAgent(ctx, &a); err != nil {
			return nil, err
		}
	}
	for i := range properties {
		p := properties[i]
		if err := store.CreateProperty(ctx, &p); err != nil {
			return nil, err
		}
	}

	utils.Logger.Infof("Seeded %d agents and %d properties", len(agents), len(properties))
	return &SeedResult{Agents: agents, Properties: properties}, nil
}
