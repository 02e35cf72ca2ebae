package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"time"
	_ "time/tzdata"

	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"

	"github.com/keyhaven/assignment-desk/internal/auth"
	"github.com/keyhaven/assignment-desk/internal/config"
	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/sim"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

const appName = "assignment-sim"

func main() {
	utils.InitLogger(appName)
	cfg := config.LoadConfig(appName)
	defer cfg.Close()

	cfg.RequireAppPort()
	cfg.RequireAdminAPIKey()
	cfg.SeedOverrideFromEnv()

	// Without a configured keypair the simulator generates an ephemeral one
	// and mints demo tokens for the seeded agents, so a local run needs no
	// auth setup at all.
	pub := cfg.RSAPublicKey
	var priv *rsa.PrivateKey
	if pub == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to generate ephemeral RSA keypair")
		}
		priv = key
		pub = &key.PublicKey
		utils.Logger.Warn("RSA_PUBLIC_KEY_BASE64 not set, using an ephemeral keypair")
	}

	var twClient *twilio.RestClient
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	var sgClient *sendgrid.Client
	if cfg.SendGridAPIKey != "" {
		sgClient = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}

	offerNotifier := sim.NewOfferNotifier(
		twClient,
		sgClient,
		cfg.LDFlag_TwilioFromPhone,
		cfg.LDFlag_SendgridFromEmail,
		cfg.OrganizationName,
		cfg.LDFlag_SendgridSandboxMode,
	)

	store := sim.NewMemoryStore()
	service := sim.NewAssignmentService(store, offerNotifier)

	if cfg.LDFlag_SeedSimWithTestData {
		seeded, err := sim.SeedTestData(context.Background(), store)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to seed test data")
		}
		if priv != nil {
			for _, agent := range seeded.Agents {
				token, err := auth.MintSessionToken(agent.ID, 24*time.Hour, priv)
				if err != nil {
					utils.Logger.WithError(err).Fatal("Failed to mint demo session token")
				}
				utils.Logger.Infof("Demo session token for %s (%s): %s", agent.Name, agent.Pincode, token)
			}
		}
		for _, prop := range seeded.Properties {
			utils.Logger.Infof("Seeded unassigned property %s: %s (%s)", prop.ID, prop.Title, prop.Pincode)
		}
	}

	router := sim.NewRouter(service, pub, cfg.AdminAPIKey)

	c := cron.New()
	_, sweepErr := c.AddFunc(constants.EscalationSweepSpec, func() {
		if e := service.RunEscalationCheck(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Escalation sweep failed")
		}
	})
	if sweepErr != nil {
		utils.Logger.WithError(sweepErr).Fatal("Failed to schedule escalation sweep cron")
	}
	c.Start()

	allowedOrigins := []string{"*"}
	if cfg.AppUrl != "" {
		allowedOrigins = []string{cfg.AppUrl}
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", appName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("assignment-sim failed to start:", err)
	}
}
