package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/keyhaven/assignment-desk/internal/constants"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

const (
	OrganizationName    = "KeyHaven"
	LDConnectionTimeout = 5 * time.Second
)

type Config struct {
	OrganizationName string
	AppName          string
	AppPort          string
	AppUrl           string

	// Remote assignment service consumed by the desk clients.
	ServiceURL string

	// Auth
	SessionToken string // agent-scoped calls
	AdminAPIKey  string // admin-scoped calls
	RSAPublicKey *rsa.PublicKey

	// Twilio / SendGrid for simulator offer notifications
	TwilioAccountSID string
	TwilioAuthToken  string
	SendGridAPIKey   string

	// LaunchDarkly flags
	LDFlag_PollInterval        time.Duration
	LDFlag_ForceAcceptEnabled  bool
	LDFlag_SendgridFromEmail   string
	LDFlag_TwilioFromPhone     string
	LDFlag_SendgridSandboxMode bool
	LDFlag_SeedSimWithTestData bool
}

// LoadConfig reads the .env file (when present), environment variables and
// LaunchDarkly flags. Per-binary requirements (session token, API key,
// port) are enforced by the callers via the Require* helpers so one config
// serves all three binaries.
func LoadConfig(appName string) *Config {
	if err := godotenv.Load(); err != nil {
		utils.Logger.Debug("No .env file found, relying on process environment")
	}

	utils.Logger.Info("Loading config for app: ", appName)

	cfg := &Config{
		OrganizationName: OrganizationName,
		AppName:          appName,
		AppPort:          os.Getenv("APP_PORT"),
		AppUrl:           os.Getenv("APP_URL"),
		ServiceURL:       os.Getenv("ASSIGNMENT_SERVICE_URL"),
		SessionToken:     os.Getenv("SESSION_TOKEN"),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
	}

	if cfg.ServiceURL == "" {
		cfg.ServiceURL = "http://localhost:8080"
		utils.Logger.Warnf("ASSIGNMENT_SERVICE_URL not set, defaulting to %s", cfg.ServiceURL)
	}

	if pubB64 := os.Getenv("RSA_PUBLIC_KEY_BASE64"); pubB64 != "" {
		pubPEM, err := base64.StdEncoding.DecodeString(pubB64)
		if err != nil {
			utils.Logger.WithError(err).Fatal("RSA_PUBLIC_KEY_BASE64 is not valid base64")
		}
		pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
		}
		cfg.RSAPublicKey = pubKey
	}

	loadFlags(cfg)
	return cfg
}

// loadFlags fetches runtime flags from LaunchDarkly when LD_SDK_KEY is
// set; otherwise every flag falls back to its logged default so the desk
// still runs locally.
func loadFlags(cfg *Config) {
	cfg.LDFlag_PollInterval = constants.DefaultPollInterval
	cfg.LDFlag_ForceAcceptEnabled = true
	cfg.LDFlag_SendgridFromEmail = "no-reply@keyhaven.in"
	cfg.LDFlag_TwilioFromPhone = "+911409990000"
	cfg.LDFlag_SendgridSandboxMode = true

	sdkKey := os.Getenv("LD_SDK_KEY")
	if sdkKey == "" {
		utils.Logger.Warn("LD_SDK_KEY not set, using default flag values")
		return
	}

	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	ctx := ldcontext.NewWithKind("service", cfg.AppName)

	pollSecondsFlag, err := ldClient.IntVariation("assignment_poll_interval_seconds", ctx, int(constants.DefaultPollInterval/time.Second))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving assignment_poll_interval_seconds flag")
	}
	utils.Logger.Debugf("assignment_poll_interval_seconds flag: %d", pollSecondsFlag)
	if pollSecondsFlag > 0 {
		cfg.LDFlag_PollInterval = time.Duration(pollSecondsFlag) * time.Second
	}

	forceAcceptFlag, err := ldClient.BoolVariation("admin_force_accept_enabled", ctx, true)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving admin_force_accept_enabled flag")
	}
	utils.Logger.Debugf("admin_force_accept_enabled flag: %t", forceAcceptFlag)
	cfg.LDFlag_ForceAcceptEnabled = forceAcceptFlag

	sgFromFlag, err := ldClient.StringVariation("sendgrid_from_email", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_from_email flag")
	}
	if sgFromFlag != "" {
		cfg.LDFlag_SendgridFromEmail = sgFromFlag
	}

	twilioFromFlag, err := ldClient.StringVariation("twilio_from_phone", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving twilio_from_phone flag")
	}
	if twilioFromFlag != "" {
		cfg.LDFlag_TwilioFromPhone = twilioFromFlag
	}

	sgSandboxFlag, err := ldClient.BoolVariation("sendgrid_sandbox_mode", ctx, true)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_sandbox_mode flag")
	}
	utils.Logger.Debugf("sendgrid_sandbox_mode flag: %t", sgSandboxFlag)
	cfg.LDFlag_SendgridSandboxMode = sgSandboxFlag

	seedFlag, err := ldClient.BoolVariation("seed_sim_with_test_data", ctx, false)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving seed_sim_with_test_data flag")
	}
	utils.Logger.Debugf("seed_sim_with_test_data flag: %t", seedFlag)
	cfg.LDFlag_SeedSimWithTestData = seedFlag
}

// RequireSessionToken fatals unless an agent session token is configured.
func (c *Config) RequireSessionToken() {
	if c.SessionToken == "" {
		utils.Logger.Fatal("SESSION_TOKEN env var is missing")
	}
	if c.RSAPublicKey == nil {
		utils.Logger.Fatal("RSA_PUBLIC_KEY_BASE64 env var is missing")
	}
}

// RequireAdminAPIKey fatals unless the admin API key is configured.
func (c *Config) RequireAdminAPIKey() {
	if c.AdminAPIKey == "" {
		utils.Logger.Fatal("ADMIN_API_KEY env var is missing")
	}
}

// RequireAppPort fatals unless a listen port is configured.
func (c *Config) RequireAppPort() {
	if c.AppPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
}

// SeedOverrideFromEnv lets local runs force seeding without LaunchDarkly.
func (c *Config) SeedOverrideFromEnv() {
	if v := os.Getenv("SEED_SIM_WITH_TEST_DATA"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			utils.Logger.Warnf("Invalid SEED_SIM_WITH_TEST_DATA value %q, ignoring", v)
			return
		}
		c.LDFlag_SeedSimWithTestData = seed
	}
}

func (c *Config) Close() {}
