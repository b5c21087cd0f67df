package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

// VerifyFlow selects which verification variant a deployment runs.
// Exactly one flow is active; they are not composable.
type VerifyFlow string

const (
	FlowCode   VerifyFlow = "code"   // emailed 6-digit code
	FlowShared VerifyFlow = "shared" // single fixed shared code
	FlowIP     VerifyFlow = "ip"     // anonymous IP probe
)

type Config struct {
	ServerAddr string
	DB         PostgresConfig
	Trial      TrialConfig
	Stripe     StripeConfig
	Mail       MailConfig
	Generation GenerationConfig
	VerifyFlow VerifyFlow
	SharedCode string
	// TokenSecret signs the session tokens issued on successful verification.
	TokenSecret string
	TokenTTL    time.Duration
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Database string
}

// TrialConfig is the single source of truth for every allowance in the
// system. All gates and flows read these values; there are no
// per-endpoint constants.
type TrialConfig struct {
	// EmailAllowance is granted when an email identity is first verified.
	EmailAllowance int
	// IPAllowance is granted to an IP-derived pseudo-identity on first probe.
	IPAllowance int
	// IPCap bounds total trial consumption summed across every record
	// sharing one IP address.
	IPCap int
	// ProMonthlyAllowance is the metered subscription's monthly quota.
	ProMonthlyAllowance int
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	PriceIDPro     string
	PriceIDPremium string
	FrontendURL    string
}

type MailConfig struct {
	ResendAPIKey string
	FromAddress  string
}

type GenerationConfig struct {
	Model   string
	Timeout time.Duration
}

func LoadConfig() (*Config, error) {
	flow := VerifyFlow(getEnv("VERIFY_FLOW", string(FlowCode)))
	switch flow {
	case FlowCode, FlowShared, FlowIP:
	default:
		return nil, fmt.Errorf("invalid VERIFY_FLOW %q", flow)
	}

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0:8080"),
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			Database: getEnv("POSTGRES_DB", "helprelance"),
		},
		Trial: TrialConfig{
			EmailAllowance:      getEnvInt("TRIAL_ALLOWANCE", 3),
			IPAllowance:         getEnvInt("IP_TRIAL_ALLOWANCE", 1),
			IPCap:               getEnvInt("IP_CAP", 3),
			ProMonthlyAllowance: getEnvInt("PRO_MONTHLY_ALLOWANCE", 50),
		},
		Stripe: StripeConfig{
			SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDPro:     os.Getenv("STRIPE_PRICE_PRO"),
			PriceIDPremium: os.Getenv("STRIPE_PRICE_PREMIUM"),
			FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			FromAddress:  getEnv("MAIL_FROM", "HelpRelance <onboarding@resend.dev>"),
		},
		Generation: GenerationConfig{
			Model:   getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
			Timeout: getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		VerifyFlow:  flow,
		SharedCode:  os.Getenv("SHARED_VERIFY_CODE"),
		TokenSecret: os.Getenv("TOKEN_SECRET"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),
	}

	if cfg.Trial.EmailAllowance < 0 || cfg.Trial.IPAllowance < 0 || cfg.Trial.IPCap < 0 {
		return nil, fmt.Errorf("trial allowances must not be negative")
	}
	if flow == FlowShared && cfg.SharedCode == "" {
		return nil, fmt.Errorf("SHARED_VERIFY_CODE must be set for the shared flow")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
