package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs from the environment. It is built
// once at startup and handed to the components that need it; nothing reads
// os.Getenv after Load returns.
type Config struct {
	Port string

	// Google Sheets store
	SpreadsheetID   string
	SheetRange      string
	CredentialsFile string

	// Push-messaging gateway (LINE-compatible)
	PushGatewayURL string
	ChannelToken   string

	// Optional SendGrid email that tells the clinic operator about each
	// new submission
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	SendGridNotifyEmail string

	// Reminder timing
	ReminderDelay    time.Duration // submission -> second-dose reminder
	ReminderStageGap time.Duration // second-dose reminder -> third-dose reminder
	SweepSpec        string        // cron spec for the catch-up sweep
	SweepLookahead   int           // days ahead the sweep considers a dose "due"

	// Fixed timezone used when the form omits its own timestamp
	Location *time.Location
}

const (
	defaultPushGatewayURL = "https://api.line.me/v2/bot/message/push"
	defaultReminderDelay  = 24 * time.Hour
	defaultStageGap       = 24 * time.Hour
	defaultSweepSpec      = "0 9 * * *" // daily at 09:00
	defaultTimezone       = "Asia/Taipei"
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		SpreadsheetID:       os.Getenv("SPREADSHEET_ID"),
		SheetRange:          getEnv("SHEET_RANGE", "Sheet1!A:K"),
		CredentialsFile:     getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		PushGatewayURL:      getEnv("PUSH_GATEWAY_URL", defaultPushGatewayURL),
		ChannelToken:        os.Getenv("LINE_CHANNEL_TOKEN"),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail:   os.Getenv("SENDGRID_FROM_EMAIL"),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Vaccine Booking"),
		SendGridNotifyEmail: os.Getenv("SENDGRID_NOTIFY_EMAIL"),
		SweepSpec:           getEnv("SWEEP_SPEC", defaultSweepSpec),
		SweepLookahead:      7,
	}

	for name, value := range map[string]string{
		"SPREADSHEET_ID":     cfg.SpreadsheetID,
		"LINE_CHANNEL_TOKEN": cfg.ChannelToken,
	} {
		if value == "" {
			return nil, fmt.Errorf("required environment variable %s is not set", name)
		}
	}

	var err error
	if cfg.ReminderDelay, err = getDuration("REMINDER_DELAY", defaultReminderDelay); err != nil {
		return nil, err
	}
	if cfg.ReminderStageGap, err = getDuration("REMINDER_STAGE_GAP", defaultStageGap); err != nil {
		return nil, err
	}

	tz := getEnv("TIMEZONE", defaultTimezone)
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
