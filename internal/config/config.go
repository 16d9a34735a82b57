package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the scheduling core.
type Config struct {
	// Timezone is the scheduling timezone. All slot math happens here.
	Timezone *time.Location

	// Working-hours windows in HH:MM, per day category.
	WeekdayOpen  string
	WeekdayClose string
	WeekendOpen  string
	WeekendClose string

	// EnforceWindowEnd requires start+duration to fit inside the window,
	// not just the start instant.
	EnforceWindowEnd bool

	// GracePeriod tolerates "now"-adjacent but technically past requests.
	GracePeriod time.Duration

	// SlotGranularity is the candidate slot spacing when enumerating availability.
	SlotGranularity time.Duration

	// Google Calendar / OAuth settings.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCalendarID   string

	// GCPProject hosts the Secret Manager secret backing the durable credential tier.
	GCPProject string

	// DatabasePath is the sqlite file backing the meeting store and the
	// secondary token cache.
	DatabasePath string

	// Environment gates the local-file credential fallback (non-production only).
	Environment string
}

// Production reports whether the process runs with the production environment name.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tzName := getenv("SCHEDULING_TIMEZONE", "America/New_York")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULING_TIMEZONE %q: %w", tzName, err)
	}

	grace, err := durationEnv("GRACE_PERIOD", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	granularity, err := durationEnv("SLOT_GRANULARITY", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Timezone:           tz,
		WeekdayOpen:        getenv("WEEKDAY_OPEN", "09:00"),
		WeekdayClose:       getenv("WEEKDAY_CLOSE", "17:00"),
		WeekendOpen:        getenv("WEEKEND_OPEN", "10:30"),
		WeekendClose:       getenv("WEEKEND_CLOSE", "16:30"),
		EnforceWindowEnd:   boolEnv("WORKING_HOURS_ENFORCE_END"),
		GracePeriod:        grace,
		SlotGranularity:    granularity,
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCalendarID:   getenv("GOOGLE_CALENDAR_ID", "primary"),
		GCPProject:         os.Getenv("GCP_PROJECT"),
		DatabasePath:       getenv("DATABASE_PATH", "./data/schedcore.db"),
		Environment:        getenv("ENVIRONMENT", "development"),
	}

	if cfg.GracePeriod < 0 {
		return nil, fmt.Errorf("GRACE_PERIOD must not be negative")
	}
	if cfg.SlotGranularity <= 0 {
		return nil, fmt.Errorf("SLOT_GRANULARITY must be positive")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
