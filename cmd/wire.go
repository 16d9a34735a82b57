package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/chatcal/schedcore/internal/availability"
	"github.com/chatcal/schedcore/internal/calendar"
	"github.com/chatcal/schedcore/internal/config"
	"github.com/chatcal/schedcore/internal/credentials"
	"github.com/chatcal/schedcore/internal/logging"
	"github.com/chatcal/schedcore/internal/meeting"
	"github.com/chatcal/schedcore/internal/notify"
	"github.com/chatcal/schedcore/internal/storage"
	"github.com/chatcal/schedcore/internal/temporal"
	"github.com/chatcal/schedcore/internal/workinghours"
)

const backendTimeout = 10 * time.Second

// components holds the wired scheduling core shared by all commands.
type components struct {
	cfg       *config.Config
	logger    *slog.Logger
	storage   *storage.Storage
	vault     *credentials.Vault
	calendar  *calendar.Client
	resolver  *temporal.Resolver
	engine    *availability.Engine
	scheduler *meeting.Scheduler
}

// Close releases held resources.
func (c *components) Close() error {
	return c.storage.Close()
}

// buildComponents wires the full scheduling core from configuration:
// working-hours profile, temporal resolver, credential vault over its tiers,
// calendar client, availability engine and meeting scheduler.
func buildComponents(ctx context.Context, debug bool) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(debug)

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	profile, err := workinghours.NewProfile(cfg.Timezone,
		cfg.WeekdayOpen, cfg.WeekdayClose,
		cfg.WeekendOpen, cfg.WeekendClose,
		cfg.EnforceWindowEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid working-hours configuration: %w", err)
	}

	vault, err := buildVault(ctx, cfg, store, logger)
	if err != nil {
		return nil, err
	}

	calClient, err := calendar.NewClient(ctx, vault.HTTPClient(ctx), cfg.GoogleCalendarID)
	if err != nil {
		return nil, err
	}

	engine := availability.NewEngine(calClient, profile, cfg.SlotGranularity, backendTimeout, logger)
	resolver := temporal.NewResolver(cfg.Timezone, profile, cfg.GracePeriod, cfg.SlotGranularity, logger)
	scheduler := meeting.NewScheduler(engine, calClient, store, notify.NewLogNotifier(logger), cfg.Timezone, logger)

	return &components{
		cfg:       cfg,
		logger:    logger,
		storage:   store,
		vault:     vault,
		calendar:  calClient,
		resolver:  resolver,
		engine:    engine,
		scheduler: scheduler,
	}, nil
}

// buildVault assembles the credential tiers in read order: Secret Manager
// (durable, when a GCP project is configured), the sqlite cache, and a local
// file outside production.
func buildVault(ctx context.Context, cfg *config.Config, store *storage.Storage, logger *slog.Logger) (*credentials.Vault, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendarapi.CalendarScope},
		RedirectURL:  redirectURL(),
	}

	var tiers []credentials.SecretStore
	if cfg.GCPProject != "" {
		durable, err := credentials.NewSecretManagerStore(ctx, cfg.GCPProject)
		if err != nil {
			return nil, fmt.Errorf("failed to connect Secret Manager: %w", err)
		}
		tiers = append(tiers, durable)
	}
	tiers = append(tiers, credentials.NewCacheStore(store))
	if !cfg.Production() {
		tiers = append(tiers, credentials.NewFileStore(filepath.Dir(cfg.DatabasePath)))
	}

	return credentials.NewVault(conf, tiers, logger), nil
}

func redirectURL() string {
	if v := os.Getenv("OAUTH_REDIRECT_URL"); v != "" {
		return v
	}
	return "http://localhost:8080/oauth2/callback"
}
