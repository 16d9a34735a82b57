package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/chatcal/schedcore/internal/logging"
)

// ErrNotFound reports an empty tier; the vault falls through to the next one.
var ErrNotFound = errors.New("credential record not found")

// AuthenticationRequiredError means no usable credentials exist anywhere and a
// user-driven OAuth flow must run before calendar access can resume.
type AuthenticationRequiredError struct {
	Reason string
}

func (e *AuthenticationRequiredError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Reason)
}

// Record is a credential snapshot as persisted by a tier.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`

	// Tier names the store the record was read from. Not persisted.
	Tier string `json:"-"`
}

// Valid reports whether the access token is still usable at now, with a
// safety margin so a token does not expire mid-request.
func (r *Record) Valid(now time.Time) bool {
	return r.AccessToken != "" && now.Add(expirySkew).Before(r.Expiry)
}

const expirySkew = time.Minute

// SecretStore is a named credential persistence tier. Get returns ErrNotFound
// (possibly wrapped) when the tier holds no record.
type SecretStore interface {
	Name() string
	Get(ctx context.Context) (*Record, error)
	Set(ctx context.Context, rec *Record) error
}

// RefreshRecorder observes token refresh outcomes. A nil recorder records
// nothing.
type RefreshRecorder interface {
	RecordTokenRefresh(ctx context.Context, result string)
}

// Vault is the multi-tier credential store backing calendar access.
//
// Reads prefer the process-local cache, then fall through the configured
// tiers in order. Every successful refresh updates the cache immediately and
// synchronously writes the first (durable) tier before the token is returned;
// the durable tier is the last-writer-wins authority across restarts.
// Refreshes are serialized by a per-process mutex: concurrent callers seeing
// an expired token block on the in-flight refresh instead of issuing
// duplicates.
type Vault struct {
	mu     sync.Mutex
	conf   *oauth2.Config
	tiers  []SecretStore
	cached *Record
	logger *slog.Logger

	recorder RefreshRecorder

	// injectable for tests
	now     func() time.Time
	refresh func(ctx context.Context, refreshToken string) (*Record, error)
}

// NewVault builds a vault over the given OAuth config and ordered tiers.
// tiers[0] is the durable authority; later tiers are caches and fallbacks.
func NewVault(conf *oauth2.Config, tiers []SecretStore, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Vault{
		conf:   conf,
		tiers:  tiers,
		logger: logger,
		now:    time.Now,
	}
	v.refresh = v.refreshWithOAuth
	return v
}

// SetRecorder attaches a refresh recorder. Must be called before the vault is
// shared across goroutines.
func (v *Vault) SetRecorder(r RefreshRecorder) {
	v.recorder = r
}

func (v *Vault) recordRefresh(ctx context.Context, result string) {
	if v.recorder != nil {
		v.recorder.RecordTokenRefresh(ctx, result)
	}
}

// AccessToken returns a valid bearer token, silently refreshing when the
// cached or stored access token has expired but a refresh token is present.
// Fails with *AuthenticationRequiredError when no tier can produce usable
// credentials.
func (v *Vault) AccessToken(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()

	if v.cached != nil && v.cached.Valid(now) {
		return v.cached.AccessToken, nil
	}

	rec := v.cached
	if rec == nil {
		rec = v.loadFromTiers(ctx)
	}

	if rec == nil {
		return "", &AuthenticationRequiredError{Reason: "no stored credentials in any tier"}
	}

	if rec.Valid(now) {
		v.cached = rec
		v.logger.Info("credential served", logging.Tier(rec.Tier))
		return rec.AccessToken, nil
	}

	if rec.RefreshToken == "" {
		return "", &AuthenticationRequiredError{Reason: "access token expired and no refresh token present"}
	}

	refreshed, err := v.refresh(ctx, rec.RefreshToken)
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) {
			v.recordRefresh(ctx, "auth_required")
			return "", &AuthenticationRequiredError{Reason: fmt.Sprintf("refresh token rejected: %v", retrieve)}
		}
		v.recordRefresh(ctx, "failure")
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	v.recordRefresh(ctx, "success")
	if refreshed.RefreshToken == "" {
		// Google omits the refresh token on renewals; the original one stays
		// authoritative.
		refreshed.RefreshToken = rec.RefreshToken
	}

	v.store(ctx, refreshed)
	v.logger.Info("credential refreshed",
		logging.Operation("credentials.refresh"),
		slog.String("access_token", logging.SanitizeToken(refreshed.AccessToken)))
	return refreshed.AccessToken, nil
}

// Exchange swaps an authorization code for credentials and seeds every tier.
// This is the first-time OAuth bootstrap.
func (v *Vault) Exchange(ctx context.Context, code string) error {
	token, err := v.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.store(ctx, &Record{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	})
	return nil
}

// AuthURL returns the user consent URL. Offline access with forced consent
// guarantees a refresh token on the exchange.
func (v *Vault) AuthURL(state string) string {
	return v.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// HTTPClient returns an HTTP client whose requests carry tokens from the
// vault. The transport is pinned to HTTP/1.1 to avoid HTTP/2 protocol errors
// against the Google APIs.
func (v *Vault) HTTPClient(ctx context.Context) *http.Client {
	client := oauth2.NewClient(ctx, &vaultTokenSource{vault: v, ctx: ctx})
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client
}

// loadFromTiers walks the tiers in order and returns the first record found.
func (v *Vault) loadFromTiers(ctx context.Context) *Record {
	for _, tier := range v.tiers {
		rec, err := tier.Get(ctx)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				v.logger.Warn("credential tier read failed",
					logging.Tier(tier.Name()), logging.Err(err))
			}
			continue
		}
		rec.Tier = tier.Name()
		v.logger.Debug("credential record loaded", logging.Tier(tier.Name()))
		return rec
	}
	return nil
}

// store updates the in-memory cache and writes the tiers. The first tier is
// written synchronously and its failure only degrades persistence for this
// process; later tiers are best effort.
func (v *Vault) store(ctx context.Context, rec *Record) {
	rec.Tier = "memory"
	v.cached = rec

	for i, tier := range v.tiers {
		if err := tier.Set(ctx, rec); err != nil {
			if i == 0 {
				v.logger.Warn("durable credential store unreachable, persistence degraded to process lifetime",
					logging.Tier(tier.Name()), logging.Err(err))
			} else {
				v.logger.Debug("credential tier write failed",
					logging.Tier(tier.Name()), logging.Err(err))
			}
		}
	}
}

func (v *Vault) refreshWithOAuth(ctx context.Context, refreshToken string) (*Record, error) {
	source := v.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, err
	}
	return &Record{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// vaultTokenSource adapts the vault to oauth2.TokenSource for API clients.
type vaultTokenSource struct {
	vault *Vault
	ctx   context.Context
}

func (s *vaultTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.vault.AccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	s.vault.mu.Lock()
	expiry := s.vault.cached.Expiry
	s.vault.mu.Unlock()
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}
