package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/credentials/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/partnerhttp"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	// ErrNotConfigured: no application credential (or an incomplete one) exists for the platform.
	ErrNotConfigured = errors.New("platform integration is not configured")
	// ErrNotAuthorized: the principal never completed OAuth, disconnected, or holds no usable refresh token.
	ErrNotAuthorized = errors.New("platform account is not authorized")
	// ErrRefreshFailed: the refresh token exchange was rejected; the principal must re-authorize.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrInvalidState: the OAuth callback state could not be decoded into a principal.
	ErrInvalidState = errors.New("invalid authorization state")
	// ErrExchangeFailed: the authorization code exchange was rejected.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
)

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

// AppCredential is the application-level OAuth client registration for a platform.
type AppCredential struct {
	Platform     rental.Platform
	ClientID     string
	ClientSecret string
	APIKey       string
	UpdatedAt    time.Time
}

// Complete reports whether the credential can drive OAuth for its platform.
func (a AppCredential) Complete() bool {
	if a.ClientID == "" || a.ClientSecret == "" {
		return false
	}
	if a.Platform == rental.PlatformOtodom && a.APIKey == "" {
		return false
	}
	return true
}

// UserToken is a principal's OAuth token pair for a platform.
type UserToken struct {
	Platform     rental.Platform
	PrincipalID  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Active       bool
	LastSyncAt   *time.Time
	LastError    *string
}

// Status is the integration state shown to a principal.
type Status struct {
	Platform     rental.Platform
	IsConfigured bool
	IsActive     bool
	ExpiresAt    *time.Time
	LastSyncAt   *time.Time
	LastError    *string
}

// ConfigureAppInput carries the admin-provided client registration.
type ConfigureAppInput struct {
	Platform     rental.Platform
	ClientID     string
	ClientSecret string
	APIKey       string
}

// Endpoints are the OAuth endpoints of one platform.
type Endpoints struct {
	AuthURL  string
	TokenURL string
}

// Config wires the service to its environment.
type Config struct {
	// PublicBaseURL is this server's externally reachable origin; OAuth redirect URIs hang off it.
	PublicBaseURL string
	OLX           Endpoints
	Otodom        Endpoints
	// HTTPClient performs token endpoint calls. Defaults to a partnerhttp client.
	HTTPClient *http.Client
	// Now is the clock used for expiry checks.
	Now    func() time.Time
	Logger *zap.Logger
}

// Service defines the credential and token lifecycle operations.
type Service interface {
	ConfigureApp(ctx context.Context, input ConfigureAppInput) (AppCredential, error)
	Status(ctx context.Context, platform rental.Platform, principal string) (Status, error)
	Disconnect(ctx context.Context, platform rental.Platform, principal string) error
	BeginAuthorization(ctx context.Context, platform rental.Platform, principal string) (string, error)
	CompleteAuthorization(ctx context.Context, platform rental.Platform, code, state string) (string, error)
	AccessToken(ctx context.Context, platform rental.Platform, principal string) (string, error)
	APIKey(ctx context.Context, platform rental.Platform) (string, error)
}

type service struct {
	repo          repo.Repository
	publicBaseURL string
	endpoints     map[rental.Platform]Endpoints
	httpClient    *http.Client
	now           func() time.Time
	logger        *zap.Logger
}

// New constructs a credentials Service.
func New(r repo.Repository, cfg Config) Service {
	if r == nil {
		panic("credentials repository is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = partnerhttp.New(partnerhttp.Config{})
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoints := map[rental.Platform]Endpoints{
		rental.PlatformOLX:    withDefaults(cfg.OLX, DefaultOLXEndpoints),
		rental.PlatformOtodom: withDefaults(cfg.Otodom, DefaultOtodomEndpoints),
	}

	return &service{
		repo:          r,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		endpoints:     endpoints,
		httpClient:    client,
		now:           now,
		logger:        logger,
	}
}

func (s *service) ConfigureApp(ctx context.Context, input ConfigureAppInput) (AppCredential, error) {
	fieldErrors := FieldErrors{}

	if _, err := rental.ParsePlatform(string(input.Platform)); err != nil {
		fieldErrors.add("platform", err.Error())
	}

	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		fieldErrors.add("clientId", "clientId is required")
	}
	clientSecret := strings.TrimSpace(input.ClientSecret)
	if clientSecret == "" {
		fieldErrors.add("clientSecret", "clientSecret is required")
	}
	apiKey := strings.TrimSpace(input.APIKey)
	if input.Platform == rental.PlatformOtodom && apiKey == "" {
		fieldErrors.add("apiKey", "apiKey is required for otodom")
	}

	if len(fieldErrors) > 0 {
		return AppCredential{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.UpsertApp(ctx, persistence.AppCredentialRecord{
		Platform:     string(input.Platform),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		APIKey:       apiKey,
	})
	if err != nil {
		return AppCredential{}, fmt.Errorf("store app credential: %w", err)
	}

	return mapApp(record), nil
}

func (s *service) Status(ctx context.Context, platform rental.Platform, principal string) (Status, error) {
	status := Status{Platform: platform}

	switch _, err := s.loadApp(ctx, platform); {
	case err == nil:
		status.IsConfigured = true
	case errors.Is(err, ErrNotConfigured):
	default:
		return Status{}, err
	}

	token, err := s.repo.GetUserToken(ctx, string(platform), principal)
	if err != nil {
		if errors.Is(err, persistence.ErrUserTokenNotFound) {
			return status, nil
		}
		return Status{}, fmt.Errorf("load user token: %w", err)
	}

	status.IsActive = token.IsActive && status.IsConfigured
	status.ExpiresAt = token.ExpiresAt
	status.LastSyncAt = token.LastSyncAt
	status.LastError = token.LastError
	return status, nil
}

func (s *service) Disconnect(ctx context.Context, platform rental.Platform, principal string) error {
	if err := s.repo.DeactivateUserToken(ctx, string(platform), principal); err != nil {
		if errors.Is(err, persistence.ErrUserTokenNotFound) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("deactivate user token: %w", err)
	}
	return nil
}

func (s *service) APIKey(ctx context.Context, platform rental.Platform) (string, error) {
	app, err := s.loadApp(ctx, platform)
	if err != nil {
		return "", err
	}
	return app.APIKey, nil
}

func (s *service) loadApp(ctx context.Context, platform rental.Platform) (AppCredential, error) {
	record, err := s.repo.GetApp(ctx, string(platform))
	if err != nil {
		if errors.Is(err, persistence.ErrAppCredentialNotFound) {
			return AppCredential{}, ErrNotConfigured
		}
		return AppCredential{}, fmt.Errorf("load app credential: %w", err)
	}

	app := mapApp(record)
	if !app.Complete() {
		return AppCredential{}, ErrNotConfigured
	}
	return app, nil
}

func mapApp(record persistence.AppCredentialRecord) AppCredential {
	return AppCredential{
		Platform:     rental.Platform(record.Platform),
		ClientID:     record.ClientID,
		ClientSecret: record.ClientSecret,
		APIKey:       record.APIKey,
		UpdatedAt:    record.UpdatedAt,
	}
}

func mapToken(record persistence.UserTokenRecord) UserToken {
	return UserToken{
		Platform:     rental.Platform(record.Platform),
		PrincipalID:  record.PrincipalID,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
		Active:       record.IsActive,
		LastSyncAt:   record.LastSyncAt,
		LastError:    record.LastError,
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
