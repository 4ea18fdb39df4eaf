package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/zenGate-Global/rentboard/platform/go/partnerhttp"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

var (
	DefaultOLXEndpoints = Endpoints{
		AuthURL:  "https://www.olx.pl/oauth/authorize",
		TokenURL: "https://www.olx.pl/api/open/oauth/token",
	}
	DefaultOtodomEndpoints = Endpoints{
		AuthURL:  "https://www.otodom.pl/pl/crm/authorization",
		TokenURL: "https://api.olxgroup.com/oauth/v1/token",
	}
)

var olxScopes = []string{"v2", "read", "write"}

// CallbackPath is the route suffix the partner redirects the browser back to.
func CallbackPath(platform rental.Platform) string {
	return fmt.Sprintf("/api/v1/integrations/%s/callback", platform)
}

type statePayload struct {
	Principal string `json:"principal"`
}

// EncodeState wraps the principal into the opaque OAuth state parameter.
func EncodeState(principal string) string {
	raw, _ := json.Marshal(statePayload{Principal: principal})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeState recovers the principal from the OAuth state parameter.
func DecodeState(state string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(state), "=")
	if trimmed == "" {
		return "", ErrInvalidState
	}

	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(trimmed)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}

	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if strings.TrimSpace(payload.Principal) == "" {
		return "", fmt.Errorf("%w: missing principal", ErrInvalidState)
	}
	return payload.Principal, nil
}

func (s *service) BeginAuthorization(ctx context.Context, platform rental.Platform, principal string) (string, error) {
	if strings.TrimSpace(principal) == "" {
		return "", ErrNotAuthorized
	}

	app, err := s.loadApp(ctx, platform)
	if err != nil {
		return "", err
	}

	return s.oauthConfig(app).AuthCodeURL(EncodeState(principal)), nil
}

func (s *service) CompleteAuthorization(ctx context.Context, platform rental.Platform, code, state string) (string, error) {
	principal, err := DecodeState(state)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: authorization code is missing", ErrExchangeFailed)
	}

	app, err := s.loadApp(ctx, platform)
	if err != nil {
		return "", err
	}

	token, err := s.oauthConfig(app).Exchange(s.clientContext(ctx, app), code)
	if err != nil {
		s.logger.Warn("oauth code exchange rejected",
			zap.String("platform", string(platform)),
			zap.String("principal", principal),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	if _, err := s.repo.UpsertUserToken(ctx, s.tokenParams(platform, principal, token)); err != nil {
		return "", fmt.Errorf("store user token: %w", err)
	}

	s.logger.Info("platform account authorized",
		zap.String("platform", string(platform)),
		zap.String("principal", principal),
	)
	return principal, nil
}

// oauthConfig builds the x/oauth2 config. OLX takes the client secret in the form body;
// Otodom takes HTTP Basic auth plus the X-API-KEY header (see clientContext).
func (s *service) oauthConfig(app AppCredential) *oauth2.Config {
	endpoints := s.endpoints[app.Platform]

	cfg := &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		RedirectURL:  s.publicBaseURL + CallbackPath(app.Platform),
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.AuthURL,
			TokenURL:  endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	switch app.Platform {
	case rental.PlatformOLX:
		cfg.Scopes = olxScopes
	case rental.PlatformOtodom:
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInHeader
	}
	return cfg
}

// clientContext hands the HTTP client used for token endpoint calls to x/oauth2.
func (s *service) clientContext(ctx context.Context, app AppCredential) context.Context {
	client := s.httpClient
	if app.Platform == rental.PlatformOtodom && app.APIKey != "" {
		headers := http.Header{}
		headers.Set("X-API-KEY", app.APIKey)
		client = partnerhttp.WithHeaders(client, headers)
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

func (s *service) tokenParams(platform rental.Platform, principal string, token *oauth2.Token) persistence.UpsertUserTokenParams {
	expiresAt := token.Expiry.UTC()
	if token.Expiry.IsZero() {
		expiresAt = s.now().Add(defaultTokenLifetime)
	}

	return persistence.UpsertUserTokenParams{
		Platform:     string(platform),
		PrincipalID:  principal,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    &expiresAt,
	}
}

func withDefaults(e, defaults Endpoints) Endpoints {
	if strings.TrimSpace(e.AuthURL) == "" {
		e.AuthURL = defaults.AuthURL
	}
	if strings.TrimSpace(e.TokenURL) == "" {
		e.TokenURL = defaults.TokenURL
	}
	return e
}

// expired uses a strict comparison: a token is usable only while now is before its expiry.
func expired(token UserToken, now time.Time) bool {
	return token.AccessToken == "" || token.ExpiresAt == nil || !now.Before(*token.ExpiresAt)
}
