package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// AccessToken returns a live access token for (platform, principal), refreshing it when expired.
// Concurrent refreshes for the same principal are not coordinated; the last stored pair wins.
func (s *service) AccessToken(ctx context.Context, platform rental.Platform, principal string) (string, error) {
	app, err := s.loadApp(ctx, platform)
	if err != nil {
		return "", err
	}

	record, err := s.repo.GetUserToken(ctx, string(platform), principal)
	if err != nil {
		if errors.Is(err, persistence.ErrUserTokenNotFound) {
			return "", ErrNotAuthorized
		}
		return "", fmt.Errorf("load user token: %w", err)
	}

	token := mapToken(record)
	if !token.Active {
		return "", ErrNotAuthorized
	}
	if !expired(token, s.now()) {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		return "", ErrNotAuthorized
	}

	source := s.oauthConfig(app).TokenSource(s.clientContext(ctx, app), &oauth2.Token{RefreshToken: token.RefreshToken})
	fresh, err := source.Token()
	if err != nil {
		s.logger.Warn("token refresh rejected",
			zap.String("platform", string(platform)),
			zap.String("principal", principal),
			zap.Error(err),
		)
		if recErr := s.repo.RecordUserTokenError(ctx, string(platform), principal, err.Error()); recErr != nil {
			s.logger.Error("record token refresh error", zap.Error(recErr))
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if _, err := s.repo.UpsertUserToken(ctx, s.tokenParams(platform, principal, fresh)); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}

	return fresh.AccessToken, nil
}
