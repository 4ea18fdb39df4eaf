package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	"github.com/zenGate-Global/rentboard/platform/go/gcp"
)

// buildAuthMiddleware constructs the JWT middleware for the configured identity provider.
func buildAuthMiddleware(ctx context.Context, cfg config, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	var verify platformauth.Verifier
	switch cfg.AuthProvider {
	case "firebase":
		fbAuth, err := gcp.NewAuthClient(ctx, gcp.FirebaseOptionsFromEnv())
		if err != nil {
			return nil, fmt.Errorf("init firebase auth: %w", err)
		}
		verify = platformauth.FirebaseVerifier(fbAuth)
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		verify = platformauth.UnsignedVerifier()
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.AuthProvider)
	}

	return platformauth.JWT(verify), nil
}
