package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
)

func authInput(scheme string, r *http.Request) *openapi3filter.AuthenticationInput {
	return &openapi3filter.AuthenticationInput{
		SecuritySchemeName:     scheme,
		RequestValidationInput: &openapi3filter.RequestValidationInput{Request: r},
	}
}

func requestWith(header string, principal *platformauth.Principal) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/integrations/olx", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	if principal != nil {
		r = r.WithContext(platformauth.WithPrincipal(r.Context(), *principal))
	}
	return r
}

func TestValidateAuthenticationViaSwagger(t *testing.T) {
	ctx := context.Background()
	owner := &platformauth.Principal{ID: "owner-1"}

	require.NoError(t, ValidateAuthenticationViaSwagger(ctx, authInput("bearerAuth", requestWith("Bearer abc", owner))))

	require.ErrorIs(t, ValidateAuthenticationViaSwagger(ctx, authInput("bearerAuth", requestWith("Basic abc", owner))), errMissingBearer)
	require.ErrorIs(t, ValidateAuthenticationViaSwagger(ctx, authInput("bearerAuth", requestWith("Bearer abc", nil))), errUnverifiedBearer)
	require.ErrorIs(t, ValidateAuthenticationViaSwagger(ctx, authInput("bearerAuth", nil)), errNoRequest)

	require.Error(t, ValidateAuthenticationViaSwagger(ctx, authInput("apiKey", requestWith("Bearer abc", owner))))
	require.NoError(t, ValidateAuthenticationViaSwagger(ctx, nil))
}
