package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3filter"

	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
)

var (
	errNoRequest        = errors.New("no request in validation input")
	errMissingBearer    = errors.New("missing or invalid Authorization header")
	errUnverifiedBearer = errors.New("bearer token was not verified")
)

// ValidateAuthenticationViaSwagger is the AuthenticationFunc of the contract validator. It runs
// after auth.JWT, so a bearerAuth operation passes only when a principal was resolved from the header.
func ValidateAuthenticationViaSwagger(_ context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil {
		return nil
	}
	if input.SecuritySchemeName != "bearerAuth" {
		return fmt.Errorf("unsupported security scheme %q", input.SecuritySchemeName)
	}

	r := input.RequestValidationInput.Request
	if r == nil {
		return errNoRequest
	}
	if _, ok := platformauth.BearerToken(r); !ok {
		return errMissingBearer
	}
	if _, ok := platformauth.PrincipalFrom(r.Context()); !ok {
		return errUnverifiedBearer
	}
	return nil
}
