package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/contracts"
	apartmentshandler "github.com/zenGate-Global/rentboard/domains/apartments/be/handler"
	credentialshandler "github.com/zenGate-Global/rentboard/domains/credentials/be/handler"
	feedshandler "github.com/zenGate-Global/rentboard/domains/feeds/be/handler"
	listingshandler "github.com/zenGate-Global/rentboard/domains/listings/be/handler"
	webhookshandler "github.com/zenGate-Global/rentboard/domains/webhooks/be/handler"
	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/rentboard/platform/go/middleware"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
)

type routerConfig struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	// Auth verifies bearer tokens and stores the principal on the context.
	Auth func(http.Handler) http.Handler
	// Ready backs /readyz; nil always reports ready.
	Ready func(ctx context.Context) error
}

type routeHandlers struct {
	Apartments  *apartmentshandler.Handler
	Credentials *credentialshandler.Handler
	Listings    *listingshandler.Handler
	Webhooks    *webhookshandler.Handler
	Feeds       *feedshandler.Handler
}

// newRouter mounts the public routes (health, docs, feeds, OAuth callback, webhooks) and the
// authenticated API group validated against the embedded contract.
func newRouter(ctx context.Context, cfg routerConfig, h routeHandlers, logger *zap.Logger) (http.Handler, error) {
	spec, err := contracts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	root := chi.NewRouter()
	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(timeout),
	)
	root.Use(platformlogging.RequestLogger(logger))

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				platformlogging.FromRequest(r, logger).Warn("not ready", zap.Error(err))
				detail := "database is unreachable"
				typ := problem.TypeInternal
				problem.Write(w, problem.Details{Type: &typ, Title: "Service unavailable", Status: http.StatusServiceUnavailable, Detail: &detail})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := registerDocsRoutes(root, spec, logger); err != nil {
		return nil, err
	}
	validator := newSpecValidator(spec)

	root.Group(func(r chi.Router) {
		r.Use(platformmiddleware.FeedCORS())
		r.Get("/feeds/olx.xml", h.Feeds.OLX)
		r.Get("/feeds/otodom.xml", h.Feeds.Otodom)
	})

	root.Route("/api/v1", func(api chi.Router) {
		api.Use(platformmiddleware.DefaultCORS(cfg.CORSOrigins))

		// partner-facing endpoints, authenticated by OAuth state and webhook signature;
		// the webhook handler traces itself as partner traffic
		api.With(platformmiddleware.RequestTrace).Get("/integrations/{platform}/callback", h.Credentials.Callback)
		api.Post("/webhooks/{platform}", h.Webhooks.Receive)

		api.Group(func(r chi.Router) {
			r.Use(cfg.Auth)
			r.Use(platformauth.RequireUser)
			r.Use(platformmiddleware.RequestTrace)
			r.Use(validator)

			r.Get("/apartments", h.Apartments.List)
			r.Get("/apartments/{apartmentId}", h.Apartments.Get)
			r.Put("/apartments/{apartmentId}", h.Apartments.Save)

			r.Post("/apartments/{apartmentId}/listings/{platform}", h.Listings.Publish)
			r.Put("/apartments/{apartmentId}/listings/{platform}", h.Listings.Update)
			r.Delete("/apartments/{apartmentId}/listings/{platform}", h.Listings.Delete)
			r.Get("/apartments/{apartmentId}/listings/{platform}", h.Listings.Status)

			r.Get("/integrations/{platform}", h.Credentials.Status)
			r.Delete("/integrations/{platform}", h.Credentials.Disconnect)
			r.Post("/integrations/{platform}/authorize", h.Credentials.Authorize)

			r.With(platformauth.RequireRole(platformauth.RoleAdmin)).Put("/admin/integrations/{platform}/app", h.Credentials.ConfigureApp)
		})
	})

	return root, nil
}

// newSpecValidator builds the oapi-codegen request validator over the embedded contract.
func newSpecValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	// the validator matches on path only; hosts differ between environments
	spec.Servers = nil

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
	})
}
