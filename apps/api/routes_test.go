package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apartmentshandler "github.com/zenGate-Global/rentboard/domains/apartments/be/handler"
	apartmentsrepo "github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	apartmentsservice "github.com/zenGate-Global/rentboard/domains/apartments/be/service"
	credentialshandler "github.com/zenGate-Global/rentboard/domains/credentials/be/handler"
	credentialsrepo "github.com/zenGate-Global/rentboard/domains/credentials/be/repo"
	credentialsservice "github.com/zenGate-Global/rentboard/domains/credentials/be/service"
	feedshandler "github.com/zenGate-Global/rentboard/domains/feeds/be/handler"
	feedsservice "github.com/zenGate-Global/rentboard/domains/feeds/be/service"
	listingshandler "github.com/zenGate-Global/rentboard/domains/listings/be/handler"
	listingsservice "github.com/zenGate-Global/rentboard/domains/listings/be/service"
	webhookshandler "github.com/zenGate-Global/rentboard/domains/webhooks/be/handler"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
	webhooksrepo "github.com/zenGate-Global/rentboard/domains/webhooks/be/repo"
	webhooksservice "github.com/zenGate-Global/rentboard/domains/webhooks/be/service"
	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	"github.com/zenGate-Global/rentboard/platform/go/auth/devtoken"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

func testRouter(t *testing.T, seed ...rental.Apartment) http.Handler {
	t.Helper()
	return testRouterWithReadiness(t, nil, seed...)
}

func testRouterWithReadiness(t *testing.T, ready func(context.Context) error, seed ...rental.Apartment) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	apartments := apartmentsrepo.NewMemoryRepository(seed...)
	failures := webhooksrepo.NewMemoryFailureLog()
	credentials := credentialsservice.New(credentialsrepo.NewMemoryRepository(), credentialsservice.Config{
		PublicBaseURL: "https://rentboard.example",
		Logger:        logger,
	})

	router, err := newRouter(context.Background(), routerConfig{
		Auth:  platformauth.JWT(platformauth.UnsignedVerifier()),
		Ready: ready,
	}, routeHandlers{
		Apartments:  apartmentshandler.New(apartmentsservice.New(apartments), logger),
		Credentials: credentialshandler.New(credentials, logger),
		Listings:    listingshandler.New(listingsservice.New(apartments, logger), logger),
		Webhooks: webhookshandler.New(webhooksservice.New(
			queue.NewMemoryQueue(queue.MemoryConfig{Buffer: 8}), failures, webhooksservice.Config{}, logger,
		), logger),
		Feeds: feedshandler.New(feedsservice.New(apartments, feedsservice.Config{BaseURL: "https://rentboard.example"}, logger), logger),
	}, logger)
	require.NoError(t, err)
	return router
}

func bearer(t *testing.T, userID string, admin bool) string {
	t.Helper()
	token, err := devtoken.BuildUnsignedFirebaseToken(devtoken.Params{
		ProjectID: "rentboard-dev",
		UserID:    userID,
		Email:     userID + "@example.com",
		IsAdmin:   admin,
	}, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func TestPublicRoutes(t *testing.T) {
	t.Parallel()

	router := testRouter(t, rental.Apartment{
		ID: uuid.New(), Title: "Flat", Price: 2500, AreaM2: 40, Status: rental.StatusAvailable,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feeds/olx.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, feedshandler.ContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "<advert>")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi/rentboard.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "listingsPublish")

	body := `{"flow":"publish_advert","event_type":"advert_posted_success","object_id":"1","transaction_id":"t"}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/otodom", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestReadinessReflectsDatabase(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	down := testRouterWithReadiness(t, func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apartments", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/apartments", nil)
	req.Header.Set("Authorization", bearer(t, "owner-1", false))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestAdminRouteRequiresAdmin(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	body := `{"clientId":"id","clientSecret":"secret"}`

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/integrations/olx/app", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "owner-1", false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/integrations/olx/app", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "admin-1", true))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestContractRejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/apartments/not-a-uuid/listings/olx", nil)
	req.Header.Set("Authorization", bearer(t, "owner-1", false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/integrations/allegro", nil)
	req.Header.Set("Authorization", bearer(t, "owner-1", false))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
