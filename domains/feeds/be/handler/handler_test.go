package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/rentboard/domains/feeds/be/service"
	"github.com/zenGate-Global/rentboard/platform/go/middleware"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type mockService struct {
	generateFn func(ctx context.Context, platform rental.Platform, ownerHint string) ([]byte, error)
}

func (m *mockService) Generate(ctx context.Context, platform rental.Platform, ownerHint string) ([]byte, error) {
	if m.generateFn == nil {
		panic("generateFn not configured")
	}
	return m.generateFn(ctx, platform, ownerHint)
}

func newRouter(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	h := New(svc, zaptest.NewLogger(t))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.FeedCORS())
		r.Get("/feeds/olx.xml", h.OLX)
		r.Get("/feeds/otodom.xml", h.Otodom)
	})
	return r
}

func TestFeedServesXML(t *testing.T) {
	t.Parallel()

	var gotPlatform rental.Platform
	var gotOwner string
	svc := &mockService{generateFn: func(_ context.Context, platform rental.Platform, owner string) ([]byte, error) {
		gotPlatform = platform
		gotOwner = owner
		return []byte("<offers></offers>"), nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/feeds/otodom.xml?owner=owner-1", nil)
	req.Header.Set("Origin", "https://crawler.example")
	rec := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "<offers></offers>", rec.Body.String())
	require.Equal(t, rental.PlatformOtodom, gotPlatform)
	require.Equal(t, "owner-1", gotOwner)
}

func TestFeedFailureIsProblem(t *testing.T) {
	t.Parallel()

	svc := &mockService{generateFn: func(context.Context, rental.Platform, string) ([]byte, error) {
		return nil, errors.New("db down")
	}}
	rec := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feeds/olx.xml", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	require.NotContains(t, rec.Body.String(), "db down")
}
