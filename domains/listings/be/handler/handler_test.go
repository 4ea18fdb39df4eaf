package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	credentials "github.com/zenGate-Global/rentboard/domains/credentials/be/service"
	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/domains/listings/be/service"
	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type mockService struct {
	publishFn func(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error)
	updateFn  func(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error)
	deleteFn  func(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error)
	statusFn  func(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error)
}

func (m *mockService) Publish(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error) {
	if m.publishFn == nil {
		panic("publishFn not configured")
	}
	return m.publishFn(ctx, platform, principal, id)
}

func (m *mockService) Update(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, platform, principal, id)
}

func (m *mockService) Delete(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error) {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, platform, principal, id)
}

func (m *mockService) Status(ctx context.Context, platform rental.Platform, principal string, id uuid.UUID) (service.Outcome, error) {
	if m.statusFn == nil {
		panic("statusFn not configured")
	}
	return m.statusFn(ctx, platform, principal, id)
}

func newRouter(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	h := New(svc, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Route("/api/v1/apartments/{apartmentId}/listings/{platform}", func(r chi.Router) {
		r.Post("/", h.Publish)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/", h.Status)
	})
	return r
}

func do(t *testing.T, svc service.Service, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(platformauth.WithPrincipal(req.Context(), platformauth.Principal{ID: "owner-1"}))
	resp := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(resp, req)
	return resp
}

func decodeProblem(t *testing.T, resp *httptest.ResponseRecorder) problem.Details {
	t.Helper()
	var p problem.Details
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &p))
	return p
}

func TestPublishCreatedAndPendingAccepted(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &mockService{publishFn: func(ctx context.Context, platform rental.Platform, principal string, got uuid.UUID) (service.Outcome, error) {
		require.Equal(t, "owner-1", principal)
		require.Equal(t, id, got)
		if platform == rental.PlatformOtodom {
			return service.Outcome{Success: true, Pending: true, Message: "submitted"}, nil
		}
		return service.Outcome{Success: true, AdvertID: "1001", URL: "https://www.olx.pl/d/1001"}, nil
	}}

	resp := do(t, svc, http.MethodPost, "/api/v1/apartments/"+id.String()+"/listings/olx")
	require.Equal(t, http.StatusCreated, resp.Code)
	var body outcomeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "1001", body.AdvertID)

	resp = do(t, svc, http.MethodPost, "/api/v1/apartments/"+id.String()+"/listings/otodom")
	require.Equal(t, http.StatusAccepted, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.True(t, body.Pending)
}

func TestErrorsAreDistinguishable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already published", service.ErrAlreadyPublished, http.StatusConflict, CodeAlreadyPublished},
		{"still pending", service.ErrStillPending, http.StatusConflict, CodeStillPending},
		{"timeout", &partner.RejectionError{Op: partner.OpPublish, Platform: rental.PlatformOLX, Message: "deadline exceeded"}, http.StatusServiceUnavailable, CodeTransient},
		{"upstream 502", &partner.RejectionError{Op: partner.OpPublish, Platform: rental.PlatformOLX, StatusCode: 502, Message: "bad gateway"}, http.StatusServiceUnavailable, CodeTransient},
		{"rejected", &partner.RejectionError{Op: partner.OpPublish, Platform: rental.PlatformOLX, StatusCode: 400, Message: "Price is too low"}, http.StatusUnprocessableEntity, CodeRejected},
		{"reconnect", credentials.ErrRefreshFailed, http.StatusConflict, CodeReconnect},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := &mockService{publishFn: func(context.Context, rental.Platform, string, uuid.UUID) (service.Outcome, error) {
				return service.Outcome{}, tc.err
			}}

			resp := do(t, svc, http.MethodPost, "/api/v1/apartments/"+uuid.NewString()+"/listings/olx")
			require.Equal(t, tc.status, resp.Code)
			p := decodeProblem(t, resp)
			require.NotNil(t, p.Code)
			require.Equal(t, tc.code, *p.Code)
			require.NotNil(t, p.Detail)
		})
	}
}

func TestRejectionDetailCarriesPlatformMessage(t *testing.T) {
	t.Parallel()

	svc := &mockService{updateFn: func(context.Context, rental.Platform, string, uuid.UUID) (service.Outcome, error) {
		return service.Outcome{}, &partner.RejectionError{Op: partner.OpUpdate, Platform: rental.PlatformOtodom, StatusCode: 400, Message: "Invalid street"}
	}}

	resp := do(t, svc, http.MethodPut, "/api/v1/apartments/"+uuid.NewString()+"/listings/otodom")
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Contains(t, *decodeProblem(t, resp).Detail, "Invalid street")
}

func TestBadPathParameters(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	require.Equal(t, http.StatusNotFound, do(t, svc, http.MethodGet, "/api/v1/apartments/"+uuid.NewString()+"/listings/allegro").Code)
	require.Equal(t, http.StatusBadRequest, do(t, svc, http.MethodGet, "/api/v1/apartments/nope/listings/olx").Code)
}

func TestRequiresPrincipal(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	newRouter(t, &mockService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/apartments/"+uuid.NewString()+"/listings/olx", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
