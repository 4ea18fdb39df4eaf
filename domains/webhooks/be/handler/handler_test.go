package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/rentboard/domains/webhooks/be/service"
	"github.com/zenGate-Global/rentboard/platform/go/problem"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type mockService struct {
	receiveFn func(ctx context.Context, platform rental.Platform, raw []byte, signature string) (service.Receipt, error)
}

func (m *mockService) Receive(ctx context.Context, platform rental.Platform, raw []byte, signature string) (service.Receipt, error) {
	if m.receiveFn == nil {
		panic("receiveFn not configured")
	}
	return m.receiveFn(ctx, platform, raw, signature)
}

func newRouter(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	h := New(svc, zaptest.NewLogger(t))
	r := chi.NewRouter()
	r.Post("/api/v1/webhooks/{platform}", h.Receive)
	return r
}

func TestReceiveAcknowledges(t *testing.T) {
	t.Parallel()

	var gotSignature string
	var gotBody string
	svc := &mockService{receiveFn: func(_ context.Context, platform rental.Platform, raw []byte, signature string) (service.Receipt, error) {
		require.Equal(t, rental.PlatformOtodom, platform)
		gotSignature = signature
		gotBody = string(raw)
		return service.Receipt{TaskID: uuid.New(), Verified: true, Queued: true}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/otodom", strings.NewReader(`{"flow":"publish_advert"}`))
	req.Header.Set("X-Signature", "abc123")
	rec := httptest.NewRecorder()
	newRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"received":true}`, rec.Body.String())
	require.Equal(t, "abc123", gotSignature)
	require.Equal(t, `{"flow":"publish_advert"}`, gotBody)
}

func TestReceiveMapsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "malformed", err: fmt.Errorf("%w: missing transaction_id", service.ErrMalformedPayload), status: http.StatusBadRequest},
		{name: "signature", err: service.ErrInvalidSignature, status: http.StatusUnauthorized},
		{name: "unexpected", err: fmt.Errorf("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{receiveFn: func(context.Context, rental.Platform, []byte, string) (service.Receipt, error) {
				return service.Receipt{}, tc.err
			}}
			rec := httptest.NewRecorder()
			newRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/otodom", strings.NewReader(`{}`)))

			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))

			var p problem.Details
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			require.Equal(t, tc.status, p.Status)
		})
	}
}

func TestReceiveRejectsUnknownPlatformAndOversizedBody(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &mockService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/allegro", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	big := strings.Repeat("a", MaxBodyBytes+1)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/otodom", strings.NewReader(big)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
