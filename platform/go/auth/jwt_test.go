package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/rentboard/platform/go/problem"
)

func unsignedToken(payload string) string {
	return "e30." + base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func TestClaimsPrincipal(t *testing.T) {
	p, err := Claims{
		"user_id":        "user-123",
		"email":          "user@example.com",
		"isAdmin":        true,
		"email_verified": true,
		"name":           "Agata",
		"roles":          []any{"landlord", 7},
	}.Principal()
	require.NoError(t, err)
	require.Equal(t, Principal{
		ID:            "user-123",
		Email:         "user@example.com",
		EmailVerified: true,
		Name:          "Agata",
		IsAdmin:       true,
		Roles:         []string{"landlord"},
	}, p)

	_, err = Claims{"email": "nobody@example.com"}.Principal()
	require.ErrorIs(t, err, ErrMissingSubject)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := BearerToken(req)
	require.False(t, ok)

	req.Header.Set("Authorization", "bearer abc")
	token, ok := BearerToken(req)
	require.True(t, ok)
	require.Equal(t, "abc", token)

	req.Header.Set("Authorization", "Basic abc")
	_, ok = BearerToken(req)
	require.False(t, ok)
}

func TestJWTWithUnsignedVerifierAndRequireUser(t *testing.T) {
	var seen string
	handler := JWT(UnsignedVerifier())(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	anonymous := httptest.NewRecorder()
	handler.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, anonymous.Code)
	require.Equal(t, problem.ContentType, anonymous.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(`{"uid":"user-123"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, "user-123", seen)
}

func TestJWTRejectsBadTokens(t *testing.T) {
	cases := map[string]Verifier{
		"undecodable": UnsignedVerifier(),
		"no subject": func(context.Context, string) (Claims, error) {
			return Claims{"email": "a@b.c"}, nil
		},
		"verifier error": func(context.Context, string) (Claims, error) {
			return nil, errors.New("expired")
		},
	}
	for name, verify := range cases {
		t.Run(name, func(t *testing.T) {
			handler := JWT(verify)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer nodots")
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			require.Equal(t, http.StatusUnauthorized, resp.Code)
			require.Contains(t, resp.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
		})
	}
}

func TestJWTLetsPreflightThrough(t *testing.T) {
	handler := JWT(func(context.Context, string) (Claims, error) {
		panic("verifier must not run for OPTIONS")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestRequireRoleAdmin(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(WithPrincipal(req.Context(), Principal{ID: "u"})))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(WithPrincipal(req.Context(), Principal{ID: "u", IsAdmin: true})))
	require.Equal(t, http.StatusOK, resp.Code)
}
