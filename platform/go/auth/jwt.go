package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/zenGate-Global/rentboard/platform/go/problem"
)

// ErrMissingSubject is returned for tokens that name no user.
var ErrMissingSubject = errors.New("token has no subject")

// Claims is a decoded ID token payload.
type Claims map[string]any

// String returns the first non-empty string claim among keys.
func (c Claims) String(keys ...string) string {
	for _, key := range keys {
		if v, ok := c[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Bool returns a boolean claim, false when absent or mistyped.
func (c Claims) Bool(key string) bool {
	v, _ := c[key].(bool)
	return v
}

// Strings returns a string-array claim, skipping non-string entries.
func (c Claims) Strings(key string) []string {
	raw, ok := c[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Principal maps Firebase-shaped claims onto a Principal.
func (c Claims) Principal() (Principal, error) {
	id := c.String("uid", "user_id", "sub")
	if id == "" {
		return Principal{}, ErrMissingSubject
	}
	return Principal{
		ID:            id,
		Email:         c.String("email"),
		EmailVerified: c.Bool("email_verified"),
		Name:          c.String("name"),
		IsAdmin:       c.Bool("isAdmin"),
		Roles:         c.Strings("roles"),
	}, nil
}

// Verifier checks a bearer token and returns its claims.
type Verifier func(ctx context.Context, token string) (Claims, error)

// FirebaseVerifier verifies Firebase ID tokens.
func FirebaseVerifier(client *firebaseauth.Client) Verifier {
	return func(ctx context.Context, token string) (Claims, error) {
		t, err := client.VerifyIDToken(ctx, token)
		if err != nil {
			return nil, err
		}
		claims := make(Claims, len(t.Claims)+2)
		for k, v := range t.Claims {
			claims[k] = v
		}
		claims["uid"] = t.UID
		claims["sub"] = t.Subject
		return claims, nil
	}
}

// UnsignedVerifier decodes the payload segment without checking any signature. Only for AUTH_PROVIDER=dev.
func UnsignedVerifier() Verifier {
	return func(_ context.Context, token string) (Claims, error) {
		parts := strings.Split(token, ".")
		if len(parts) < 2 {
			return nil, errors.New("invalid token format")
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		var claims Claims
		if err := json.Unmarshal(raw, &claims); err != nil {
			return nil, fmt.Errorf("unmarshal claims: %w", err)
		}
		return claims, nil
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// JWT resolves the principal of requests carrying a bearer token. Requests without one pass
// through anonymous; RequireUser turns them away where needed.
func JWT(verify Verifier) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verifier is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid_token", "the access token could not be verified")
				return
			}
			principal, err := claims.Principal()
			if err != nil {
				unauthorized(w, "invalid_token", "the access token does not identify a user")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			unauthorized(w, "", "sign in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects principals without role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok || !p.HasRole(role) {
				detail := fmt.Sprintf("the %s role is required", role)
				typ := problem.TypeForbidden
				problem.Write(w, problem.Details{Type: &typ, Title: "Forbidden", Status: http.StatusForbidden, Detail: &detail})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, code, detail string) {
	challenge := `Bearer realm="rentboard"`
	if code != "" {
		challenge += fmt.Sprintf(`, error=%q`, code)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	typ := problem.TypeUnauthorized
	problem.Write(w, problem.Details{Type: &typ, Title: "Unauthorized", Status: http.StatusUnauthorized, Detail: &detail})
}
