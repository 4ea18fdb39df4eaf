// Package devtoken mints unsigned Firebase-shaped ID tokens for AUTH_PROVIDER=dev, so the API
// can be exercised locally as any landlord or admin without a Firebase project.
package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	defaultLifetime       = time.Hour
	defaultSignInProvider = "password"
	issuerPrefix          = "https://securetoken.google.com/"
)

// Params are the claims of the minted token. ProjectID, UserID and Email are required.
type Params struct {
	ProjectID              string
	UserID                 string // becomes uid/sub/user_id; the API uses it as the owner key
	Email                  string
	Name                   string
	EmailVerified          bool
	IsAdmin                bool // grants marketplace app configuration
	Roles                  []string
	FirebaseSignInProvider string        // defaults to "password"
	ExpiresIn              time.Duration // defaults to one hour
	Audience               string        // defaults to ProjectID
	Issuer                 string        // defaults to the securetoken issuer of ProjectID
}

type firebaseClaim struct {
	Identities     map[string][]string `json:"identities"`
	SignInProvider string              `json:"sign_in_provider"`
}

type claims struct {
	Issuer        string        `json:"iss"`
	Audience      string        `json:"aud"`
	AuthTime      int64         `json:"auth_time"`
	IssuedAt      int64         `json:"iat"`
	ExpiresAt     int64         `json:"exp"`
	Subject       string        `json:"sub"`
	UserID        string        `json:"user_id"`
	Email         string        `json:"email"`
	EmailVerified bool          `json:"email_verified"`
	Name          string        `json:"name,omitempty"`
	IsAdmin       bool          `json:"isAdmin"`
	Roles         []string      `json:"roles,omitempty"`
	Firebase      firebaseClaim `json:"firebase"`
}

func (p Params) validate() error {
	var errs []error
	if strings.TrimSpace(p.ProjectID) == "" {
		errs = append(errs, errors.New("project id is required"))
	}
	if strings.TrimSpace(p.UserID) == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if strings.TrimSpace(p.Email) == "" {
		errs = append(errs, errors.New("email is required"))
	}
	return errors.Join(errs...)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// BuildUnsignedFirebaseToken returns "<header>.<payload>" with alg "none". A zero now means
// the current time.
func BuildUnsignedFirebaseToken(p Params, now time.Time) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	lifetime := p.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}

	payload := claims{
		Issuer:        orDefault(p.Issuer, issuerPrefix+p.ProjectID),
		Audience:      orDefault(p.Audience, p.ProjectID),
		AuthTime:      now.Unix(),
		IssuedAt:      now.Unix(),
		ExpiresAt:     now.Add(lifetime).Unix(),
		Subject:       p.UserID,
		UserID:        p.UserID,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		Name:          p.Name,
		IsAdmin:       p.IsAdmin,
		Roles:         p.Roles,
		Firebase: firebaseClaim{
			Identities:     map[string][]string{"email": {p.Email}},
			SignInProvider: orDefault(p.FirebaseSignInProvider, defaultSignInProvider),
		},
	}

	header, err := segment(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	body, err := segment(payload)
	if err != nil {
		return "", err
	}
	return header + "." + body, nil
}

func segment(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
