package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	AppCredentialsTable = "integration_app_credentials"
	UserTokensTable     = "integration_user_tokens"
)

var (
	// ErrAppCredentialNotFound indicates no application credentials are stored for the platform.
	ErrAppCredentialNotFound = errors.New("app credential not found")
	// ErrUserTokenNotFound indicates no token row exists for (platform, principal).
	ErrUserTokenNotFound = errors.New("user token not found")
)

// AppCredentialRecord is one row of integration_app_credentials.
type AppCredentialRecord struct {
	Platform     string    `db:"platform"`
	ClientID     string    `db:"client_id"`
	ClientSecret string    `db:"client_secret"`
	APIKey       string    `db:"api_key"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UserTokenRecord is one row of integration_user_tokens.
type UserTokenRecord struct {
	Platform     string     `db:"platform"`
	PrincipalID  string     `db:"principal_id"`
	AccessToken  string     `db:"access_token"`
	RefreshToken string     `db:"refresh_token"`
	ExpiresAt    *time.Time `db:"expires_at"`
	IsActive     bool       `db:"is_active"`
	LastSyncAt   *time.Time `db:"last_sync_at"`
	LastError    *string    `db:"last_error"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// UpsertUserTokenParams carries a freshly issued token set.
type UpsertUserTokenParams struct {
	Platform     string
	PrincipalID  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// CredentialStore persists application credentials and per-principal OAuth tokens.
type CredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore returns a store bound to the pool.
func NewCredentialStore(pool *pgxpool.Pool) (*CredentialStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CredentialStore{pool: pool}, nil
}

// GetAppCredential returns the application credentials for the platform.
func (s *CredentialStore) GetAppCredential(ctx context.Context, platform string) (AppCredentialRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT platform, client_id, client_secret, api_key, created_at, updated_at
        FROM %s WHERE platform = $1
    `, AppCredentialsTable), platform)

	var rec AppCredentialRecord
	if err := row.Scan(&rec.Platform, &rec.ClientID, &rec.ClientSecret, &rec.APIKey, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AppCredentialRecord{}, ErrAppCredentialNotFound
		}
		return AppCredentialRecord{}, err
	}
	return rec, nil
}

// UpsertAppCredential stores the application credentials, replacing any previous values.
func (s *CredentialStore) UpsertAppCredential(ctx context.Context, rec AppCredentialRecord) (AppCredentialRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (platform, client_id, client_secret, api_key)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (platform) DO UPDATE SET
            client_id = EXCLUDED.client_id, client_secret = EXCLUDED.client_secret,
            api_key = EXCLUDED.api_key, updated_at = NOW()
        RETURNING platform, client_id, client_secret, api_key, created_at, updated_at
    `, AppCredentialsTable),
		rec.Platform,
		strings.TrimSpace(rec.ClientID),
		strings.TrimSpace(rec.ClientSecret),
		strings.TrimSpace(rec.APIKey),
	)

	var saved AppCredentialRecord
	if err := row.Scan(&saved.Platform, &saved.ClientID, &saved.ClientSecret, &saved.APIKey, &saved.CreatedAt, &saved.UpdatedAt); err != nil {
		return AppCredentialRecord{}, fmt.Errorf("upsert app credential: %w", err)
	}
	return saved, nil
}

const userTokenColumns = `platform, principal_id, access_token, refresh_token, expires_at, is_active,
        last_sync_at, last_error, created_at, updated_at`

// GetUserToken returns the token row for (platform, principal).
func (s *CredentialStore) GetUserToken(ctx context.Context, platform, principalID string) (UserTokenRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE platform = $1 AND principal_id = $2
    `, userTokenColumns, UserTokensTable), platform, principalID)

	rec, err := scanUserToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserTokenRecord{}, ErrUserTokenNotFound
		}
		return UserTokenRecord{}, err
	}
	return rec, nil
}

// UpsertUserToken stores a token set, marks it active, stamps last_sync_at and clears last_error.
func (s *CredentialStore) UpsertUserToken(ctx context.Context, params UpsertUserTokenParams) (UserTokenRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (platform, principal_id, access_token, refresh_token, expires_at, is_active, last_sync_at, last_error)
        VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NULL)
        ON CONFLICT (platform, principal_id) DO UPDATE SET
            access_token = EXCLUDED.access_token, refresh_token = EXCLUDED.refresh_token,
            expires_at = EXCLUDED.expires_at, is_active = TRUE, last_sync_at = NOW(),
            last_error = NULL, updated_at = NOW()
        RETURNING %s
    `, UserTokensTable, userTokenColumns),
		params.Platform, params.PrincipalID, params.AccessToken, params.RefreshToken, params.ExpiresAt,
	)

	rec, err := scanUserToken(row)
	if err != nil {
		return UserTokenRecord{}, fmt.Errorf("upsert user token: %w", err)
	}
	return rec, nil
}

// RecordUserTokenError stores the last failure message without touching the token material.
func (s *CredentialStore) RecordUserTokenError(ctx context.Context, platform, principalID, message string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET last_error = $3, updated_at = NOW()
        WHERE platform = $1 AND principal_id = $2
    `, UserTokensTable), platform, principalID, message)
	if err != nil {
		return fmt.Errorf("record user token error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserTokenNotFound
	}
	return nil
}

// DeactivateUserToken wipes the token material and marks the row inactive.
func (s *CredentialStore) DeactivateUserToken(ctx context.Context, platform, principalID string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s
        SET access_token = '', refresh_token = '', expires_at = NULL, is_active = FALSE, updated_at = NOW()
        WHERE platform = $1 AND principal_id = $2
    `, UserTokensTable), platform, principalID)
	if err != nil {
		return fmt.Errorf("deactivate user token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserTokenNotFound
	}
	return nil
}

func scanUserToken(row pgx.Row) (UserTokenRecord, error) {
	var rec UserTokenRecord
	if err := row.Scan(
		&rec.Platform, &rec.PrincipalID, &rec.AccessToken, &rec.RefreshToken, &rec.ExpiresAt, &rec.IsActive,
		&rec.LastSyncAt, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return UserTokenRecord{}, err
	}
	return rec, nil
}
