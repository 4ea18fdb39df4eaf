package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

type tokenKey struct {
	platform  string
	principal string
}

// MemoryRepository keeps credentials in process memory. Used by tests and the dev server profile.
type MemoryRepository struct {
	mu     sync.RWMutex
	apps   map[string]persistence.AppCredentialRecord
	tokens map[tokenKey]persistence.UserTokenRecord
	now    func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		apps:   make(map[string]persistence.AppCredentialRecord),
		tokens: make(map[tokenKey]persistence.UserTokenRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) GetApp(_ context.Context, platform string) (persistence.AppCredentialRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.apps[platform]
	if !ok {
		return persistence.AppCredentialRecord{}, persistence.ErrAppCredentialNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) UpsertApp(_ context.Context, record persistence.AppCredentialRecord) (persistence.AppCredentialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	record.ClientID = strings.TrimSpace(record.ClientID)
	record.ClientSecret = strings.TrimSpace(record.ClientSecret)
	record.APIKey = strings.TrimSpace(record.APIKey)
	if existing, ok := r.apps[record.Platform]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	r.apps[record.Platform] = record
	return record, nil
}

func (r *MemoryRepository) GetUserToken(_ context.Context, platform, principalID string) (persistence.UserTokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tokens[tokenKey{platform, principalID}]
	if !ok {
		return persistence.UserTokenRecord{}, persistence.ErrUserTokenNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) UpsertUserToken(_ context.Context, params persistence.UpsertUserTokenParams) (persistence.UserTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := tokenKey{params.Platform, params.PrincipalID}
	rec, ok := r.tokens[key]
	if !ok {
		rec = persistence.UserTokenRecord{Platform: params.Platform, PrincipalID: params.PrincipalID, CreatedAt: now}
	}
	rec.AccessToken = params.AccessToken
	rec.RefreshToken = params.RefreshToken
	rec.ExpiresAt = params.ExpiresAt
	rec.IsActive = true
	rec.LastSyncAt = &now
	rec.LastError = nil
	rec.UpdatedAt = now
	r.tokens[key] = rec
	return rec, nil
}

func (r *MemoryRepository) RecordUserTokenError(_ context.Context, platform, principalID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenKey{platform, principalID}
	rec, ok := r.tokens[key]
	if !ok {
		return persistence.ErrUserTokenNotFound
	}
	rec.LastError = &message
	rec.UpdatedAt = r.now()
	r.tokens[key] = rec
	return nil
}

func (r *MemoryRepository) DeactivateUserToken(_ context.Context, platform, principalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenKey{platform, principalID}
	rec, ok := r.tokens[key]
	if !ok {
		return persistence.ErrUserTokenNotFound
	}
	rec.AccessToken = ""
	rec.RefreshToken = ""
	rec.ExpiresAt = nil
	rec.IsActive = false
	rec.UpdatedAt = r.now()
	r.tokens[key] = rec
	return nil
}

// PutUserToken stores a token row verbatim. Tests use it to seed expired or inactive tokens.
func (r *MemoryRepository) PutUserToken(record persistence.UserTokenRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenKey{record.Platform, record.PrincipalID}] = record
}
