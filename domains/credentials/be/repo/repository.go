package repo

import (
	"context"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

// Repository defines the persistence operations required by the credentials service.
type Repository interface {
	GetApp(ctx context.Context, platform string) (persistence.AppCredentialRecord, error)
	UpsertApp(ctx context.Context, record persistence.AppCredentialRecord) (persistence.AppCredentialRecord, error)
	GetUserToken(ctx context.Context, platform, principalID string) (persistence.UserTokenRecord, error)
	UpsertUserToken(ctx context.Context, params persistence.UpsertUserTokenParams) (persistence.UserTokenRecord, error)
	RecordUserTokenError(ctx context.Context, platform, principalID, message string) error
	DeactivateUserToken(ctx context.Context, platform, principalID string) error
}

type postgresRepository struct {
	store *persistence.CredentialStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.CredentialStore) Repository {
	if store == nil {
		panic("credential store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) GetApp(ctx context.Context, platform string) (persistence.AppCredentialRecord, error) {
	return r.store.GetAppCredential(ctx, platform)
}

func (r *postgresRepository) UpsertApp(ctx context.Context, record persistence.AppCredentialRecord) (persistence.AppCredentialRecord, error) {
	return r.store.UpsertAppCredential(ctx, record)
}

func (r *postgresRepository) GetUserToken(ctx context.Context, platform, principalID string) (persistence.UserTokenRecord, error) {
	return r.store.GetUserToken(ctx, platform, principalID)
}

func (r *postgresRepository) UpsertUserToken(ctx context.Context, params persistence.UpsertUserTokenParams) (persistence.UserTokenRecord, error) {
	return r.store.UpsertUserToken(ctx, params)
}

func (r *postgresRepository) RecordUserTokenError(ctx context.Context, platform, principalID, message string) error {
	return r.store.RecordUserTokenError(ctx, platform, principalID, message)
}

func (r *postgresRepository) DeactivateUserToken(ctx context.Context, platform, principalID string) error {
	return r.store.DeactivateUserToken(ctx, platform, principalID)
}
