package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// Repository abstracts apartment persistence together with the per-platform listing references.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (rental.Apartment, error)
	ListByStatus(ctx context.Context, status rental.Status, ownerID *string) ([]rental.Apartment, error)
	Upsert(ctx context.Context, apt rental.Apartment) (rental.Apartment, error)
	SetExternalRef(ctx context.Context, id uuid.UUID, platform rental.Platform, ref rental.ExternalRef) error
	ConfirmPendingRef(ctx context.Context, platform rental.Platform, transactionID, listingID string) (uuid.UUID, error)
	MarkPendingRefError(ctx context.Context, platform rental.Platform, transactionID, message string) (uuid.UUID, error)
}

type postgresRepository struct {
	store *persistence.ApartmentStore
}

// NewPostgresRepository returns a repository backed by the shared ApartmentStore.
func NewPostgresRepository(store *persistence.ApartmentStore) Repository {
	if store == nil {
		panic("apartment store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (rental.Apartment, error) {
	return r.store.GetApartment(ctx, id)
}

func (r *postgresRepository) ListByStatus(ctx context.Context, status rental.Status, ownerID *string) ([]rental.Apartment, error) {
	return r.store.ListApartmentsByStatus(ctx, status, ownerID)
}

func (r *postgresRepository) Upsert(ctx context.Context, apt rental.Apartment) (rental.Apartment, error) {
	return r.store.UpsertApartment(ctx, apt)
}

func (r *postgresRepository) SetExternalRef(ctx context.Context, id uuid.UUID, platform rental.Platform, ref rental.ExternalRef) error {
	return r.store.SetExternalRef(ctx, id, platform, ref)
}

func (r *postgresRepository) ConfirmPendingRef(ctx context.Context, platform rental.Platform, transactionID, listingID string) (uuid.UUID, error) {
	return r.store.ConfirmPendingRef(ctx, platform, transactionID, listingID)
}

func (r *postgresRepository) MarkPendingRefError(ctx context.Context, platform rental.Platform, transactionID, message string) (uuid.UUID, error) {
	return r.store.MarkPendingRefError(ctx, platform, transactionID, message)
}
