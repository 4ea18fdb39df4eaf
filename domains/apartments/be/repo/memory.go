package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// MemoryRepository keeps apartments in process memory. It mirrors the Postgres store
// semantics, including the uniqueness of pending transaction ids per platform.
type MemoryRepository struct {
	mu         sync.RWMutex
	apartments map[uuid.UUID]rental.Apartment
	now        func() time.Time
}

// NewMemoryRepository returns a repository seeded with the given apartments.
func NewMemoryRepository(seed ...rental.Apartment) *MemoryRepository {
	r := &MemoryRepository{
		apartments: make(map[uuid.UUID]rental.Apartment, len(seed)),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, apt := range seed {
		r.apartments[apt.ID] = cloneApartment(apt)
	}
	return r
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (rental.Apartment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apt, ok := r.apartments[id]
	if !ok {
		return rental.Apartment{}, persistence.ErrApartmentNotFound
	}
	return cloneApartment(apt), nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status rental.Status, ownerID *string) ([]rental.Apartment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rental.Apartment, 0)
	for _, apt := range r.apartments {
		if apt.Status != status {
			continue
		}
		if ownerID != nil && (apt.OwnerID == nil || *apt.OwnerID != *ownerID) {
			continue
		}
		out = append(out, cloneApartment(apt))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, apt rental.Apartment) (rental.Apartment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.apartments[apt.ID]; ok {
		apt.CreatedAt = existing.CreatedAt
		apt.ExternalRefs = existing.ExternalRefs
	} else {
		apt.CreatedAt = now
		apt.ExternalRefs = nil
	}
	apt.UpdatedAt = now
	r.apartments[apt.ID] = cloneApartment(apt)
	return cloneApartment(apt), nil
}

func (r *MemoryRepository) SetExternalRef(_ context.Context, id uuid.UUID, platform rental.Platform, ref rental.ExternalRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.apartments[id]
	if !ok {
		return persistence.ErrApartmentNotFound
	}

	if ref.IsEmpty() {
		delete(apt.ExternalRefs, platform)
		r.apartments[id] = apt
		return nil
	}

	if ref.IsPending() {
		for otherID, other := range r.apartments {
			existing := other.Ref(platform)
			if otherID != id && existing.IsPending() && existing.Value == ref.Value {
				return persistence.ErrExternalRefConflict
			}
		}
	}

	if apt.ExternalRefs == nil {
		apt.ExternalRefs = make(map[rental.Platform]rental.ExternalRef)
	}
	ref.UpdatedAt = r.now()
	apt.ExternalRefs[platform] = ref
	r.apartments[id] = apt
	return nil
}

func (r *MemoryRepository) ConfirmPendingRef(_ context.Context, platform rental.Platform, transactionID, listingID string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, apt, ok := r.findPending(platform, transactionID)
	if !ok {
		return uuid.Nil, persistence.ErrExternalRefNotFound
	}
	ref := apt.ExternalRefs[platform]
	ref.State = rental.RefConfirmed
	ref.Value = listingID
	ref.LastError = ""
	ref.UpdatedAt = r.now()
	apt.ExternalRefs[platform] = ref
	r.apartments[id] = apt
	return id, nil
}

func (r *MemoryRepository) MarkPendingRefError(_ context.Context, platform rental.Platform, transactionID, message string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, apt, ok := r.findPending(platform, transactionID)
	if !ok {
		return uuid.Nil, persistence.ErrExternalRefNotFound
	}
	ref := apt.ExternalRefs[platform]
	ref.LastError = message
	ref.UpdatedAt = r.now()
	apt.ExternalRefs[platform] = ref
	r.apartments[id] = apt
	return id, nil
}

func (r *MemoryRepository) findPending(platform rental.Platform, transactionID string) (uuid.UUID, rental.Apartment, bool) {
	for id, apt := range r.apartments {
		ref := apt.Ref(platform)
		if ref.IsPending() && ref.Value == transactionID {
			return id, apt, true
		}
	}
	return uuid.Nil, rental.Apartment{}, false
}

func cloneApartment(apt rental.Apartment) rental.Apartment {
	if apt.PhotoURLs != nil {
		apt.PhotoURLs = append([]string(nil), apt.PhotoURLs...)
	}
	if apt.ExternalRefs != nil {
		refs := make(map[rental.Platform]rental.ExternalRef, len(apt.ExternalRefs))
		for p, ref := range apt.ExternalRefs {
			refs[p] = ref
		}
		apt.ExternalRefs = refs
	}
	return apt
}
