package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// ErrNotFound is returned for missing apartments and for apartments owned by someone else.
var ErrNotFound = errors.New("apartment not found")

// ListOptions filters the apartments of one owner.
type ListOptions struct {
	OwnerID string
	Status  rental.Status
}

// SaveInput carries the editable apartment attributes.
type SaveInput struct {
	Title            string
	Address          string
	Street           *string
	StreetNumber     *string
	PostalCode       *string
	City             *string
	Price            float64
	AreaM2           float64
	Description      string
	PhotoURLs        []string
	Status           rental.Status
	ContractEndDate  *time.Time
	AvailableFrom    *time.Time
	Latitude         *float64
	Longitude        *float64
	OtodomCityID     *int
	OtodomStreetName *string
}

// Service defines the apartment record operations the listing core collaborates with.
type Service interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (rental.Apartment, error)
	List(ctx context.Context, opts ListOptions) ([]rental.Apartment, error)
	Save(ctx context.Context, ownerID string, id uuid.UUID, input SaveInput) (rental.Apartment, error)
}

type service struct {
	repo repo.Repository
}

// New constructs an apartments Service backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("apartments repository is required")
	}
	return &service{repo: r}
}

func (s *service) Get(ctx context.Context, ownerID string, id uuid.UUID) (rental.Apartment, error) {
	if id == uuid.Nil {
		return rental.Apartment{}, ErrNotFound
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return rental.Apartment{}, mapPersistenceError(err)
	}
	if !ownedBy(apt, ownerID) {
		return rental.Apartment{}, ErrNotFound
	}
	return apt, nil
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]rental.Apartment, error) {
	status := opts.Status
	if status == "" {
		status = rental.StatusAvailable
	}
	if !validStatus(status) {
		return nil, newValidationError("status", "status must be one of AVAILABLE, RENTED, INVENTORY")
	}

	var owner *string
	if trimmed := strings.TrimSpace(opts.OwnerID); trimmed != "" {
		owner = &trimmed
	}
	return s.repo.ListByStatus(ctx, status, owner)
}

// Save creates or replaces the apartment. An existing apartment owned by someone else is
// reported as not found. External references are never touched here.
func (s *service) Save(ctx context.Context, ownerID string, id uuid.UUID, input SaveInput) (rental.Apartment, error) {
	if id == uuid.Nil {
		return rental.Apartment{}, newValidationError("id", "id must be a valid UUID")
	}

	apt, err := buildApartment(input)
	if err != nil {
		return rental.Apartment{}, err
	}
	apt.ID = id

	existing, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		if !ownedBy(existing, ownerID) {
			return rental.Apartment{}, ErrNotFound
		}
		apt.OwnerID = existing.OwnerID
	case errors.Is(err, persistence.ErrApartmentNotFound):
		if owner := strings.TrimSpace(ownerID); owner != "" {
			apt.OwnerID = &owner
		}
	default:
		return rental.Apartment{}, err
	}

	return s.repo.Upsert(ctx, apt)
}

func buildApartment(input SaveInput) (rental.Apartment, error) {
	fieldErrors := FieldErrors{}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		fieldErrors.add("title", "title is required")
	}
	if input.Price < 0 {
		fieldErrors.add("price", "price cannot be negative")
	}
	if input.AreaM2 < 0 {
		fieldErrors.add("areaM2", "areaM2 cannot be negative")
	}

	status := input.Status
	if status == "" {
		status = rental.StatusInventory
	}
	if !validStatus(status) {
		fieldErrors.add("status", "status must be one of AVAILABLE, RENTED, INVENTORY")
	}
	if input.ContractEndDate != nil && status != rental.StatusRented {
		fieldErrors.add("contractEndDate", "contractEndDate is only allowed for RENTED apartments")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		fieldErrors.add("latitude", "latitude and longitude must be provided together")
	}

	photos := make([]string, 0, len(input.PhotoURLs))
	for _, raw := range input.PhotoURLs {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			photos = append(photos, trimmed)
		}
	}

	if len(fieldErrors) > 0 {
		return rental.Apartment{}, &ValidationError{Fields: fieldErrors}
	}

	return rental.Apartment{
		Title:            title,
		Address:          strings.TrimSpace(input.Address),
		Street:           trimmedOrNil(input.Street),
		StreetNumber:     trimmedOrNil(input.StreetNumber),
		PostalCode:       trimmedOrNil(input.PostalCode),
		City:             trimmedOrNil(input.City),
		Price:            input.Price,
		AreaM2:           input.AreaM2,
		Description:      strings.TrimSpace(input.Description),
		PhotoURLs:        photos,
		Status:           status,
		ContractEndDate:  input.ContractEndDate,
		AvailableFrom:    input.AvailableFrom,
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		OtodomCityID:     input.OtodomCityID,
		OtodomStreetName: trimmedOrNil(input.OtodomStreetName),
	}, nil
}

// ownedBy treats apartments without an owner as shared.
func ownedBy(apt rental.Apartment, ownerID string) bool {
	return apt.OwnerID == nil || *apt.OwnerID == ownerID
}

func validStatus(status rental.Status) bool {
	switch status {
	case rental.StatusAvailable, rental.StatusRented, rental.StatusInventory:
		return true
	default:
		return false
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapPersistenceError(err error) error {
	if errors.Is(err, persistence.ErrApartmentNotFound) {
		return ErrNotFound
	}
	return err
}

func newValidationError(field, message string) error {
	fe := FieldErrors{}
	fe.add(field, message)
	return &ValidationError{Fields: fe}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
