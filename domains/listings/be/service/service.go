package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// Partner rejections keep their identity so callers can match either package.
var (
	ErrPublishRejected   = partner.ErrPublishRejected
	ErrUpdateRejected    = partner.ErrUpdateRejected
	ErrDeleteRejected    = partner.ErrDeleteRejected
	ErrStatusQueryFailed = partner.ErrStatusQueryFailed
	ErrUnsupported       = partner.ErrUnsupported
)

var (
	// ErrStillPending means the stored reference is a transaction id the platform has not
	// confirmed yet; the operation can be retried once the confirmation arrives.
	ErrStillPending = errors.New("listing is still being processed by the platform")
	// ErrAlreadyPublished means the apartment already has a confirmed listing on the platform.
	ErrAlreadyPublished = errors.New("listing already published")
	// ErrNotPublished means there is no listing on the platform to act on.
	ErrNotPublished      = errors.New("listing not published")
	ErrNotAvailable      = errors.New("apartment is not available for rent")
	ErrApartmentNotFound = errors.New("apartment not found")
	ErrUnknownPlatform   = errors.New("no client registered for platform")
)

// Outcome is the structured answer of a listing operation.
type Outcome struct {
	Success  bool
	Message  string
	URL      string
	AdvertID string
	Pending  bool
}

// Service drives listing operations against the partner platforms and keeps the apartment's
// external references in step.
type Service interface {
	Publish(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error)
	Update(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error)
	Delete(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error)
	Status(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error)
}

type service struct {
	apartments repo.Repository
	clients    map[rental.Platform]partner.Client
	logger     *zap.Logger
}

// New constructs the listings service. Every client is registered under its own platform.
func New(apartments repo.Repository, logger *zap.Logger, clients ...partner.Client) Service {
	if apartments == nil {
		panic("apartments repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	registry := make(map[rental.Platform]partner.Client, len(clients))
	for _, c := range clients {
		registry[c.Platform()] = c
	}
	return &service{apartments: apartments, clients: registry, logger: logger}
}

func (s *service) Publish(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error) {
	client, apt, err := s.prepare(ctx, platform, principal, apartmentID)
	if err != nil {
		return Outcome{}, err
	}

	ref := apt.Ref(platform)
	switch {
	case ref.IsPending():
		return Outcome{}, ErrStillPending
	case ref.IsConfirmed():
		return Outcome{}, ErrAlreadyPublished
	}
	if apt.Status != rental.StatusAvailable {
		return Outcome{}, ErrNotAvailable
	}

	result, err := client.Publish(ctx, principal, apt)
	if err != nil {
		return Outcome{}, err
	}

	next := rental.ConfirmedRef(result.Reference, result.URL)
	if result.Pending {
		next = rental.PendingRef(result.Reference)
	}
	if err := s.apartments.SetExternalRef(ctx, apt.ID, platform, next); err != nil {
		s.logger.Error("published listing could not be recorded",
			zap.String("platform", string(platform)),
			zap.String("apartment_id", apt.ID.String()),
			zap.String("reference", result.Reference),
			zap.Bool("pending", result.Pending),
			zap.Error(err),
		)
		return Outcome{}, fmt.Errorf("record %s reference: %w", platform, err)
	}

	if result.Pending {
		return Outcome{
			Success: true,
			Pending: true,
			Message: fmt.Sprintf("Listing submitted to %s. It will be live once %s confirms it.", platform.DisplayName(), platform.DisplayName()),
		}, nil
	}
	return Outcome{
		Success:  true,
		Message:  fmt.Sprintf("Listing published on %s.", platform.DisplayName()),
		URL:      result.URL,
		AdvertID: result.Reference,
	}, nil
}

func (s *service) Update(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error) {
	client, apt, err := s.prepare(ctx, platform, principal, apartmentID)
	if err != nil {
		return Outcome{}, err
	}

	listingID, current, err := confirmedListing(apt, platform)
	if err != nil {
		return Outcome{}, err
	}

	result, err := client.Update(ctx, principal, listingID, apt)
	if err != nil {
		return Outcome{}, err
	}

	next := current
	if result.Reference != "" {
		next.Value = result.Reference
	}
	if result.URL != "" {
		next.URL = result.URL
	}
	if next.Value != current.Value || next.URL != current.URL {
		if err := s.apartments.SetExternalRef(ctx, apt.ID, platform, rental.ConfirmedRef(next.Value, next.URL)); err != nil {
			return Outcome{}, fmt.Errorf("record %s reference: %w", platform, err)
		}
	}

	return Outcome{
		Success:  true,
		Message:  fmt.Sprintf("Listing updated on %s.", platform.DisplayName()),
		URL:      next.URL,
		AdvertID: next.Value,
	}, nil
}

func (s *service) Delete(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error) {
	client, apt, err := s.prepare(ctx, platform, principal, apartmentID)
	if err != nil {
		return Outcome{}, err
	}

	listingID, _, err := confirmedListing(apt, platform)
	if err != nil {
		return Outcome{}, err
	}

	if err := client.Delete(ctx, principal, listingID); err != nil {
		return Outcome{}, err
	}

	if err := s.apartments.SetExternalRef(ctx, apt.ID, platform, rental.ExternalRef{}); err != nil {
		s.logger.Error("deleted listing could not be cleared",
			zap.String("platform", string(platform)),
			zap.String("apartment_id", apt.ID.String()),
			zap.String("listing_id", listingID),
			zap.Error(err),
		)
		return Outcome{}, fmt.Errorf("clear %s reference: %w", platform, err)
	}

	return Outcome{
		Success:  true,
		Message:  fmt.Sprintf("Listing removed from %s.", platform.DisplayName()),
		AdvertID: listingID,
	}, nil
}

func (s *service) Status(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (Outcome, error) {
	client, apt, err := s.prepare(ctx, platform, principal, apartmentID)
	if err != nil {
		return Outcome{}, err
	}

	listingID, current, err := confirmedListing(apt, platform)
	if err != nil {
		return Outcome{}, err
	}

	status, err := client.Status(ctx, principal, listingID)
	if err != nil {
		return Outcome{}, err
	}

	url := status.URL
	if url == "" {
		url = current.URL
	}
	return Outcome{
		Success:  true,
		Message:  fmt.Sprintf("%s reports the listing as %s.", platform.DisplayName(), status.State),
		URL:      url,
		AdvertID: listingID,
	}, nil
}

func (s *service) prepare(ctx context.Context, platform rental.Platform, principal string, apartmentID uuid.UUID) (partner.Client, rental.Apartment, error) {
	client, ok := s.clients[platform]
	if !ok {
		return nil, rental.Apartment{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}

	apt, err := s.apartments.Get(ctx, apartmentID)
	if err != nil {
		if errors.Is(err, persistence.ErrApartmentNotFound) {
			return nil, rental.Apartment{}, ErrApartmentNotFound
		}
		return nil, rental.Apartment{}, err
	}
	if apt.OwnerID != nil && *apt.OwnerID != principal {
		return nil, rental.Apartment{}, ErrApartmentNotFound
	}
	return client, apt, nil
}

// confirmedListing returns the durable listing id, or the state error for empty and pending references.
func confirmedListing(apt rental.Apartment, platform rental.Platform) (string, rental.ExternalRef, error) {
	ref := apt.Ref(platform)
	switch ref.State {
	case rental.RefPending:
		return "", ref, ErrStillPending
	case rental.RefConfirmed:
		return ref.Value, ref, nil
	default:
		return "", ref, ErrNotPublished
	}
}
