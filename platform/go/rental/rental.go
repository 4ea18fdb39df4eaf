// Package rental holds the shared domain primitives of the listing synchronization core:
// apartments, partner platforms and the per-platform external listing reference.
package rental

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform identifies an external marketplace.
type Platform string

const (
	PlatformOLX    Platform = "olx"
	PlatformOtodom Platform = "otodom"
)

// Platforms lists every supported marketplace in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformOLX, PlatformOtodom}
}

// ParsePlatform normalises a raw platform name.
func ParsePlatform(raw string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(raw))); p {
	case PlatformOLX, PlatformOtodom:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported platform %q", raw)
	}
}

func (p Platform) String() string { return string(p) }

// DisplayName is used in user-facing messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformOLX:
		return "OLX"
	case PlatformOtodom:
		return "Otodom"
	default:
		return string(p)
	}
}

// Status is the rental status of an apartment.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusRented    Status = "RENTED"
	StatusInventory Status = "INVENTORY"
)

// Apartment is one rental unit as seen by the synchronization core.
type Apartment struct {
	ID              uuid.UUID
	OwnerID         *string
	Title           string
	Address         string
	Street          *string
	StreetNumber    *string
	PostalCode      *string
	City            *string
	Price           float64
	AreaM2          float64
	Description     string
	PhotoURLs       []string
	Status          Status
	ContractEndDate *time.Time
	AvailableFrom   *time.Time
	Latitude        *float64
	Longitude       *float64

	// Otodom geocoding inputs; absent values fall back to fixed defaults.
	OtodomCityID     *int
	OtodomStreetName *string

	ExternalRefs map[Platform]ExternalRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the external reference for the platform, or the empty reference.
func (a Apartment) Ref(p Platform) ExternalRef {
	if a.ExternalRefs == nil {
		return ExternalRef{}
	}
	return a.ExternalRefs[p]
}

// PrimaryPhoto returns the first photo URL when present.
func (a Apartment) PrimaryPhoto() (string, bool) {
	if len(a.PhotoURLs) == 0 {
		return "", false
	}
	return a.PhotoURLs[0], true
}
