// Package service renders the bulk listing feeds crawled by the partner marketplaces.
package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/listingtext"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// ErrUnknownFeed is returned for platforms without a feed renderer.
var ErrUnknownFeed = errors.New("no feed for platform")

// PlaceholderImagePath is substituted when an apartment has no photos.
const PlaceholderImagePath = "/static/listing-placeholder.jpg"

// Fixed coordinates used when an apartment carries none. No geocoding happens here.
const (
	FallbackLatitude  = 52.2297
	FallbackLongitude = 21.0122
)

const dateLayout = "2006-01-02"

// Config wires the generator.
type Config struct {
	// BaseURL resolves relative photo URLs and the placeholder image.
	BaseURL string
}

// Service renders feeds from the current set of available apartments.
type Service interface {
	// Generate returns the complete XML document for platform. A non-empty ownerHint restricts
	// the feed to that principal's apartments.
	Generate(ctx context.Context, platform rental.Platform, ownerHint string) ([]byte, error)
}

type service struct {
	apartments repo.Repository
	baseURL    string
	logger     *zap.Logger
}

// New constructs the feed service.
func New(apartments repo.Repository, cfg Config, logger *zap.Logger) Service {
	if apartments == nil {
		panic("apartments repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{apartments: apartments, baseURL: strings.TrimSpace(cfg.BaseURL), logger: logger}
}

func (s *service) Generate(ctx context.Context, platform rental.Platform, ownerHint string) ([]byte, error) {
	var owner *string
	if hint := strings.TrimSpace(ownerHint); hint != "" {
		owner = &hint
	}

	apts, err := s.apartments.ListByStatus(ctx, rental.StatusAvailable, owner)
	if err != nil {
		return nil, fmt.Errorf("list available apartments: %w", err)
	}
	sortByID(apts)

	var doc []byte
	switch platform {
	case rental.PlatformOLX:
		doc, err = RenderOLX(apts, s.baseURL)
	case rental.PlatformOtodom:
		doc, err = RenderOtodom(apts, s.baseURL)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFeed, platform)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s feed: %w", platform, err)
	}

	s.logger.Debug("feed generated",
		zap.String("platform", string(platform)),
		zap.Int("apartments", len(apts)),
		zap.Int("bytes", len(doc)),
	)
	return doc, nil
}

func sortByID(apts []rental.Apartment) {
	slices.SortFunc(apts, func(a, b rental.Apartment) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

// cdata wraps free text so markup-like characters survive without double escaping.
type cdata struct {
	Text string `xml:",cdata"`
}

func encode(root any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(apt rental.Apartment) string {
	if apt.AvailableFrom == nil {
		return ""
	}
	return apt.AvailableFrom.UTC().Format(dateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return listingtext.Normalize(*s)
}

func coordinates(apt rental.Apartment) (string, string) {
	if apt.Latitude != nil && apt.Longitude != nil {
		return formatNumber(*apt.Latitude), formatNumber(*apt.Longitude)
	}
	return formatNumber(FallbackLatitude), formatNumber(FallbackLongitude)
}

func images(apt rental.Apartment, baseURL string, placeholder bool) []string {
	resolved := listingtext.ResolveAll(baseURL, apt.PhotoURLs)
	if len(resolved) == 0 && placeholder {
		resolved = []string{listingtext.ResolveURL(baseURL, PlaceholderImagePath)}
	}
	return resolved
}
