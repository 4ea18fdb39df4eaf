// Package olx talks to the OLX partner API (v2).
package olx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/platform/go/listingtext"
	"github.com/zenGate-Global/rentboard/platform/go/partnerhttp"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

const (
	DefaultBaseURL = "https://www.olx.pl/api/partner"
	// apiVersion is sent in the Version header on every call.
	apiVersion = "2.0"

	// DefaultCategoryID is "Nieruchomości > Mieszkania > Wynajem".
	DefaultCategoryID = 15

	titleMax       = 70
	descriptionMin = 80
	descriptionMax = 9000
)

// Config wires the client.
type Config struct {
	BaseURL string
	// PublicBaseURL resolves relative photo URLs.
	PublicBaseURL string
	CategoryID    int
	HTTPClient    *http.Client
}

// Client implements partner.Client for OLX.
type Client struct {
	baseURL       string
	publicBaseURL string
	categoryID    int
	http          *http.Client
	creds         partner.Credentials
}

// New returns an OLX client.
func New(creds partner.Credentials, cfg Config) *Client {
	if creds == nil {
		panic("olx credentials are required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	category := cfg.CategoryID
	if category == 0 {
		category = DefaultCategoryID
	}
	client := cfg.HTTPClient
	if client == nil {
		client = partnerhttp.New(partnerhttp.Config{})
	}

	return &Client{
		baseURL:       base,
		publicBaseURL: cfg.PublicBaseURL,
		categoryID:    category,
		http:          client,
		creds:         creds,
	}
}

func (c *Client) Platform() rental.Platform { return rental.PlatformOLX }

type advertPayload struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	CategoryID     int         `json:"category_id"`
	AdvertiserType string      `json:"advertiser_type"`
	ExternalID     string      `json:"external_id"`
	Location       location    `json:"location"`
	Images         []image     `json:"images"`
	Price          price       `json:"price"`
	Attributes     []attribute `json:"attributes,omitempty"`
}

type location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	Address   string   `json:"address,omitempty"`
}

type image struct {
	URL string `json:"url"`
}

type price struct {
	Value      float64 `json:"value"`
	Currency   string  `json:"currency"`
	Negotiable bool    `json:"negotiable"`
}

type attribute struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

type advertResponse struct {
	Data struct {
		ID  partner.FlexibleID `json:"id"`
		URL string             `json:"url"`
	} `json:"data"`
}

// buildPayload maps an apartment onto the OLX advert body.
func (c *Client) buildPayload(apt rental.Apartment) advertPayload {
	payload := advertPayload{
		Title:          listingtext.Truncate(listingtext.Normalize(apt.Title), titleMax),
		Description:    listingtext.Clamp(apt.Description, descriptionMin, descriptionMax, ""),
		CategoryID:     c.categoryID,
		AdvertiserType: "private",
		ExternalID:     partner.ExternalID(apt.ID),
		Location: location{
			Latitude:  apt.Latitude,
			Longitude: apt.Longitude,
			Address:   apt.Address,
		},
		Images: make([]image, 0, len(apt.PhotoURLs)),
		Price:  price{Value: apt.Price, Currency: "PLN"},
	}
	if apt.City != nil {
		payload.Location.City = *apt.City
	}
	for _, u := range listingtext.ResolveAll(c.publicBaseURL, apt.PhotoURLs) {
		payload.Images = append(payload.Images, image{URL: u})
	}
	if apt.AreaM2 > 0 {
		payload.Attributes = append(payload.Attributes, attribute{Code: "m", Value: partner.FormatArea(apt.AreaM2)})
	}
	return payload
}

// Publish creates the advert. OLX answers synchronously with the durable id.
func (c *Client) Publish(ctx context.Context, principal string, apt rental.Apartment) (partner.PublishResult, error) {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return partner.PublishResult{}, err
	}

	var out advertResponse
	if err := partner.Do(ctx, c.http, rental.PlatformOLX, partner.Request{
		Op:      partner.OpPublish,
		Method:  http.MethodPost,
		URL:     c.baseURL + "/adverts",
		Header:  header,
		Body:    c.buildPayload(apt),
		Out:     &out,
		Message: errorMessage,
	}); err != nil {
		return partner.PublishResult{}, err
	}

	if out.Data.ID == "" {
		return partner.PublishResult{}, &partner.RejectionError{
			Op: partner.OpPublish, Platform: rental.PlatformOLX, StatusCode: http.StatusOK, Message: "response carried no advert id",
		}
	}
	return partner.PublishResult{Reference: string(out.Data.ID), URL: out.Data.URL}, nil
}

// Update replaces the advert body.
func (c *Client) Update(ctx context.Context, principal, listingID string, apt rental.Apartment) (partner.PublishResult, error) {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return partner.PublishResult{}, err
	}

	var out advertResponse
	if err := partner.Do(ctx, c.http, rental.PlatformOLX, partner.Request{
		Op:      partner.OpUpdate,
		Method:  http.MethodPut,
		URL:     c.advertURL(listingID),
		Header:  header,
		Body:    c.buildPayload(apt),
		Out:     &out,
		Message: errorMessage,
	}); err != nil {
		return partner.PublishResult{}, err
	}

	result := partner.PublishResult{Reference: listingID, URL: out.Data.URL}
	if out.Data.ID != "" {
		result.Reference = string(out.Data.ID)
	}
	return result, nil
}

// Delete removes the advert.
func (c *Client) Delete(ctx context.Context, principal, listingID string) error {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return err
	}

	return partner.Do(ctx, c.http, rental.PlatformOLX, partner.Request{
		Op:      partner.OpDelete,
		Method:  http.MethodDelete,
		URL:     c.advertURL(listingID),
		Header:  header,
		Message: errorMessage,
	})
}

// Status is not offered by the OLX partner API.
func (c *Client) Status(context.Context, string, string) (partner.StatusResult, error) {
	return partner.StatusResult{}, fmt.Errorf("olx status: %w", partner.ErrUnsupported)
}

func (c *Client) headers(ctx context.Context, principal string) (http.Header, error) {
	token, err := c.creds.AccessToken(ctx, rental.PlatformOLX, principal)
	if err != nil {
		return nil, err
	}
	h := partner.BearerHeader(token)
	h.Set("Version", apiVersion)
	return h, nil
}

func (c *Client) advertURL(listingID string) string {
	return c.baseURL + "/adverts/" + url.PathEscape(listingID)
}

// errorMessage reads {"error":{"title":..,"detail":..}}, preferring detail.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if d := strings.TrimSpace(envelope.Error.Detail); d != "" {
		return d
	}
	return strings.TrimSpace(envelope.Error.Title)
}
