// Package otodom talks to the OLX Group real-estate advert API used by Otodom.
// Publish and update are asynchronous: the API answers with a transaction id and the
// durable advert id arrives later through a webhook.
package otodom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/platform/go/listingtext"
	"github.com/zenGate-Global/rentboard/platform/go/partnerhttp"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

const (
	DefaultBaseURL = "https://api.olxgroup.com/advert/v1"

	siteURN     = "urn:site:otodompl"
	categoryURN = "urn:concept:apartments-for-rent"

	titleMax       = 70
	descriptionMin = 50
	descriptionMax = 65000
)

// Fallback location used when an apartment carries no geocoding input. Geocoding is not
// integrated; every such listing lands on this Warsaw address.
const (
	DefaultCityID     = 26
	DefaultStreetName = "Marszałkowska"
	DefaultLatitude   = 52.2297
	DefaultLongitude  = 21.0122
)

// Config wires the client.
type Config struct {
	BaseURL       string
	PublicBaseURL string
	HTTPClient    *http.Client
}

// Client implements partner.Client for Otodom.
type Client struct {
	baseURL       string
	publicBaseURL string
	http          *http.Client
	creds         partner.Credentials
}

// New returns an Otodom client.
func New(creds partner.Credentials, cfg Config) *Client {
	if creds == nil {
		panic("otodom credentials are required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = partnerhttp.New(partnerhttp.Config{})
	}

	return &Client{baseURL: base, publicBaseURL: cfg.PublicBaseURL, http: client, creds: creds}
}

func (c *Client) Platform() rental.Platform { return rental.PlatformOtodom }

type advertPayload struct {
	SiteURN      string       `json:"site_urn"`
	CategoryURN  string       `json:"category_urn"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Price        price        `json:"price"`
	Location     location     `json:"location"`
	Images       []image      `json:"images"`
	Attributes   []attribute  `json:"attributes,omitempty"`
	CustomFields customFields `json:"custom_fields"`
}

type price struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type location struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Exact bool    `json:"exact"`
}

type image struct {
	URL string `json:"url"`
}

type attribute struct {
	URN   string `json:"urn"`
	Value string `json:"value"`
}

type customFields struct {
	ID         string `json:"id"`
	CityID     int    `json:"city_id"`
	StreetName string `json:"street_name"`
}

type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Data          struct {
		TransactionID string `json:"transaction_id"`
	} `json:"data"`
}

func (r transactionResponse) id() string {
	if r.TransactionID != "" {
		return r.TransactionID
	}
	return r.Data.TransactionID
}

func (c *Client) buildPayload(apt rental.Apartment) advertPayload {
	payload := advertPayload{
		SiteURN:     siteURN,
		CategoryURN: categoryURN,
		Title:       listingtext.Truncate(listingtext.Normalize(apt.Title), titleMax),
		Description: listingtext.Clamp(apt.Description, descriptionMin, descriptionMax, ""),
		Price:       price{Value: apt.Price, Currency: "PLN"},
		Location:    location{Lat: DefaultLatitude, Lon: DefaultLongitude},
		Images:      make([]image, 0, len(apt.PhotoURLs)),
		CustomFields: customFields{
			ID:         partner.ExternalID(apt.ID),
			CityID:     DefaultCityID,
			StreetName: DefaultStreetName,
		},
	}

	if apt.Latitude != nil && apt.Longitude != nil {
		payload.Location = location{Lat: *apt.Latitude, Lon: *apt.Longitude, Exact: true}
	}
	if apt.OtodomCityID != nil && *apt.OtodomCityID > 0 {
		payload.CustomFields.CityID = *apt.OtodomCityID
	}
	if apt.OtodomStreetName != nil && strings.TrimSpace(*apt.OtodomStreetName) != "" {
		payload.CustomFields.StreetName = strings.TrimSpace(*apt.OtodomStreetName)
	}
	for _, u := range listingtext.ResolveAll(c.publicBaseURL, apt.PhotoURLs) {
		payload.Images = append(payload.Images, image{URL: u})
	}
	if apt.AreaM2 > 0 {
		payload.Attributes = append(payload.Attributes, attribute{URN: "urn:concept:net-area-m2", Value: partner.FormatArea(apt.AreaM2)})
	}
	return payload
}

// Publish submits the advert and returns the pending transaction id.
func (c *Client) Publish(ctx context.Context, principal string, apt rental.Apartment) (partner.PublishResult, error) {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return partner.PublishResult{}, err
	}

	var out transactionResponse
	if err := partner.Do(ctx, c.http, rental.PlatformOtodom, partner.Request{
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

	if out.id() == "" {
		return partner.PublishResult{}, &partner.RejectionError{
			Op: partner.OpPublish, Platform: rental.PlatformOtodom, StatusCode: http.StatusAccepted, Message: "response carried no transaction id",
		}
	}
	return partner.PublishResult{Reference: out.id(), Pending: true}, nil
}

// Update replaces the advert body of a confirmed listing. The listing id stays the durable
// reference; the update transaction id is not tracked.
func (c *Client) Update(ctx context.Context, principal, listingID string, apt rental.Apartment) (partner.PublishResult, error) {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return partner.PublishResult{}, err
	}

	if err := partner.Do(ctx, c.http, rental.PlatformOtodom, partner.Request{
		Op:      partner.OpUpdate,
		Method:  http.MethodPut,
		URL:     c.advertURL(listingID),
		Header:  header,
		Body:    c.buildPayload(apt),
		Message: errorMessage,
	}); err != nil {
		return partner.PublishResult{}, err
	}
	return partner.PublishResult{Reference: listingID}, nil
}

// Delete removes the advert.
func (c *Client) Delete(ctx context.Context, principal, listingID string) error {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return err
	}

	return partner.Do(ctx, c.http, rental.PlatformOtodom, partner.Request{
		Op:      partner.OpDelete,
		Method:  http.MethodDelete,
		URL:     c.advertURL(listingID),
		Header:  header,
		Message: errorMessage,
	})
}

type statusResponse struct {
	Data struct {
		State struct {
			Code string `json:"code"`
			URL  string `json:"url"`
		} `json:"state"`
		Status string `json:"status"`
		URL    string `json:"url"`
	} `json:"data"`
}

// Status probes the advert state.
func (c *Client) Status(ctx context.Context, principal, listingID string) (partner.StatusResult, error) {
	header, err := c.headers(ctx, principal)
	if err != nil {
		return partner.StatusResult{}, err
	}

	var out statusResponse
	if err := partner.Do(ctx, c.http, rental.PlatformOtodom, partner.Request{
		Op:      partner.OpStatus,
		Method:  http.MethodGet,
		URL:     c.advertURL(listingID),
		Header:  header,
		Out:     &out,
		Message: errorMessage,
	}); err != nil {
		return partner.StatusResult{}, err
	}

	result := partner.StatusResult{State: out.Data.State.Code, URL: out.Data.State.URL}
	if result.State == "" {
		result.State = out.Data.Status
	}
	if result.URL == "" {
		result.URL = out.Data.URL
	}
	return result, nil
}

func (c *Client) headers(ctx context.Context, principal string) (http.Header, error) {
	token, err := c.creds.AccessToken(ctx, rental.PlatformOtodom, principal)
	if err != nil {
		return nil, err
	}
	apiKey, err := c.creds.APIKey(ctx, rental.PlatformOtodom)
	if err != nil {
		return nil, err
	}

	h := partner.BearerHeader(token)
	h.Set("X-API-KEY", apiKey)
	return h, nil
}

func (c *Client) advertURL(listingID string) string {
	return c.baseURL + "/adverts/" + url.PathEscape(listingID)
}

// errorMessage reads {"error":{"message":..}} or a top-level {"message":..}.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if m := strings.TrimSpace(envelope.Error.Message); m != "" {
		return m
	}
	return strings.TrimSpace(envelope.Message)
}
