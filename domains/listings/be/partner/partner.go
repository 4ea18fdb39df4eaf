// Package partner holds the contract shared by the marketplace API clients: operations,
// rejection errors and the JSON request helper.
package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// Op names a partner API operation.
type Op string

const (
	OpPublish Op = "publish"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpStatus  Op = "status"
)

var (
	ErrPublishRejected   = errors.New("publish rejected by platform")
	ErrUpdateRejected    = errors.New("update rejected by platform")
	ErrDeleteRejected    = errors.New("delete rejected by platform")
	ErrStatusQueryFailed = errors.New("status query failed")
	// ErrUnsupported is returned for operations a platform API does not offer.
	ErrUnsupported = errors.New("operation not supported by platform")
)

func (o Op) sentinel() error {
	switch o {
	case OpPublish:
		return ErrPublishRejected
	case OpUpdate:
		return ErrUpdateRejected
	case OpDelete:
		return ErrDeleteRejected
	default:
		return ErrStatusQueryFailed
	}
}

// RejectionError carries the platform's own message for a failed call. A zero StatusCode
// means the request never got a response (timeout, connection reset).
type RejectionError struct {
	Op         Op
	Platform   rental.Platform
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Platform, e.Op, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Platform, e.Op, e.StatusCode, e.Message)
}

// Is matches the sentinel of the failed operation.
func (e *RejectionError) Is(target error) bool {
	return target == e.Op.sentinel()
}

// Credentials resolves what a client needs to authenticate partner calls.
type Credentials interface {
	AccessToken(ctx context.Context, platform rental.Platform, principal string) (string, error)
	APIKey(ctx context.Context, platform rental.Platform) (string, error)
}

// PublishResult is the normalised answer to publish and update.
// Pending is true when Reference is a transaction id that still awaits confirmation.
type PublishResult struct {
	Reference string
	Pending   bool
	URL       string
}

// StatusResult is the normalised answer to a status probe.
type StatusResult struct {
	State string
	URL   string
}

// Client is one marketplace API.
type Client interface {
	Platform() rental.Platform
	Publish(ctx context.Context, principal string, apt rental.Apartment) (PublishResult, error)
	Update(ctx context.Context, principal, listingID string, apt rental.Apartment) (PublishResult, error)
	Delete(ctx context.Context, principal, listingID string) error
	Status(ctx context.Context, principal, listingID string) (StatusResult, error)
}

// ErrorMessageFunc extracts a human-readable message from a non-2xx body.
type ErrorMessageFunc func(body []byte) string

// Request describes one JSON call.
type Request struct {
	Op      Op
	Method  string
	URL     string
	Header  http.Header
	Body    any
	Out     any
	Message ErrorMessageFunc
}

// Do sends req and decodes a 2xx body into req.Out. Every failure, including transport errors,
// comes back as a *RejectionError for req.Op.
func Do(ctx context.Context, client *http.Client, platform rental.Platform, req Request) error {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", req.Op, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.Op, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return &RejectionError{Op: req.Op, Platform: platform, Message: "request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &RejectionError{Op: req.Op, Platform: platform, StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := ""
		if req.Message != nil {
			message = req.Message(raw)
		}
		if message == "" {
			message = fallbackMessage(resp.StatusCode, raw)
		}
		return &RejectionError{Op: req.Op, Platform: platform, StatusCode: resp.StatusCode, Message: message}
	}

	if req.Out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, req.Out); err != nil {
			return &RejectionError{Op: req.Op, Platform: platform, StatusCode: resp.StatusCode, Message: "unreadable response: " + err.Error()}
		}
	}
	return nil
}

func fallbackMessage(status int, raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 300 {
		text = text[:300]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}

// BearerHeader returns the Authorization header for an access token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// FlexibleID decodes identifiers that partners send either as JSON strings or numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

// FormatArea renders an area for attribute payloads without trailing zeros.
func FormatArea(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExternalID is the stable id partners store for our apartment.
func ExternalID(id uuid.UUID) string {
	return id.String()
}
