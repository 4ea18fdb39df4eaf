// Package partnerhttp builds the outbound HTTP clients used for partner marketplace APIs and
// OAuth token endpoints: bounded timeout, a shared request rate limit and fixed headers.
package partnerhttp

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "rentboard-sync/1.0"
)

// Config captures the knobs for a partner client. Zero RatePerSecond disables limiting.
type Config struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	UserAgent     string
}

// New returns an *http.Client whose requests wait on the limiter before leaving the process.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	headers := http.Header{}
	headers.Set("User-Agent", ua)

	return &http.Client{
		Timeout: timeout,
		Transport: &transport{
			base:    http.DefaultTransport,
			limiter: limiter,
			headers: headers,
		},
	}
}

// WithHeaders returns a shallow copy of client that also sets the given headers on every request.
func WithHeaders(client *http.Client, headers http.Header) *http.Client {
	if client == nil {
		client = New(Config{})
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	clone := *client
	clone.Transport = &transport{base: base, headers: headers.Clone()}
	return &clone
}

type transport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	headers http.Header
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("partner rate limit: %w", err)
		}
	}

	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for key, values := range t.headers {
			if req.Header.Get(key) != "" {
				continue
			}
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}

	return t.base.RoundTrip(req)
}
