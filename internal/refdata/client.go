// Package refdata provides the building reference data layer: a client for
// the external reference API, an on-disk fallback store that doubles as a
// write-through cache, built-in seed data as the last resort, and a service
// that assembles the four categories into a snapshot for prompt injection.
package refdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/resilience"
)

// Client fetches one category of reference data from the external API.
type Client interface {
	// FetchCategory issues a GET for the category's endpoint and returns the
	// decoded items. Transport, shape, and parse failures are returned as
	// errors; fallback is the caller's concern.
	FetchCategory(ctx context.Context, category model.Category) ([]model.ReferenceItem, error)
}

// Option configures the reference API client.
type Option func(*httpClient)

// WithAPIKey sets a bearer token for the reference API.
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps int) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

// WithBreakers shares a breaker set with other clients. One breaker is used
// per category so a dead endpoint does not block its siblings.
func WithBreakers(set *resilience.BreakerSet) Option {
	return func(c *httpClient) {
		c.breakers = set
	}
}

type httpClient struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	breakers *resilience.BreakerSet
	retry    resilience.Policy
}

// NewClient creates a reference API client. Each category is fetched from
// GET {baseURL}/{category}.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 6 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breakers: resilience.NewBreakerSet(resilience.BreakerConfig{}),
		retry:    resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchCategory(ctx context.Context, category model.Category) ([]model.ReferenceItem, error) {
	if !category.Valid() {
		return nil, eris.Errorf("refdata: unknown category %q", category)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "refdata: rate limit %s", category)
		}
	}

	breaker := c.breakers.Get(string(category))
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]model.ReferenceItem, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) ([]model.ReferenceItem, error) {
			return c.fetchOnce(ctx, category)
		})
	})
}

func (c *httpClient) fetchOnce(ctx context.Context, category model.Category) ([]model.ReferenceItem, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, category)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: create %s request", category)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures are worth a retry.
		return nil, resilience.NewTransient(eris.Wrapf(err, "refdata: get %s", category), 0)
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, eris.Wrapf(readErr, "refdata: read %s body", category)
	}

	if resilience.IsTransientStatus(resp.StatusCode) {
		return nil, resilience.NewTransient(
			eris.Errorf("refdata: %s returned status %d", category, resp.StatusCode), resp.StatusCode)
	}
	// 3xx bodies still flow into decoding; anything else non-2xx is a failure.
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, eris.Errorf("refdata: %s returned status %d", category, resp.StatusCode)
	}

	return decodeItems(category, string(body))
}
